package services

import (
	"context"

	"github.com/veloxcrm/velox/modules/core/domain/entities/tenant"
	"github.com/veloxcrm/velox/pkg/composables"
	"github.com/veloxcrm/velox/pkg/eventbus"
)

type TenantService struct {
	repo      tenant.Repository
	publisher eventbus.EventBus
}

func NewTenantService(repo tenant.Repository, publisher eventbus.EventBus) *TenantService {
	return &TenantService{
		repo:      repo,
		publisher: publisher,
	}
}

// Current returns the tenant the request resolved to.
func (s *TenantService) Current(ctx context.Context) (*tenant.Tenant, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, tenantID)
}

func (s *TenantService) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *TenantService) List(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.repo.List(ctx)
}

// UpdateSettings replaces the current tenant's settings map.
func (s *TenantService) UpdateSettings(ctx context.Context, settings map[string]string) (*tenant.Tenant, error) {
	current, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	for key, value := range settings {
		current.SetSetting(key, value)
	}
	updated, err := composables.InTenantTxResult(ctx, func(txCtx context.Context) (*tenant.Tenant, error) {
		return s.repo.Update(txCtx, current)
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(&TenantSettingsUpdatedEvent{
		TenantID: updated.ID(),
		Settings: updated.Settings(),
	})
	return updated, nil
}
