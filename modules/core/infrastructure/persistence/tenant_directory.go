package persistence

import (
	"context"
	"errors"

	"github.com/veloxcrm/velox/modules/core/domain/entities/tenant"
	"github.com/veloxcrm/velox/pkg/tenancy"
)

// TenantDirectory adapts the tenant repository to the resolver's point
// lookup contract.
type TenantDirectory struct {
	repository tenant.Repository
}

func NewTenantDirectory(repository tenant.Repository) *TenantDirectory {
	return &TenantDirectory{repository: repository}
}

func (d *TenantDirectory) GetBySlug(ctx context.Context, slug string) (tenancy.TenantInfo, error) {
	t, err := d.repository.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return tenancy.TenantInfo{}, tenancy.ErrTenantNotFound
		}
		// Infrastructure failures must not read as a missing tenant.
		return tenancy.TenantInfo{}, err
	}
	if !t.IsActive() {
		// Deactivated tenants resolve exactly like unknown slugs.
		return tenancy.TenantInfo{}, tenancy.ErrTenantNotFound
	}
	return tenancy.TenantInfo{
		ID:   t.ID(),
		Name: t.Name(),
		Slug: t.Slug(),
	}, nil
}
