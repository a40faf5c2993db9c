package seed

import (
	"context"

	"github.com/google/uuid"

	"github.com/veloxcrm/velox/modules/core/domain/entities/tenant"
	"github.com/veloxcrm/velox/modules/core/infrastructure/persistence"
	"github.com/veloxcrm/velox/pkg/application"
	"github.com/veloxcrm/velox/pkg/configuration"
)

var defaultTenantID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// CreateDefaultTenant makes sure a tenant with the configured default slug
// exists. The fixed id keeps repeated seeding idempotent.
func CreateDefaultTenant(ctx context.Context, app application.Application) error {
	conf := configuration.Use()
	logger := conf.Logger()
	tenantRepository := persistence.NewTenantRepository()

	slug := conf.Tenancy.DefaultSlug
	if slug == "" {
		slug = "default"
	}

	existing, err := tenantRepository.GetByID(ctx, defaultTenantID)
	if err == nil && existing != nil {
		if existing.Slug() != slug && conf.GoAppEnvironment != configuration.Production {
			existing.SetSlug(slug)
			if _, err := tenantRepository.Update(ctx, existing); err != nil {
				logger.Errorf("Failed to update default tenant slug: %v", err)
				return err
			}
			logger.Infof("Updated default tenant slug to %s", slug)
		}
		logger.Infof("Default tenant already exists")
		return nil
	}

	logger.Infof("Creating default tenant %q", slug)
	defaultTenant := tenant.New(
		"Default",
		tenant.WithID(defaultTenantID),
		tenant.WithSlug(slug),
	)
	if _, err := tenantRepository.Create(ctx, defaultTenant); err != nil {
		logger.Errorf("Failed to create default tenant: %v", err)
		return err
	}
	return nil
}
