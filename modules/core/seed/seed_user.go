package seed

import (
	"context"

	"github.com/veloxcrm/velox/modules/core/infrastructure/persistence"
	"github.com/veloxcrm/velox/modules/core/permissions"
	"github.com/veloxcrm/velox/pkg/application"
	"github.com/veloxcrm/velox/pkg/composables"
	"github.com/veloxcrm/velox/pkg/configuration"
)

// CreateDefaultAdmin seeds an administrator in the default tenant for
// development environments. Production setups provision users out of band.
func CreateDefaultAdmin(ctx context.Context, app application.Application) error {
	conf := configuration.Use()
	if conf.GoAppEnvironment == configuration.Production {
		return nil
	}
	logger := conf.Logger()

	identities := persistence.NewUserIdentityStore()
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = $1)`, "admin@example.com").Scan(&exists); err != nil {
		return err
	}
	if exists {
		logger.Infof("Default admin already exists")
		return nil
	}

	logger.Infof("Creating default admin user")
	_, err = identities.Create(
		ctx,
		defaultTenantID,
		"admin@example.com",
		"Admin",
		"Password123!",
		[]string{permissions.RoleAdministrator},
	)
	return err
}
