package core

import (
	"embed"

	"github.com/veloxcrm/velox/modules/core/infrastructure/persistence"
	"github.com/veloxcrm/velox/modules/core/presentation/controllers"
	"github.com/veloxcrm/velox/modules/core/seed"
	"github.com/veloxcrm/velox/modules/core/services"
	"github.com/veloxcrm/velox/pkg/application"
	"github.com/veloxcrm/velox/pkg/configuration"
	"github.com/veloxcrm/velox/pkg/middleware"
)

//go:embed infrastructure/persistence/schema/core-schema.sql
var migrationFiles embed.FS

type ModuleOptions struct {
	// Permissions and Cache are shared with the server middleware so route
	// declarations made here are visible to the interceptors.
	Permissions *middleware.PermissionRegistry
	Cache       *middleware.CacheRegistry
	// Identities may be overridden in tests; nil means the pgx-backed store.
	Identities services.IdentityStore
}

func NewModule(opts *ModuleOptions) *Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	if opts.Permissions == nil {
		opts.Permissions = middleware.NewPermissionRegistry()
	}
	if opts.Cache == nil {
		opts.Cache = middleware.NewCacheRegistry()
	}
	if opts.Identities == nil {
		opts.Identities = persistence.NewUserIdentityStore()
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	app.Migrations().RegisterSchema(&migrationFiles)

	tenantRepo := persistence.NewTenantRepository()
	refreshTokenRepo := persistence.NewRefreshTokenRepository()

	tokenService, err := services.NewTokenService(
		conf.Auth.JWTSecret,
		conf.Auth.AccessTokenTTL,
		conf.Auth.RefreshTokenTTL,
	)
	if err != nil {
		return err
	}

	app.RegisterServices(
		tokenService,
		services.NewTenantService(tenantRepo, app.EventPublisher()),
		services.NewAuthService(
			tokenService,
			refreshTokenRepo,
			m.options.Identities,
			app.EventPublisher(),
			conf.Logger(),
		),
	)

	app.RegisterControllers(
		controllers.NewHealthController(app),
		controllers.NewAuthController(app),
		controllers.NewTenantController(app, m.options.Cache),
		controllers.NewSettingsController(app, m.options.Permissions),
	)
	return nil
}

func (m *Module) Seed(seeder application.Seeder) {
	seeder.Register(
		seed.CreateDefaultTenant,
		seed.CreateDefaultAdmin,
	)
}
