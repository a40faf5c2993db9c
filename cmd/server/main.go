package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veloxcrm/velox/internal/server"
	core "github.com/veloxcrm/velox/modules/core"
	"github.com/veloxcrm/velox/modules/core/infrastructure/persistence"
	"github.com/veloxcrm/velox/pkg/application"
	"github.com/veloxcrm/velox/pkg/composables"
	"github.com/veloxcrm/velox/pkg/configuration"
	"github.com/veloxcrm/velox/pkg/eventbus"
	"github.com/veloxcrm/velox/pkg/metrics"
	"github.com/veloxcrm/velox/pkg/middleware"
	"github.com/veloxcrm/velox/pkg/tenancy"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
	})

	permissionRegistry := middleware.NewPermissionRegistry()
	cacheRegistry := middleware.NewCacheRegistry()
	coreModule := core.NewModule(&core.ModuleOptions{
		Permissions: permissionRegistry,
		Cache:       cacheRegistry,
	})
	if err := coreModule.Register(app); err != nil {
		log.Fatalf("failed to load core module: %v", err)
	}

	if err := app.Migrations().Apply(ctx); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	if err := seedDatabase(pool, app, coreModule); err != nil {
		log.Fatalf("failed to seed database: %v", err)
	}

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	resolver := tenancy.NewHostResolver(
		persistence.NewTenantDirectory(persistence.NewTenantRepository()),
		conf.Tenancy.BaseDomain,
		tenancy.WithDevSuffix(conf.Tenancy.DevSuffix),
		tenancy.WithDefaultSlug(conf.Tenancy.DefaultSlug),
		tenancy.WithDevelopmentMode(conf.GoAppEnvironment != configuration.Production),
	)

	options := &server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
		Resolver:      resolver,
		Permissions:   permissionRegistry,
		Cache:         cacheRegistry,
	}
	serverInstance, err := server.Default(options)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

func seedDatabase(pool *pgxpool.Pool, app application.Application, coreModule *core.Module) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()
	ctx = composables.WithPool(ctx, pool)

	seeder := application.NewSeeder()
	coreModule.Seed(seeder)
	return composables.InTx(ctx, func(txCtx context.Context) error {
		return seeder.Seed(txCtx, app)
	})
}
