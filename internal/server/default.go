package server

import (
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/veloxcrm/velox/modules/core/permissions"
	"github.com/veloxcrm/velox/modules/core/presentation/controllers"
	"github.com/veloxcrm/velox/modules/core/services"
	"github.com/veloxcrm/velox/pkg/application"
	"github.com/veloxcrm/velox/pkg/configuration"
	"github.com/veloxcrm/velox/pkg/constants"
	"github.com/veloxcrm/velox/pkg/middleware"
	"github.com/veloxcrm/velox/pkg/server"
	"github.com/veloxcrm/velox/pkg/tenancy"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
	Resolver      *tenancy.HostResolver
	Permissions   *middleware.PermissionRegistry
	Cache         *middleware.CacheRegistry
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	tokenService := app.Service(services.TokenService{}).(*services.TokenService)

	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, middleware.DefaultLoggerOptions()),
		middleware.Provide(constants.AppKey, app),
		middleware.Provide(constants.PoolKey, options.Pool),
		middleware.Cors(conf.Origin),
	}

	if conf.RateLimit.Enabled {
		var store limiter.Store
		var err error

		switch conf.RateLimit.Storage {
		case "redis":
			store, err = middleware.NewRedisStore(conf.RateLimit.RedisURL)
			if err != nil {
				options.Logger.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
				store = middleware.NewMemoryStore()
			}
		default:
			store = middleware.NewMemoryStore()
		}

		middlewares = append(middlewares,
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             store,
			}),
		)
	}

	middlewares = append(middlewares,
		middleware.RequestParams(),
		middleware.TenantFromHost(options.Resolver),
		middleware.Authorize(tokenService),
		middleware.RequireTenantFromClaims(),
		middleware.RequirePermissions(options.Permissions, permissions.NewEvaluator()),
	)

	if conf.ResponseCache.Enabled {
		var store middleware.CacheStore
		switch conf.ResponseCache.Storage {
		case "redis":
			opts, err := redis.ParseURL(conf.ResponseCache.RedisURL)
			if err != nil {
				return nil, err
			}
			store = middleware.NewRedisCacheStore(redis.NewClient(opts))
		default:
			store = middleware.NewMemoryCacheStore()
		}
		middlewares = append(middlewares,
			middleware.ResponseCache(options.Cache, store, conf.ResponseCache.DefaultTTL),
		)
	}

	app.RegisterMiddleware(middlewares...)

	serverInstance := server.NewHTTPServer(
		app,
		controllers.NotFound(),
		controllers.MethodNotAllowed(),
	)
	return serverInstance, nil
}
