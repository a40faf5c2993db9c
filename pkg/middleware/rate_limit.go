package middleware

import (
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

type RateLimitConfig struct {
	RequestsPerPeriod int
	Period            time.Duration
	Store             limiter.Store
}

func NewMemoryStore() limiter.Store {
	return memory.NewStore()
}

func NewRedisStore(redisURL string) (limiter.Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "velox:ratelimit",
	})
}

// IPRateLimitPeriod limits each client IP to the given number of
// requests per period, backed by an in-process store. Meant for
// per-route protection of sensitive endpoints.
func IPRateLimitPeriod(requests int, period time.Duration) mux.MiddlewareFunc {
	return RateLimit(RateLimitConfig{
		RequestsPerPeriod: requests,
		Period:            period,
		Store:             NewMemoryStore(),
	})
}

// RateLimit applies a fixed-window limit across all requests. The
// period defaults to one second, making RequestsPerPeriod an RPS cap.
func RateLimit(config RateLimitConfig) mux.MiddlewareFunc {
	period := config.Period
	if period <= 0 {
		period = time.Second
	}
	store := config.Store
	if store == nil {
		store = NewMemoryStore()
	}
	instance := limiter.New(store, limiter.Rate{
		Period: period,
		Limit:  int64(config.RequestsPerPeriod),
	})
	mw := mhttp.NewMiddleware(instance)
	return mw.Handler
}
