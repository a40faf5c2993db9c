package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/veloxcrm/velox/pkg/composables"
	"github.com/veloxcrm/velox/pkg/configuration"
	"github.com/veloxcrm/velox/pkg/constants"
)

// RequestParams stores per-request metadata (client IP, user agent, the
// raw request and writer) in the context for downstream composables.
func RequestParams() mux.MiddlewareFunc {
	realIPHeader := configuration.Use().RealIPHeader
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			params := &composables.Params{
				IP:            getRealIP(r, realIPHeader),
				UserAgent:     r.UserAgent(),
				Authenticated: false,
				Request:       r,
				Writer:        w,
			}
			next.ServeHTTP(w, r.WithContext(composables.WithParams(r.Context(), params)))
		})
	}
}

// Provide injects a static value under the given context key for every
// request. Used to make the application and the database pool reachable
// from handlers.
func Provide(key constants.ContextKey, value any) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
