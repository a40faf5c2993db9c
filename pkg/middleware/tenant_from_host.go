package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/veloxcrm/velox/pkg/composables"
	"github.com/veloxcrm/velox/pkg/httpapi"
	"github.com/veloxcrm/velox/pkg/metrics"
	"github.com/veloxcrm/velox/pkg/tenancy"
)

// TenantFromHost attaches a lazy tenant resolution derived from the
// request host. The directory lookup runs at most once per request, on
// first use, so requests that never touch tenant state skip it.
func TenantFromHost(resolver *tenancy.HostResolver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := r.Host
			holder := tenancy.NewHolder(func(ctx context.Context) tenancy.Resolution {
				return resolver.Resolve(ctx, host)
			})
			next.ServeHTTP(w, r.WithContext(composables.WithTenancy(r.Context(), holder)))
		})
	}
}

// RequireTenantFromHost forces the host resolution and rejects the request when
// no tenant can be determined. Unknown slugs map to 404, hosts that
// yield no slug at all map to 400.
func RequireTenantFromHost() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := composables.UseTenancy(r.Context())
			if !ok {
				httpapi.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "Tenant resolution is not configured.")
				return
			}
			if !res.Resolved {
				metrics.TenantResolutionFailures.Inc()
				logger := composables.UseLogger(r.Context())

				var dirErr *tenancy.DirectoryError
				if errors.As(res.Err(), &dirErr) {
					logger.WithError(dirErr).WithField("host", r.Host).Error("tenant directory unavailable")
					httpapi.WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "Tenant lookup is temporarily unavailable.")
					return
				}

				logger.WithFields(logrus.Fields{
					"host":   r.Host,
					"reason": res.FailureReason,
				}).Warn("tenant resolution failed")

				var notFound *tenancy.NotFoundError
				if errors.As(res.Err(), &notFound) {
					httpapi.WriteProblem(w, http.StatusNotFound, "Not Found", notFound.Error())
					return
				}
				httpapi.WriteProblem(w, http.StatusBadRequest, "Bad Request", "No tenant could be determined for this host.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
