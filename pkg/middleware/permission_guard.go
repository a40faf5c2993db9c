package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/veloxcrm/velox/modules/core/domain/entities/principal"
	"github.com/veloxcrm/velox/modules/core/permissions"
	"github.com/veloxcrm/velox/pkg/composables"
	"github.com/veloxcrm/velox/pkg/httpapi"
	"github.com/veloxcrm/velox/pkg/metrics"
)

// PermissionRegistry maps named routes to the permissions they require.
// It is populated once when controllers register their routes and is
// read-only afterwards, so the guard does no locking.
type PermissionRegistry struct {
	byOperation map[string][]string
}

func NewPermissionRegistry() *PermissionRegistry {
	return &PermissionRegistry{byOperation: map[string][]string{}}
}

// Require declares that the named operation needs every listed
// permission. Calling it again for the same operation appends.
func (reg *PermissionRegistry) Require(operation string, perms ...string) {
	reg.byOperation[operation] = append(reg.byOperation[operation], perms...)
}

// Required returns the permissions declared for an operation, nil when
// the operation is open.
func (reg *PermissionRegistry) Required(operation string) []string {
	return reg.byOperation[operation]
}

// RequirePermissions enforces the registry against the current route.
// Every declared permission must hold; the first failure short-circuits
// with 401 for anonymous callers and 403 for authenticated ones.
func RequirePermissions(reg *PermissionRegistry, evaluator *permissions.Evaluator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := mux.CurrentRoute(r)
			if route == nil {
				next.ServeHTTP(w, r)
				return
			}
			required := reg.Required(route.GetName())
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			p := principal.FromContext(r.Context())
			for _, perm := range required {
				if evaluator.HasPermission(p, perm) {
					continue
				}
				metrics.PermissionDenials.WithLabelValues(perm).Inc()
				composables.UseLogger(r.Context()).WithFields(logrus.Fields{
					"operation":  route.GetName(),
					"permission": perm,
					"user-id":    p.UserID().String(),
				}).Warn("permission denied")

				if !p.Authenticated() {
					httpapi.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "Authentication required.")
				} else {
					httpapi.WriteProblem(w, http.StatusForbidden, "Forbidden", "You do not have permission to perform this action.")
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
