package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/veloxcrm/velox/modules/core/domain/entities/principal"
	"github.com/veloxcrm/velox/modules/core/services"
	"github.com/veloxcrm/velox/pkg/composables"
	"github.com/veloxcrm/velox/pkg/httpapi"
	"github.com/veloxcrm/velox/pkg/tenancy"
)

// Authorize parses the Bearer token, when present, into a principal.
// Missing or invalid tokens leave the request anonymous; rejecting
// anonymous requests is the permission guard's job.
func Authorize(tokens *services.TokenService) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				next.ServeHTTP(w, r.WithContext(principal.WithContext(r.Context(), principal.Anonymous())))
				return
			}
			claims, err := tokens.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				next.ServeHTTP(w, r.WithContext(principal.WithContext(r.Context(), principal.Anonymous())))
				return
			}
			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				next.ServeHTTP(w, r.WithContext(principal.WithContext(r.Context(), principal.Anonymous())))
				return
			}
			res, err := tenancy.ResolveFromClaims(claims.Tenant, claims.TenantSlug, claims.TenantName)
			if err != nil {
				next.ServeHTTP(w, r.WithContext(principal.WithContext(r.Context(), principal.Anonymous())))
				return
			}

			p := principal.New(
				userID,
				principal.WithUserName(claims.Name),
				principal.WithTenant(res.TenantID, res.TenantSlug, res.TenantName),
				principal.WithRoles(claims.Roles...),
			)
			ctx := principal.WithContext(r.Context(), p)
			if params, ok := composables.UseParams(ctx); ok {
				params.Authenticated = true
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenantFromClaims rejects authenticated requests whose token was
// issued for a different tenant than the one the host resolves to. The
// check only applies when both sides are known; anonymous requests pass
// through untouched.
func RequireTenantFromClaims() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := principal.FromContext(r.Context())
			if !p.Authenticated() {
				next.ServeHTTP(w, r)
				return
			}
			res, ok := composables.UseTenancy(r.Context())
			if ok && res.Resolved && res.TenantID != p.TenantID() {
				httpapi.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "Token was issued for a different tenant.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
