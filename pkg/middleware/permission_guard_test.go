package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/veloxcrm/velox/modules/core/domain/entities/principal"
	"github.com/veloxcrm/velox/modules/core/permissions"
)

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func withPrincipal(p *principal.Principal) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(principal.WithContext(r.Context(), p)))
		})
	}
}

func newGuardRouter(reg *PermissionRegistry, p *principal.Principal) *mux.Router {
	ok := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	r := mux.NewRouter()
	r.Use(
		WithLogger(silentLogger(), DefaultLoggerOptions()),
		withPrincipal(p),
		RequirePermissions(reg, permissions.NewEvaluator()),
	)
	r.HandleFunc("/settings", ok).Methods(http.MethodPut).Name("settings.update")
	r.HandleFunc("/reports", ok).Methods(http.MethodGet).Name("reports.get")
	r.HandleFunc("/open", ok).Methods(http.MethodGet).Name("open.get")
	return r
}

func TestRequirePermissions(t *testing.T) {
	reg := NewPermissionRegistry()
	reg.Require("settings.update", permissions.SettingsManage)
	// AND-composed: both must hold.
	reg.Require("reports.get", permissions.DealsRead, permissions.TasksRead)

	do := func(p *principal.Principal, method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		newGuardRouter(reg, p).ServeHTTP(rec, req)
		return rec
	}

	t.Run("anonymous on a guarded route gets 401", func(t *testing.T) {
		rec := do(principal.Anonymous(), http.MethodPut, "/settings")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("authenticated without the permission gets 403", func(t *testing.T) {
		sales := principal.New(uuid.New(), principal.WithRoles(permissions.RoleSales))
		rec := do(sales, http.MethodPut, "/settings")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("administrator passes", func(t *testing.T) {
		admin := principal.New(uuid.New(), principal.WithRoles(permissions.RoleAdministrator))
		rec := do(admin, http.MethodPut, "/settings")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("all declared permissions must hold", func(t *testing.T) {
		// Direct claim for only one of the two declarations.
		partial := principal.New(uuid.New(), principal.WithPermissions(permissions.DealsRead))
		rec := do(partial, http.MethodGet, "/reports")
		assert.Equal(t, http.StatusForbidden, rec.Code)

		full := principal.New(uuid.New(), principal.WithPermissions(permissions.DealsRead, permissions.TasksRead))
		rec = do(full, http.MethodGet, "/reports")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("undeclared routes are open", func(t *testing.T) {
		rec := do(principal.Anonymous(), http.MethodGet, "/open")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
