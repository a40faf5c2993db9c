package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxcrm/velox/modules/core/domain/entities/principal"
	"github.com/veloxcrm/velox/modules/core/services"
)

func TestAuthorize(t *testing.T) {
	tokens, err := services.NewTokenService("test-signing-key", time.Hour, 2*time.Hour)
	require.NoError(t, err)

	var captured *principal.Principal
	r := mux.NewRouter()
	r.Use(Authorize(tokens))
	r.HandleFunc("/probe", func(w http.ResponseWriter, req *http.Request) {
		captured = principal.FromContext(req.Context())
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	do := func(authorization string) {
		captured = nil
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, captured)
	}

	t.Run("valid bearer token yields the principal", func(t *testing.T) {
		userID := uuid.New()
		tenantID := uuid.New()
		pair, err := tokens.CreateToken(userID, "Jane Doe", tenantID, "acme", "Acme Inc", []string{"manager"})
		require.NoError(t, err)

		do("Bearer " + pair.AccessToken)
		assert.True(t, captured.Authenticated())
		assert.Equal(t, userID, captured.UserID())
		assert.Equal(t, tenantID, captured.TenantID())
		assert.Equal(t, "acme", captured.TenantSlug())
		assert.Equal(t, []string{"manager"}, captured.Roles())
	})

	t.Run("missing header stays anonymous", func(t *testing.T) {
		do("")
		assert.False(t, captured.Authenticated())
	})

	t.Run("garbage token stays anonymous", func(t *testing.T) {
		do("Bearer not.a.jwt")
		assert.False(t, captured.Authenticated())
	})

	t.Run("token signed with another key stays anonymous", func(t *testing.T) {
		other, err := services.NewTokenService("other-key", time.Hour, 2*time.Hour)
		require.NoError(t, err)
		pair, err := other.CreateToken(uuid.New(), "Mallory", uuid.New(), "evil", "", nil)
		require.NoError(t, err)

		do("Bearer " + pair.AccessToken)
		assert.False(t, captured.Authenticated())
	})
}
