package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxcrm/velox/modules/core/domain/entities/tenant"
	"github.com/veloxcrm/velox/modules/core/presentation/controllers"
	"github.com/veloxcrm/velox/modules/core/presentation/dtos"
	"github.com/veloxcrm/velox/modules/core/services"
	"github.com/veloxcrm/velox/modules/core/testhelpers"
	"github.com/veloxcrm/velox/pkg/application"
	"github.com/veloxcrm/velox/pkg/eventbus"
	"github.com/veloxcrm/velox/pkg/middleware"
	"github.com/veloxcrm/velox/pkg/tenancy"
)

func seedTenant(t *testing.T, repo *testhelpers.InMemoryTenantRepository, id uuid.UUID, slug, name string) {
	t.Helper()
	_, err := repo.Create(context.Background(), tenant.New(name,
		tenant.WithID(id),
		tenant.WithSlug(slug),
		tenant.WithIsActive(true),
	))
	require.NoError(t, err)
}

type apiFixture struct {
	router   *mux.Router
	tokens   *services.TokenService
	repo     *testhelpers.InMemoryTokenRepository
	tenantID uuid.UUID
	userID   uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	tokens, err := services.NewTokenService("test-signing-key", 8*time.Hour, 14*24*time.Hour)
	require.NoError(t, err)

	tenants := testhelpers.NewInMemoryTenantRepository()
	tokenRepo := testhelpers.NewInMemoryTokenRepository()
	identities := testhelpers.NewInMemoryIdentityStore()
	bus := eventbus.NewEventPublisher(log)

	f := &apiFixture{
		tokens:   tokens,
		repo:     tokenRepo,
		tenantID: uuid.MustParse("00000000-0000-0000-0000-00000000a111"),
		userID:   uuid.New(),
	}

	seedTenant(t, tenants, f.tenantID, "demo", "Demo Corp")
	otherTenant := uuid.New()
	seedTenant(t, tenants, otherTenant, "globex", "Globex")

	identities.Add("jane@demo.test", "correct horse", &services.Identity{
		UserID:      f.userID,
		DisplayName: "Jane Doe",
		TenantID:    f.tenantID,
		Roles:       []string{"manager"},
	})
	identities.Add("hank@globex.test", "hank pass", &services.Identity{
		UserID:      uuid.New(),
		DisplayName: "Hank",
		TenantID:    otherTenant,
		Roles:       []string{"sales"},
	})

	app := application.New(&application.ApplicationOptions{EventBus: bus})
	app.RegisterServices(
		tokens,
		services.NewTenantService(tenants, bus),
		services.NewAuthService(tokens, tokenRepo, identities, bus, log),
	)

	resolver := tenancy.NewHostResolver(tenants.Directory(), "veloxcrm.app",
		tenancy.WithDevSuffix(".localhost"),
	)

	app.RegisterMiddleware(
		middleware.WithLogger(log, middleware.DefaultLoggerOptions()),
		middleware.RequestParams(),
		middleware.TenantFromHost(resolver),
		middleware.Authorize(tokens),
	)
	app.RegisterControllers(controllers.NewAuthController(app))

	r := mux.NewRouter()
	r.Use(app.Middleware()...)
	for _, c := range app.Controllers() {
		c.Register(r)
	}
	f.router = r
	return f
}

func (f *apiFixture) post(host, path string, body any, bearer string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Host = host
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodePair(t *testing.T, rec *httptest.ResponseRecorder) *dtos.TokenPairResponse {
	t.Helper()
	var pair dtos.TokenPairResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	return &pair
}

func TestAuthAPI_LoginRefreshReplay(t *testing.T) {
	f := newAPIFixture(t)

	// Login on the demo tenant host.
	rec := f.post("demo.localhost", "/auth/login", dtos.LoginDTO{Email: "jane@demo.test", Password: "correct horse"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decodePair(t, rec)
	assert.Equal(t, "Bearer", first.TokenType)
	assert.NotEmpty(t, first.AccessToken)
	assert.NotEmpty(t, first.RefreshToken)

	// Rotate once.
	rec = f.post("demo.localhost", "/auth/refresh", dtos.RefreshDTO{RefreshToken: first.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decodePair(t, rec)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// Replay the first secret: uniform 401 and family revoked.
	rec = f.post("demo.localhost", "/auth/refresh", dtos.RefreshDTO{RefreshToken: first.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid refresh token.")

	rec = f.post("demo.localhost", "/auth/refresh", dtos.RefreshDTO{RefreshToken: second.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid refresh token.")
	assert.Equal(t, 0, f.repo.ActiveCount(f.userID, f.tenantID))
}

func TestAuthAPI_LoginFailures(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("unknown tenant host", func(t *testing.T) {
		rec := f.post("unknown.localhost", "/auth/login", dtos.LoginDTO{Email: "jane@demo.test", Password: "correct horse"}, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Tenant 'unknown' not found.")
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := f.post("demo.localhost", "/auth/login", dtos.LoginDTO{Email: "jane@demo.test", Password: "nope"}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("cross-tenant login is forbidden", func(t *testing.T) {
		rec := f.post("demo.localhost", "/auth/login", dtos.LoginDTO{Email: "hank@globex.test", Password: "hank pass"}, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("validation failure", func(t *testing.T) {
		rec := f.post("demo.localhost", "/auth/login", dtos.LoginDTO{Email: "not-an-email", Password: ""}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthAPI_Logout(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.post("demo.localhost", "/auth/login", dtos.LoginDTO{Email: "jane@demo.test", Password: "correct horse"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	pair := decodePair(t, rec)

	rec = f.post("demo.localhost", "/auth/logout", nil, pair.AccessToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, f.repo.ActiveCount(f.userID, f.tenantID))

	// The rotated-away family rejects the old secret uniformly.
	rec = f.post("demo.localhost", "/auth/refresh", dtos.RefreshDTO{RefreshToken: pair.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
