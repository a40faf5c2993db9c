package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxcrm/velox/modules/core/domain/entities/principal"
	"github.com/veloxcrm/velox/modules/core/services"
	"github.com/veloxcrm/velox/modules/core/testhelpers"
	"github.com/veloxcrm/velox/pkg/composables"
	"github.com/veloxcrm/velox/pkg/eventbus"
	"github.com/veloxcrm/velox/pkg/tenancy"
)

type authFixture struct {
	auth       *services.AuthService
	tokens     *services.TokenService
	repo       *testhelpers.InMemoryTokenRepository
	identities *testhelpers.InMemoryIdentityStore
	bus        eventbus.EventBus

	tenantID uuid.UUID
	userID   uuid.UUID
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	tokens, err := services.NewTokenService("test-signing-key", 8*time.Hour, 14*24*time.Hour)
	require.NoError(t, err)

	repo := testhelpers.NewInMemoryTokenRepository()
	identities := testhelpers.NewInMemoryIdentityStore()
	bus := eventbus.NewEventPublisher(log)

	f := &authFixture{
		auth:       services.NewAuthService(tokens, repo, identities, bus, log),
		tokens:     tokens,
		repo:       repo,
		identities: identities,
		bus:        bus,
		tenantID:   uuid.New(),
		userID:     uuid.New(),
	}
	identities.Add("jane@acme.test", "correct horse", &services.Identity{
		UserID:      f.userID,
		DisplayName: "Jane Doe",
		TenantID:    f.tenantID,
		Roles:       []string{"manager"},
	})
	return f
}

// ctx returns a request-like context resolved to the fixture tenant.
func (f *authFixture) ctx() context.Context {
	ctx := context.Background()
	ctx = composables.WithParams(ctx, &composables.Params{IP: "10.0.0.1", UserAgent: "go-test"})
	holder := tenancy.NewHolder(func(context.Context) tenancy.Resolution {
		return tenancy.Resolved(tenancy.TenantInfo{ID: f.tenantID, Name: "Acme Inc", Slug: "acme"})
	})
	return composables.WithTenancy(ctx, holder)
}

func (f *authFixture) unresolvedCtx(slug string) context.Context {
	ctx := context.Background()
	ctx = composables.WithParams(ctx, &composables.Params{IP: "10.0.0.1"})
	holder := tenancy.NewHolder(func(context.Context) tenancy.Resolution {
		res := tenancy.Unresolved("")
		res.TenantSlug = slug
		return res
	})
	return composables.WithTenancy(ctx, holder)
}

func TestAuthService_Login(t *testing.T) {
	t.Run("issues a pair and persists the refresh row", func(t *testing.T) {
		f := newAuthFixture(t)

		pair, err := f.auth.Login(f.ctx(), "jane@acme.test", "correct horse")
		require.NoError(t, err)

		claims, err := f.tokens.ParseAccessToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, f.userID.String(), claims.Subject)
		assert.Equal(t, "acme", claims.TenantSlug)
		assert.Equal(t, []string{"manager"}, claims.Roles)

		row, err := f.repo.GetByHash(context.Background(), pair.RefreshTokenHash)
		require.NoError(t, err)
		assert.Equal(t, f.userID, row.UserID())
		assert.Equal(t, f.tenantID, row.TenantID())
		assert.Equal(t, "10.0.0.1", row.CreatedByIP())
		assert.Equal(t, "go-test", row.UserAgent())
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.auth.Login(f.ctx(), "jane@acme.test", "wrong")
		assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	})

	t.Run("unknown email is indistinguishable from wrong password", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.auth.Login(f.ctx(), "nobody@acme.test", "correct horse")
		assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	})

	t.Run("valid credentials under the wrong tenant host", func(t *testing.T) {
		f := newAuthFixture(t)
		otherTenant := uuid.New()
		ctx := context.Background()
		ctx = composables.WithParams(ctx, &composables.Params{IP: "10.0.0.1"})
		holder := tenancy.NewHolder(func(context.Context) tenancy.Resolution {
			return tenancy.Resolved(tenancy.TenantInfo{ID: otherTenant, Slug: "globex"})
		})
		ctx = composables.WithTenancy(ctx, holder)

		_, err := f.auth.Login(ctx, "jane@acme.test", "correct horse")
		assert.ErrorIs(t, err, services.ErrTenantMismatch)
	})

	t.Run("unresolved tenant", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.auth.Login(f.unresolvedCtx("ghost"), "jane@acme.test", "correct horse")
		require.Error(t, err)
		assert.EqualError(t, err, "Tenant 'ghost' not found.")
	})
}

func TestAuthService_Refresh(t *testing.T) {
	t.Run("rotation links successor to predecessor", func(t *testing.T) {
		f := newAuthFixture(t)
		first, err := f.auth.Login(f.ctx(), "jane@acme.test", "correct horse")
		require.NoError(t, err)

		second, err := f.auth.Refresh(f.ctx(), first.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

		// The old row is revoked and points at its successor.
		assert.Equal(t, second.RefreshTokenHash, f.repo.ReplacedBy(first.RefreshTokenHash))
		assert.Equal(t, 1, f.repo.ActiveCount(f.userID, f.tenantID))
	})

	t.Run("unknown secret", func(t *testing.T) {
		f := newAuthFixture(t)
		_, err := f.auth.Refresh(f.ctx(), "never-issued")
		assert.ErrorIs(t, err, services.ErrRefreshTokenInvalid)
	})

	t.Run("replay revokes the whole family", func(t *testing.T) {
		f := newAuthFixture(t)
		first, err := f.auth.Login(f.ctx(), "jane@acme.test", "correct horse")
		require.NoError(t, err)

		second, err := f.auth.Refresh(f.ctx(), first.RefreshToken)
		require.NoError(t, err)
		third, err := f.auth.Refresh(f.ctx(), second.RefreshToken)
		require.NoError(t, err)
		_ = third

		// Replaying the already-rotated first secret taints every
		// descendant, including the still-active third token.
		_, err = f.auth.Refresh(f.ctx(), first.RefreshToken)
		assert.ErrorIs(t, err, services.ErrRefreshTokenInvalid)
		assert.Equal(t, 0, f.repo.ActiveCount(f.userID, f.tenantID))

		_, err = f.auth.Refresh(f.ctx(), third.RefreshToken)
		assert.ErrorIs(t, err, services.ErrRefreshTokenInvalid)
	})

	t.Run("expired token is rejected without cascade", func(t *testing.T) {
		f := newAuthFixture(t)
		first, err := f.auth.Login(f.ctx(), "jane@acme.test", "correct horse")
		require.NoError(t, err)

		shifted := services.NewAuthService(
			f.tokens, f.repo, f.identities, f.bus, logrusSilent(),
			services.WithAuthClock(func() time.Time { return time.Now().Add(15 * 24 * time.Hour) }),
		)
		_, err = shifted.Refresh(f.ctx(), first.RefreshToken)
		assert.ErrorIs(t, err, services.ErrRefreshTokenInvalid)
		// Expiry is not a reuse signal; nothing else gets revoked.
		assert.Equal(t, 1, f.repo.ActiveCount(f.userID, f.tenantID))
	})

	t.Run("token presented under a different tenant", func(t *testing.T) {
		f := newAuthFixture(t)
		first, err := f.auth.Login(f.ctx(), "jane@acme.test", "correct horse")
		require.NoError(t, err)

		otherCtx := context.Background()
		otherCtx = composables.WithParams(otherCtx, &composables.Params{IP: "10.0.0.2"})
		holder := tenancy.NewHolder(func(context.Context) tenancy.Resolution {
			return tenancy.Resolved(tenancy.TenantInfo{ID: uuid.New(), Slug: "globex"})
		})
		otherCtx = composables.WithTenancy(otherCtx, holder)

		_, err = f.auth.Refresh(otherCtx, first.RefreshToken)
		assert.ErrorIs(t, err, services.ErrRefreshTokenInvalid)
	})

	t.Run("concurrent rotation of one secret: one winner, then cascade", func(t *testing.T) {
		f := newAuthFixture(t)
		first, err := f.auth.Login(f.ctx(), "jane@acme.test", "correct horse")
		require.NoError(t, err)

		const workers = 8
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.auth.Refresh(f.ctx(), first.RefreshToken)
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
			} else {
				assert.ErrorIs(t, err, services.ErrRefreshTokenInvalid)
			}
		}
		assert.Equal(t, 1, winners)
		// Every loser triggered the reuse path, so the family is gone.
		assert.Equal(t, 0, f.repo.ActiveCount(f.userID, f.tenantID))
	})
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)
	pair, err := f.auth.Login(f.ctx(), "jane@acme.test", "correct horse")
	require.NoError(t, err)
	_ = pair

	p := principal.New(f.userID, principal.WithTenant(f.tenantID, "acme", "Acme Inc"))
	ctx := principal.WithContext(f.ctx(), p)

	require.NoError(t, f.auth.Logout(ctx))
	assert.Equal(t, 0, f.repo.ActiveCount(f.userID, f.tenantID))

	// Second logout is a no-op.
	require.NoError(t, f.auth.Logout(ctx))

	// Anonymous logout is also a no-op.
	require.NoError(t, f.auth.Logout(f.ctx()))
}

func logrusSilent() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}
