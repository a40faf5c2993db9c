package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, now func() time.Time) *TokenService {
	t.Helper()
	svc, err := NewTokenService("test-signing-key", 8*time.Hour, 14*24*time.Hour, WithClock(now))
	require.NoError(t, err)
	return svc
}

func TestNewTokenService_RequiresKey(t *testing.T) {
	_, err := NewTokenService("", time.Hour, 2*time.Hour)
	assert.ErrorIs(t, err, ErrSigningKeyMissing)
}

func TestTokenService_ClaimsRoundTrip(t *testing.T) {
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, func() time.Time { return issued })

	userID := uuid.New()
	tenantID := uuid.New()
	pair, err := svc.CreateToken(userID, "Jane Doe", tenantID, "acme", "Acme Inc", []string{"manager", "sales"})
	require.NoError(t, err)

	claims, err := svc.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "Jane Doe", claims.Name)
	assert.Equal(t, tenantID.String(), claims.Tenant)
	assert.Equal(t, "acme", claims.TenantSlug)
	assert.Equal(t, "Acme Inc", claims.TenantName)
	assert.Equal(t, []string{"manager", "sales"}, claims.Roles)

	assert.Equal(t, issued.Add(8*time.Hour), pair.AccessTokenExpiresAt)
	assert.Equal(t, issued.Add(14*24*time.Hour), pair.RefreshTokenExpiresAt)
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, func() time.Time { return now })

	pair, err := svc.CreateToken(uuid.New(), "Jane", uuid.New(), "acme", "", nil)
	require.NoError(t, err)

	now = now.Add(9 * time.Hour)
	_, err = svc.ParseAccessToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	svc := newTestTokenService(t, time.Now)
	other, err := NewTokenService("another-key", 8*time.Hour, 14*24*time.Hour)
	require.NoError(t, err)

	pair, err := other.CreateToken(uuid.New(), "Jane", uuid.New(), "acme", "", nil)
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestTokenService_RefreshSecrets(t *testing.T) {
	svc := newTestTokenService(t, time.Now)

	pair, err := svc.CreateToken(uuid.New(), "Jane", uuid.New(), "acme", "", nil)
	require.NoError(t, err)

	// 32 random bytes, base64 raw-url encoded.
	assert.Len(t, pair.RefreshToken, 43)
	assert.Equal(t, HashSecret(pair.RefreshToken), pair.RefreshTokenHash)
	assert.Len(t, pair.RefreshTokenHash, 64)

	second, err := svc.CreateToken(uuid.New(), "Jane", uuid.New(), "acme", "", nil)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, second.RefreshToken)
}
