package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrSigningKeyMissing is startup-fatal: the service refuses to construct
// without a signing key rather than issuing unverifiable tokens.
var ErrSigningKeyMissing = errors.New("access token signing key is not configured")

// TokenPair is the result of issuance: a signed access token plus an opaque
// refresh secret. RefreshToken is the plaintext secret, handed to the caller
// exactly once; only RefreshTokenHash is ever persisted.
type TokenPair struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenHash      string
	RefreshTokenExpiresAt time.Time
}

// AccessClaims is the bit-exact claim contract other collaborators rely on.
type AccessClaims struct {
	Name       string   `json:"name"`
	Tenant     string   `json:"tenant"`
	TenantSlug string   `json:"tenant_slug"`
	TenantName string   `json:"tenant_name,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenService computes tokens and hashes. It has no storage side effects;
// callers persist the refresh-token row themselves.
type TokenService struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type TokenServiceOption func(*TokenService)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		s.now = now
	}
}

func NewTokenService(signingKey string, accessTTL, refreshTTL time.Duration, opts ...TokenServiceOption) (*TokenService, error) {
	if signingKey == "" {
		return nil, ErrSigningKeyMissing
	}
	s := &TokenService{
		signingKey: []byte(signingKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateToken issues a signed access token carrying identity, tenant and
// role claims, and a fresh opaque refresh secret with its hash.
func (s *TokenService) CreateToken(userID uuid.UUID, userName string, tenantID uuid.UUID, tenantSlug, tenantName string, roles []string) (*TokenPair, error) {
	now := s.now()
	accessExpiry := now.Add(s.accessTTL)

	claims := &AccessClaims{
		Name:       userName,
		Tenant:     tenantID.String(),
		TenantSlug: tenantSlug,
		TenantName: tenantName,
		Roles:      roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	secret, err := newRefreshSecret()
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessExpiry,
		RefreshToken:          secret,
		RefreshTokenHash:      HashSecret(secret),
		RefreshTokenExpiresAt: now.Add(s.refreshTTL),
	}, nil
}

// ParseAccessToken verifies the signature and expiry and returns the claims.
func (s *TokenService) ParseAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func newRefreshSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSecret is the one-way mapping from refresh secret to its stored
// identity. The plaintext must never reach logs or persistence.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
