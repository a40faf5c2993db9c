package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/veloxcrm/velox/modules/core/domain/entities/principal"
	"github.com/veloxcrm/velox/modules/core/domain/entities/token"
	"github.com/veloxcrm/velox/pkg/composables"
	"github.com/veloxcrm/velox/pkg/eventbus"
	"github.com/veloxcrm/velox/pkg/metrics"
)

var (
	// ErrRefreshTokenInvalid covers every refresh failure: unknown, expired,
	// revoked and cross-tenant tokens all surface identically so the caller
	// cannot tell which case applied.
	ErrRefreshTokenInvalid = errors.New("invalid refresh token")
	// ErrTenantMismatch means the credentials verified but the identity
	// belongs to a different tenant than the one resolved for the request.
	ErrTenantMismatch = errors.New("user is not a member of the resolved tenant")
)

type AuthService struct {
	tokens        *TokenService
	refreshTokens token.Repository
	identities    IdentityStore
	publisher     eventbus.EventBus
	log           *logrus.Logger
	now           func() time.Time
}

type AuthServiceOption func(*AuthService)

// WithAuthClock overrides the time source, for tests.
func WithAuthClock(now func() time.Time) AuthServiceOption {
	return func(s *AuthService) {
		s.now = now
	}
}

func NewAuthService(
	tokens *TokenService,
	refreshTokens token.Repository,
	identities IdentityStore,
	publisher eventbus.EventBus,
	log *logrus.Logger,
	opts ...AuthServiceOption,
) *AuthService {
	s := &AuthService{
		tokens:        tokens,
		refreshTokens: refreshTokens,
		identities:    identities,
		publisher:     publisher,
		log:           log,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies credentials against the identity store, checks membership
// of the resolved tenant, persists a refresh-token row and returns the pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	res, ok := composables.UseTenancy(ctx)
	if !ok {
		return nil, composables.ErrNoTenant
	}
	if !res.Resolved {
		return nil, res.Err()
	}

	identity, err := s.identities.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if identity.TenantID != res.TenantID {
		s.log.WithFields(logrus.Fields{
			"user":   identity.UserID,
			"tenant": res.TenantSlug,
		}).Warn("login rejected: user belongs to a different tenant")
		return nil, ErrTenantMismatch
	}

	pair, err := s.tokens.CreateToken(
		identity.UserID, identity.DisplayName,
		res.TenantID, res.TenantSlug, res.TenantName,
		identity.Roles,
	)
	if err != nil {
		return nil, err
	}

	ip := s.clientIP(ctx)
	userAgent, _ := composables.UseUserAgent(ctx)
	row := token.New(
		identity.UserID, res.TenantID,
		pair.RefreshTokenHash, pair.RefreshTokenExpiresAt,
		token.WithCreatedByIP(ip),
		token.WithUserAgent(userAgent),
	)
	if err := s.refreshTokens.Create(ctx, row); err != nil {
		return nil, err
	}
	if err := s.identities.MarkLoggedIn(ctx, identity.UserID); err != nil {
		s.log.WithError(err).WithField("user", identity.UserID).Warn("failed to record login time")
	}

	s.publisher.Publish(&UserLoggedInEvent{
		UserID:   identity.UserID,
		TenantID: res.TenantID,
		IP:       ip,
		At:       s.now(),
	})
	return pair, nil
}

// Refresh rotates a presented refresh secret for a new token pair. The state
// machine: unknown hash rejects; a revoked row is a reuse signal that
// cascade-revokes the whole user+tenant family; expiry and tenant mismatch
// reject without mutation; otherwise the row is revoked and its successor
// persisted in one atomic step.
func (s *AuthService) Refresh(ctx context.Context, secret string) (*TokenPair, error) {
	hash := HashSecret(secret)
	row, err := s.refreshTokens.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, token.ErrTokenNotFound) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, err
	}

	now := s.now()
	ip := s.clientIP(ctx)

	switch row.State(now) {
	case token.StateRevoked:
		return nil, s.handleReuse(ctx, row, ip)
	case token.StateExpired:
		return nil, ErrRefreshTokenInvalid
	}

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil || tenantID != row.TenantID() {
		// A refresh token is bound to the tenant it was issued under. The
		// response stays indistinguishable from any other invalid token.
		return nil, ErrRefreshTokenInvalid
	}

	identity, err := s.identities.GetByID(ctx, row.UserID())
	if err != nil {
		s.log.WithError(err).WithField("user", row.UserID()).Error("refresh: identity lookup failed")
		return nil, ErrRefreshTokenInvalid
	}

	res, _ := composables.UseTenancy(ctx)
	pair, err := s.tokens.CreateToken(
		identity.UserID, identity.DisplayName,
		row.TenantID(), res.TenantSlug, res.TenantName,
		identity.Roles,
	)
	if err != nil {
		return nil, err
	}

	userAgent, _ := composables.UseUserAgent(ctx)
	successor := token.New(
		row.UserID(), row.TenantID(),
		pair.RefreshTokenHash, pair.RefreshTokenExpiresAt,
		token.WithCreatedByIP(ip),
		token.WithUserAgent(userAgent),
	)
	if err := s.refreshTokens.Rotate(ctx, hash, successor, ip); err != nil {
		if errors.Is(err, token.ErrAlreadyRevoked) {
			// Lost a race with a concurrent rotation of the same secret:
			// by definition the secret has now been used twice.
			return nil, s.handleReuse(ctx, row, ip)
		}
		return nil, err
	}

	metrics.TokenRotations.Inc()
	s.publisher.Publish(&TokenRotatedEvent{
		UserID:   row.UserID(),
		TenantID: row.TenantID(),
		IP:       ip,
		At:       now,
	})
	return pair, nil
}

// Logout revokes every active refresh token in the caller's user+tenant
// family. Idempotent: revoking an already-revoked family is a no-op.
func (s *AuthService) Logout(ctx context.Context) error {
	p := principal.FromContext(ctx)
	if !p.Authenticated() {
		return nil
	}
	if err := s.refreshTokens.RevokeFamily(ctx, p.UserID(), p.TenantID(), s.clientIP(ctx)); err != nil {
		return err
	}
	s.publisher.Publish(&UserLoggedOutEvent{
		UserID:   p.UserID(),
		TenantID: p.TenantID(),
		At:       s.now(),
	})
	return nil
}

// handleReuse is the one rejection path that mutates state: presenting a
// rotated-away or revoked token taints the entire family.
func (s *AuthService) handleReuse(ctx context.Context, row *token.RefreshToken, ip string) error {
	s.log.WithFields(logrus.Fields{
		"user":   row.UserID(),
		"tenant": row.TenantID(),
		"ip":     ip,
	}).Warn("refresh token reuse detected, revoking token family")

	if err := s.refreshTokens.RevokeFamily(ctx, row.UserID(), row.TenantID(), ip); err != nil {
		s.log.WithError(err).Error("failed to revoke token family after reuse detection")
	}
	metrics.TokenReuseDetections.Inc()
	s.publisher.Publish(&TokenReuseDetectedEvent{
		UserID:   row.UserID(),
		TenantID: row.TenantID(),
		IP:       ip,
		At:       s.now(),
	})
	return ErrRefreshTokenInvalid
}

func (s *AuthService) clientIP(ctx context.Context) string {
	ip, ok := composables.UseIP(ctx)
	if !ok {
		return "0.0.0.0"
	}
	return ip
}
