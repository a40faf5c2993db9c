package token

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTokenNotFound means no row matches the presented hash.
	ErrTokenNotFound = errors.New("refresh token not found")
	// ErrAlreadyRevoked means the compare-and-set in Rotate lost: the row
	// was revoked between lookup and rotation. Callers must treat this as a
	// reuse signal.
	ErrAlreadyRevoked = errors.New("refresh token already revoked")
)

// State of a refresh token at a given instant. Expiry is evaluated by
// wall-clock comparison at use time; rows are never deleted.
type State int

const (
	StateActive State = iota
	StateExpired
	StateRevoked
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	case StateRevoked:
		return "revoked"
	}
	return "unknown"
}

// RefreshToken is the persisted side of an opaque refresh secret. Only the
// one-way hash of the secret is ever stored; the plaintext is returned to the
// client exactly once at issuance.
type RefreshToken struct {
	id             uuid.UUID
	userID         uuid.UUID
	tenantID       uuid.UUID
	tokenHash      string
	expiresAt      time.Time
	isRevoked      bool
	revokedAt      *time.Time
	revokedByIP    string
	replacedByHash string
	createdAt      time.Time
	createdByIP    string
	userAgent      string
}

type Option func(*RefreshToken)

func WithID(id uuid.UUID) Option {
	return func(t *RefreshToken) {
		t.id = id
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(t *RefreshToken) {
		t.createdAt = createdAt
	}
}

func WithCreatedByIP(ip string) Option {
	return func(t *RefreshToken) {
		t.createdByIP = ip
	}
}

func WithUserAgent(userAgent string) Option {
	return func(t *RefreshToken) {
		t.userAgent = userAgent
	}
}

func WithRevoked(revokedAt *time.Time, byIP, replacedByHash string) Option {
	return func(t *RefreshToken) {
		t.isRevoked = true
		t.revokedAt = revokedAt
		t.revokedByIP = byIP
		t.replacedByHash = replacedByHash
	}
}

func New(userID, tenantID uuid.UUID, tokenHash string, expiresAt time.Time, opts ...Option) *RefreshToken {
	t := &RefreshToken{
		id:        uuid.New(),
		userID:    userID,
		tenantID:  tenantID,
		tokenHash: tokenHash,
		expiresAt: expiresAt,
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *RefreshToken) ID() uuid.UUID {
	return t.id
}

func (t *RefreshToken) UserID() uuid.UUID {
	return t.userID
}

func (t *RefreshToken) TenantID() uuid.UUID {
	return t.tenantID
}

func (t *RefreshToken) TokenHash() string {
	return t.tokenHash
}

func (t *RefreshToken) ExpiresAt() time.Time {
	return t.expiresAt
}

func (t *RefreshToken) IsRevoked() bool {
	return t.isRevoked
}

func (t *RefreshToken) RevokedAt() *time.Time {
	return t.revokedAt
}

func (t *RefreshToken) RevokedByIP() string {
	return t.revokedByIP
}

func (t *RefreshToken) ReplacedByHash() string {
	return t.replacedByHash
}

func (t *RefreshToken) CreatedAt() time.Time {
	return t.createdAt
}

func (t *RefreshToken) CreatedByIP() string {
	return t.createdByIP
}

func (t *RefreshToken) UserAgent() string {
	return t.userAgent
}

// State evaluates the token's lifecycle state at the given instant.
func (t *RefreshToken) State(now time.Time) State {
	if t.isRevoked {
		return StateRevoked
	}
	if !t.expiresAt.After(now) {
		return StateExpired
	}
	return StateActive
}

// Repository persists refresh tokens with their rotation lineage. Rows are
// only ever mutated to flip revocation state; never deleted.
type Repository interface {
	GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Create(ctx context.Context, t *RefreshToken) error
	// Rotate revokes the row identified by oldHash and persists the
	// successor in one atomic step. The revocation is a compare-and-set on
	// is_revoked: when the row was already revoked by a concurrent rotation,
	// ErrAlreadyRevoked is returned and no state changes.
	Rotate(ctx context.Context, oldHash string, successor *RefreshToken, revokedByIP string) error
	// RevokeFamily revokes every non-revoked token for the user+tenant
	// family. Idempotent.
	RevokeFamily(ctx context.Context, userID, tenantID uuid.UUID, revokedByIP string) error
}
