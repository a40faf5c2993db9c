package principal

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

// Principal is the authenticated identity a request acts as, derived from a
// verified access token. An anonymous principal has Authenticated() == false
// and carries no claims.
type Principal struct {
	userID      uuid.UUID
	userName    string
	tenantID    uuid.UUID
	tenantSlug  string
	tenantName  string
	roles       []string
	permissions []string
}

type Option func(*Principal)

func WithUserName(name string) Option {
	return func(p *Principal) {
		p.userName = name
	}
}

func WithTenant(id uuid.UUID, slug, name string) Option {
	return func(p *Principal) {
		p.tenantID = id
		p.tenantSlug = slug
		p.tenantName = name
	}
}

func WithRoles(roles ...string) Option {
	return func(p *Principal) {
		p.roles = append(p.roles, roles...)
	}
}

// WithPermissions grants direct permission claims, independent of roles.
func WithPermissions(permissions ...string) Option {
	return func(p *Principal) {
		p.permissions = append(p.permissions, permissions...)
	}
}

func New(userID uuid.UUID, opts ...Option) *Principal {
	p := &Principal{userID: userID}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Anonymous is the unauthenticated principal.
func Anonymous() *Principal {
	return &Principal{}
}

func (p *Principal) Authenticated() bool {
	return p != nil && p.userID != uuid.Nil
}

func (p *Principal) UserID() uuid.UUID {
	return p.userID
}

func (p *Principal) UserName() string {
	return p.userName
}

func (p *Principal) TenantID() uuid.UUID {
	return p.tenantID
}

func (p *Principal) TenantSlug() string {
	return p.tenantSlug
}

func (p *Principal) TenantName() string {
	return p.tenantName
}

func (p *Principal) Roles() []string {
	return p.roles
}

func (p *Principal) Permissions() []string {
	return p.permissions
}

// WithContext attaches the principal to the context.
func WithContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the request principal, or the anonymous principal when
// authentication middleware did not attach one.
func FromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(contextKey{}).(*Principal); ok && p != nil {
		return p
	}
	return Anonymous()
}
