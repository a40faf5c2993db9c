package testhelpers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veloxcrm/velox/modules/core/domain/entities/tenant"
	"github.com/veloxcrm/velox/modules/core/domain/entities/token"
	"github.com/veloxcrm/velox/modules/core/services"
	"github.com/veloxcrm/velox/pkg/tenancy"
)

// InMemoryTenantRepository is a mutex-guarded tenant.Repository for tests.
type InMemoryTenantRepository struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*tenant.Tenant
}

func NewInMemoryTenantRepository() *InMemoryTenantRepository {
	return &InMemoryTenantRepository{tenants: map[uuid.UUID]*tenant.Tenant{}}
}

var _ tenant.Repository = (*InMemoryTenantRepository)(nil)

func (r *InMemoryTenantRepository) GetByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, tenant.ErrNotFound
	}
	return t, nil
}

func (r *InMemoryTenantRepository) GetBySlug(_ context.Context, slug string) (*tenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, t := range r.tenants {
		if t.Slug() == slug {
			return t, nil
		}
	}
	return nil, tenant.ErrNotFound
}

func (r *InMemoryTenantRepository) Create(_ context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID()] = t
	return t, nil
}

func (r *InMemoryTenantRepository) Update(_ context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID()] = t
	return t, nil
}

func (r *InMemoryTenantRepository) List(_ context.Context) ([]*tenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*tenant.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, t)
	}
	return out, nil
}

// Directory adapts the in-memory repository to the resolver contract.
func (r *InMemoryTenantRepository) Directory() tenancy.Directory {
	return &inMemoryDirectory{repo: r}
}

type inMemoryDirectory struct {
	repo *InMemoryTenantRepository
}

func (d *inMemoryDirectory) GetBySlug(ctx context.Context, slug string) (tenancy.TenantInfo, error) {
	t, err := d.repo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return tenancy.TenantInfo{}, tenancy.ErrTenantNotFound
		}
		return tenancy.TenantInfo{}, err
	}
	if !t.IsActive() {
		return tenancy.TenantInfo{}, tenancy.ErrTenantNotFound
	}
	return tenancy.TenantInfo{ID: t.ID(), Name: t.Name(), Slug: t.Slug()}, nil
}

// InMemoryTokenRepository mirrors the compare-and-set semantics of the pgx
// refresh-token repository, so the rotation race behaves the same in tests.
type InMemoryTokenRepository struct {
	mu   sync.Mutex
	rows map[string]*storedToken
}

type storedToken struct {
	row            *token.RefreshToken
	revoked        bool
	revokedAt      *time.Time
	revokedByIP    string
	replacedByHash string
}

func NewInMemoryTokenRepository() *InMemoryTokenRepository {
	return &InMemoryTokenRepository{rows: map[string]*storedToken{}}
}

var _ token.Repository = (*InMemoryTokenRepository)(nil)

func (r *InMemoryTokenRepository) GetByHash(_ context.Context, hash string) (*token.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[hash]
	if !ok {
		return nil, token.ErrTokenNotFound
	}
	return r.materialize(stored), nil
}

func (r *InMemoryTokenRepository) Create(_ context.Context, row *token.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.TokenHash()] = &storedToken{row: row}
	return nil
}

func (r *InMemoryTokenRepository) Rotate(_ context.Context, oldHash string, successor *token.RefreshToken, revokedByIP string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[oldHash]
	if !ok {
		return token.ErrTokenNotFound
	}
	if stored.revoked {
		return token.ErrAlreadyRevoked
	}
	now := time.Now()
	stored.revoked = true
	stored.revokedAt = &now
	stored.revokedByIP = revokedByIP
	stored.replacedByHash = successor.TokenHash()
	r.rows[successor.TokenHash()] = &storedToken{row: successor}
	return nil
}

func (r *InMemoryTokenRepository) RevokeFamily(_ context.Context, userID, tenantID uuid.UUID, revokedByIP string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, stored := range r.rows {
		if stored.row.UserID() != userID || stored.row.TenantID() != tenantID || stored.revoked {
			continue
		}
		stored.revoked = true
		stored.revokedAt = &now
		stored.revokedByIP = revokedByIP
	}
	return nil
}

// ActiveCount reports how many of the user's tokens are not yet revoked.
func (r *InMemoryTokenRepository) ActiveCount(userID, tenantID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, stored := range r.rows {
		if stored.row.UserID() == userID && stored.row.TenantID() == tenantID && !stored.revoked {
			n++
		}
	}
	return n
}

// ReplacedBy returns the successor hash recorded when oldHash was rotated.
func (r *InMemoryTokenRepository) ReplacedBy(oldHash string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[oldHash]
	if !ok {
		return ""
	}
	return stored.replacedByHash
}

func (r *InMemoryTokenRepository) materialize(stored *storedToken) *token.RefreshToken {
	opts := []token.Option{
		token.WithID(stored.row.ID()),
		token.WithCreatedAt(stored.row.CreatedAt()),
		token.WithCreatedByIP(stored.row.CreatedByIP()),
		token.WithUserAgent(stored.row.UserAgent()),
	}
	if stored.revoked {
		opts = append(opts, token.WithRevoked(stored.revokedAt, stored.revokedByIP, stored.replacedByHash))
	}
	return token.New(
		stored.row.UserID(),
		stored.row.TenantID(),
		stored.row.TokenHash(),
		stored.row.ExpiresAt(),
		opts...,
	)
}

// InMemoryIdentityStore is a static identity collaborator for tests.
type InMemoryIdentityStore struct {
	mu         sync.RWMutex
	byEmail    map[string]*services.Identity
	passwords  map[string]string
	identities map[uuid.UUID]*services.Identity
}

func NewInMemoryIdentityStore() *InMemoryIdentityStore {
	return &InMemoryIdentityStore{
		byEmail:    map[string]*services.Identity{},
		passwords:  map[string]string{},
		identities: map[uuid.UUID]*services.Identity{},
	}
}

var _ services.IdentityStore = (*InMemoryIdentityStore)(nil)

func (s *InMemoryIdentityStore) Add(email, password string, identity *services.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	s.byEmail[email] = identity
	s.passwords[email] = password
	s.identities[identity.UserID] = identity
}

func (s *InMemoryIdentityStore) VerifyCredentials(_ context.Context, email, password string) (*services.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	identity, ok := s.byEmail[email]
	if !ok || s.passwords[email] != password {
		return nil, services.ErrInvalidCredentials
	}
	return identity, nil
}

func (s *InMemoryIdentityStore) MarkLoggedIn(_ context.Context, userID uuid.UUID) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.identities[userID]; !ok {
		return services.ErrInvalidCredentials
	}
	return nil
}

func (s *InMemoryIdentityStore) GetByID(_ context.Context, userID uuid.UUID) (*services.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[userID]
	if !ok {
		return nil, services.ErrInvalidCredentials
	}
	return identity, nil
}
