package persistence

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/veloxcrm/velox/modules/core/infrastructure/persistence/models"
	"github.com/veloxcrm/velox/modules/core/services"
	"github.com/veloxcrm/velox/pkg/composables"
)

const (
	userFindQuery = `
		SELECT id, tenant_id, email, display_name, password_hash, roles, permissions, last_login_at, created_at, updated_at
		FROM users`
	userInsertQuery = `
		INSERT INTO users (id, tenant_id, email, display_name, password_hash, roles, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`
)

// UserIdentityStore is the pgx-backed identity collaborator. Both unknown
// emails and wrong passwords return ErrInvalidCredentials so login cannot
// be used to probe which accounts exist.
type UserIdentityStore struct{}

func NewUserIdentityStore() *UserIdentityStore {
	return &UserIdentityStore{}
}

var _ services.IdentityStore = (*UserIdentityStore)(nil)

func (s *UserIdentityStore) VerifyCredentials(ctx context.Context, email, password string) (*services.Identity, error) {
	row, err := s.queryUser(ctx, userFindQuery+" WHERE lower(email) = $1", strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Burn a comparison anyway so the timing matches the
			// wrong-password path.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$000000000000000000000uGyyRROTKDO1wBBVGRR2tOeJgyPBW1MW"), []byte(password))
			return nil, services.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return nil, services.ErrInvalidCredentials
	}
	return toIdentity(row)
}

func (s *UserIdentityStore) GetByID(ctx context.Context, userID uuid.UUID) (*services.Identity, error) {
	row, err := s.queryUser(ctx, userFindQuery+" WHERE id = $1", userID.String())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, services.ErrInvalidCredentials
		}
		return nil, err
	}
	return toIdentity(row)
}

// Create inserts a user with a freshly computed bcrypt hash. Used by
// seeding; there is no self-service signup surface.
func (s *UserIdentityStore) Create(ctx context.Context, tenantID uuid.UUID, email, displayName, password string, roles []string) (uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "failed to hash password")
	}
	id := uuid.New()
	if _, err := tx.Exec(
		ctx,
		userInsertQuery,
		id.String(),
		tenantID.String(),
		strings.ToLower(strings.TrimSpace(email)),
		displayName,
		string(hash),
		roles,
		[]string{},
	); err != nil {
		return uuid.Nil, errors.Wrap(err, "failed to insert user")
	}
	return id, nil
}

// MarkLoggedIn records the last successful login time.
func (s *UserIdentityStore) MarkLoggedIn(ctx context.Context, userID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE users SET last_login_at = now(), updated_at = now() WHERE id = $1`, userID.String()); err != nil {
		return errors.Wrap(err, "failed to update last login")
	}
	return nil
}

func (s *UserIdentityStore) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var m models.User
	if err := tx.QueryRow(ctx, query, args...).Scan(
		&m.ID,
		&m.TenantID,
		&m.Email,
		&m.DisplayName,
		&m.PasswordHash,
		&m.Roles,
		&m.Permissions,
		&m.LastLoginAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func toIdentity(m *models.User) (*services.Identity, error) {
	userID, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid user id")
	}
	tenantID, err := uuid.Parse(m.TenantID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid tenant id")
	}
	return &services.Identity{
		UserID:      userID,
		DisplayName: m.DisplayName,
		TenantID:    tenantID,
		Roles:       m.Roles,
		Permissions: m.Permissions,
	}, nil
}
