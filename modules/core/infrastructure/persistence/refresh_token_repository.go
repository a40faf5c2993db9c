package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veloxcrm/velox/modules/core/domain/entities/token"
	"github.com/veloxcrm/velox/modules/core/infrastructure/persistence/models"
	"github.com/veloxcrm/velox/pkg/composables"
)

const (
	refreshTokenFindQuery = `
		SELECT id, user_id, tenant_id, token_hash, expires_at, is_revoked,
		       revoked_at, revoked_by_ip, replaced_by_hash,
		       created_at, created_by_ip, user_agent
		FROM refresh_tokens`

	refreshTokenInsertQuery = `
		INSERT INTO refresh_tokens (
			id, user_id, tenant_id, token_hash, expires_at, is_revoked,
			revoked_at, revoked_by_ip, replaced_by_hash,
			created_at, created_by_ip, user_agent
		) VALUES ($1, $2, $3, $4, $5, false, NULL, NULL, NULL, $6, $7, $8)`
)

type RefreshTokenRepository struct{}

func NewRefreshTokenRepository() token.Repository {
	return &RefreshTokenRepository{}
}

func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*token.RefreshToken, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	var m models.RefreshToken
	err = tx.QueryRow(ctx, refreshTokenFindQuery+" WHERE token_hash = $1", tokenHash).Scan(
		&m.ID,
		&m.UserID,
		&m.TenantID,
		&m.TokenHash,
		&m.ExpiresAt,
		&m.IsRevoked,
		&m.RevokedAt,
		&m.RevokedByIP,
		&m.ReplacedByHash,
		&m.CreatedAt,
		&m.CreatedByIP,
		&m.UserAgent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, token.ErrTokenNotFound
		}
		return nil, errors.Wrap(err, "failed to query refresh token")
	}
	return toDomainRefreshToken(&m)
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *token.RefreshToken) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		ctx,
		refreshTokenInsertQuery,
		t.ID().String(),
		t.UserID().String(),
		t.TenantID().String(),
		t.TokenHash(),
		t.ExpiresAt(),
		t.CreatedAt(),
		nullable(t.CreatedByIP()),
		nullable(t.UserAgent()),
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert refresh token")
	}
	return nil
}

// Rotate revokes the presented row and inserts its successor in one
// transaction. The UPDATE is a compare-and-set on is_revoked: when a
// concurrent rotation already revoked the row, zero rows match and
// token.ErrAlreadyRevoked is returned with nothing written.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldHash string, successor *token.RefreshToken, revokedByIP string) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE refresh_tokens
			SET is_revoked = true, revoked_at = $1, revoked_by_ip = $2, replaced_by_hash = $3
			WHERE token_hash = $4 AND is_revoked = false
		`, time.Now(), nullable(revokedByIP), successor.TokenHash(), oldHash)
		if err != nil {
			return errors.Wrap(err, "failed to revoke refresh token")
		}
		if tag.RowsAffected() == 0 {
			return token.ErrAlreadyRevoked
		}

		_, err = tx.Exec(
			ctx,
			refreshTokenInsertQuery,
			successor.ID().String(),
			successor.UserID().String(),
			successor.TenantID().String(),
			successor.TokenHash(),
			successor.ExpiresAt(),
			successor.CreatedAt(),
			nullable(successor.CreatedByIP()),
			nullable(successor.UserAgent()),
		)
		if err != nil {
			return errors.Wrap(err, "failed to insert successor refresh token")
		}
		return nil
	})
}

func (r *RefreshTokenRepository) RevokeFamily(ctx context.Context, userID, tenantID uuid.UUID, revokedByIP string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE refresh_tokens
		SET is_revoked = true, revoked_at = $1, revoked_by_ip = $2
		WHERE user_id = $3 AND tenant_id = $4 AND is_revoked = false
	`, time.Now(), nullable(revokedByIP), userID.String(), tenantID.String())
	if err != nil {
		return errors.Wrap(err, "failed to revoke refresh token family")
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
