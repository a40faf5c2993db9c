package persistence

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/veloxcrm/velox/modules/core/domain/entities/tenant"
	"github.com/veloxcrm/velox/modules/core/domain/entities/token"
	"github.com/veloxcrm/velox/modules/core/infrastructure/persistence/models"
)

func toDomainTenant(t *models.Tenant) *tenant.Tenant {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		id = uuid.Nil
	}

	var settings map[string]string
	if len(t.Settings) > 0 {
		// Malformed settings degrade to empty rather than failing lookups.
		_ = json.Unmarshal(t.Settings, &settings)
	}

	return tenant.New(
		t.Name,
		tenant.WithID(id),
		tenant.WithSlug(t.Slug),
		tenant.WithSettings(settings),
		tenant.WithIsActive(t.IsActive),
		tenant.WithCreatedAt(t.CreatedAt),
		tenant.WithUpdatedAt(t.UpdatedAt),
	)
}

func toDomainRefreshToken(m *models.RefreshToken) (*token.RefreshToken, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(m.UserID)
	if err != nil {
		return nil, err
	}
	tenantID, err := uuid.Parse(m.TenantID)
	if err != nil {
		return nil, err
	}

	opts := []token.Option{
		token.WithID(id),
		token.WithCreatedAt(m.CreatedAt),
		token.WithCreatedByIP(m.CreatedByIP.String),
		token.WithUserAgent(m.UserAgent.String),
	}
	if m.IsRevoked {
		var revokedAt *time.Time
		if m.RevokedAt.Valid {
			t := m.RevokedAt.Time
			revokedAt = &t
		}
		opts = append(opts, token.WithRevoked(revokedAt, m.RevokedByIP.String, m.ReplacedByHash.String))
	}

	return token.New(userID, tenantID, m.TokenHash, m.ExpiresAt, opts...), nil
}
