package dtos

import (
	"time"

	"github.com/veloxcrm/velox/modules/core/domain/entities/principal"
	"github.com/veloxcrm/velox/modules/core/domain/entities/tenant"
)

type TenantResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Slug      string            `json:"slug"`
	Settings  map[string]string `json:"settings"`
	IsActive  bool              `json:"is_active"`
	CreatedAt time.Time         `json:"created_at"`
}

func NewTenantResponse(t *tenant.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:        t.ID().String(),
		Name:      t.Name(),
		Slug:      t.Slug(),
		Settings:  t.Settings(),
		IsActive:  t.IsActive(),
		CreatedAt: t.CreatedAt(),
	}
}

type PrincipalResponse struct {
	UserID     string   `json:"user_id"`
	UserName   string   `json:"user_name"`
	TenantID   string   `json:"tenant_id"`
	TenantSlug string   `json:"tenant_slug"`
	Roles      []string `json:"roles"`
}

func NewPrincipalResponse(p *principal.Principal) *PrincipalResponse {
	return &PrincipalResponse{
		UserID:     p.UserID().String(),
		UserName:   p.UserName(),
		TenantID:   p.TenantID().String(),
		TenantSlug: p.TenantSlug(),
		Roles:      p.Roles(),
	}
}

type UpdateSettingsDTO struct {
	Settings map[string]string `json:"settings" validate:"required"`
}

func (d *UpdateSettingsDTO) Ok() (map[string]string, bool) {
	return validateStruct(d)
}
