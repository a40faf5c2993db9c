package tenancy

import (
	"strings"

	"github.com/google/uuid"
)

// ClaimsError means an authenticated identity carried no usable tenant
// claim. This fails closed: post-authentication flows must not fall back to
// host parsing.
type ClaimsError struct {
	Reason string
}

func (e *ClaimsError) Error() string {
	return "tenant claim invalid: " + e.Reason
}

// ResolveFromClaims derives the tenant purely from verified identity claims.
// Used after authentication, where the token is authoritative for which
// tenant the identity belongs to.
func ResolveFromClaims(tenantClaim, slugClaim, nameClaim string) (Resolution, error) {
	raw := strings.TrimSpace(tenantClaim)
	if raw == "" {
		return Resolution{}, &ClaimsError{Reason: "missing 'tenant' claim"}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return Resolution{}, &ClaimsError{Reason: "'tenant' claim is not a UUID"}
	}
	if id == uuid.Nil {
		return Resolution{}, &ClaimsError{Reason: "'tenant' claim is the zero UUID"}
	}
	return Resolved(TenantInfo{
		ID:   id,
		Slug: strings.TrimSpace(slugClaim),
		Name: strings.TrimSpace(nameClaim),
	}), nil
}
