package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrTenantNotFound is what Directory implementations return when no active
// tenant matches the slug. Any other lookup error means the directory itself
// failed and the tenant's existence is unknown.
var ErrTenantNotFound = errors.New("tenant not found")

// TenantInfo is the directory's view of a tenant. The full tenant entity
// lives in modules/core; resolution only needs identity fields.
type TenantInfo struct {
	ID   uuid.UUID
	Name string
	Slug string
}

// Directory is a point-lookup of tenant slug to tenant identity, backed by
// the tenants table.
type Directory interface {
	GetBySlug(ctx context.Context, slug string) (TenantInfo, error)
}

// Resolution is the per-request outcome of tenant resolution. It is created
// once, cached on the request, and immutable afterwards.
type Resolution struct {
	TenantID      uuid.UUID
	TenantName    string
	TenantSlug    string
	Resolved      bool
	FailureReason string

	lookupErr error
}

func Resolved(t TenantInfo) Resolution {
	return Resolution{
		TenantID:   t.ID,
		TenantName: t.Name,
		TenantSlug: t.Slug,
		Resolved:   true,
	}
}

func Unresolved(reason string) Resolution {
	return Resolution{FailureReason: reason}
}

// LookupFailed marks a resolution where the directory lookup itself errored.
// It must not be conflated with a missing tenant.
func LookupFailed(slug string, err error) Resolution {
	return Resolution{
		TenantSlug:    slug,
		FailureReason: "tenant directory lookup failed",
		lookupErr:     &DirectoryError{Slug: slug, Err: err},
	}
}

// Err converts a failed resolution into its typed error. Returns nil for a
// resolved outcome.
func (r Resolution) Err() error {
	if r.Resolved {
		return nil
	}
	if r.lookupErr != nil {
		return r.lookupErr
	}
	if r.TenantSlug != "" {
		return &NotFoundError{Slug: r.TenantSlug}
	}
	return &UnresolvedError{Reason: r.FailureReason}
}

// UnresolvedError means no tenant slug could be derived from the request.
type UnresolvedError struct {
	Reason string
}

func (e *UnresolvedError) Error() string {
	return e.Reason
}

// NotFoundError means the slug was well-formed but no tenant matches it.
type NotFoundError struct {
	Slug string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Tenant '%s' not found.", e.Slug)
}

// DirectoryError means the directory lookup failed before the tenant's
// existence could be determined.
type DirectoryError struct {
	Slug string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("tenant directory lookup for '%s' failed: %v", e.Slug, e.Err)
}

func (e *DirectoryError) Unwrap() error {
	return e.Err
}
