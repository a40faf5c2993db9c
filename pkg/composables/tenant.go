package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/veloxcrm/velox/pkg/constants"
	"github.com/veloxcrm/velox/pkg/tenancy"
)

var ErrNoTenant = errors.New("no tenant in context")

// WithTenancy attaches the per-request resolution holder. The middleware
// creates one holder per request; every later accessor shares it, so all
// queries in the request observe a single tenant id.
func WithTenancy(ctx context.Context, holder *tenancy.Holder) context.Context {
	return context.WithValue(ctx, constants.TenancyKey, holder)
}

// UseTenancy returns the request's tenant resolution, triggering it on first
// use. The second return value is false when no holder is attached (e.g.
// background jobs that use WithTenantID directly).
func UseTenancy(ctx context.Context) (tenancy.Resolution, bool) {
	holder, ok := ctx.Value(constants.TenancyKey).(*tenancy.Holder)
	if !ok {
		return tenancy.Resolution{}, false
	}
	return holder.Resolve(ctx), true
}

// WithTenantID pins an explicit tenant id on the context. Used by seeding,
// background jobs and tests, where there is no request host to resolve.
func WithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.TenantIDKey, tenantID)
}

// UseTenantID returns the current tenant id. It never returns a zero id:
// when resolution failed the typed resolution error is returned instead, so
// tenant-scoped queries cannot silently run unscoped.
func UseTenantID(ctx context.Context) (uuid.UUID, error) {
	if id, ok := ctx.Value(constants.TenantIDKey).(uuid.UUID); ok && id != uuid.Nil {
		return id, nil
	}
	res, ok := UseTenancy(ctx)
	if !ok {
		return uuid.Nil, ErrNoTenant
	}
	if !res.Resolved {
		return uuid.Nil, res.Err()
	}
	return res.TenantID, nil
}

// UseTenantSlug returns the resolved tenant slug, or "" when the request has
// no resolved tenant.
func UseTenantSlug(ctx context.Context) string {
	res, ok := UseTenancy(ctx)
	if !ok || !res.Resolved {
		return ""
	}
	return res.TenantSlug
}
