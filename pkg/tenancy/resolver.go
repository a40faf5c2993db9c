package tenancy

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
)

// HostResolver derives a tenant slug from a request host name and looks it
// up in the Directory. It never default-allows: a host that yields no slug
// produces an unresolved outcome unless the development fallback applies.
type HostResolver struct {
	directory Directory

	baseDomain  string
	devSuffix   string
	defaultSlug string
	development bool
}

type ResolverOption func(*HostResolver)

func WithDevSuffix(suffix string) ResolverOption {
	return func(r *HostResolver) {
		r.devSuffix = strings.ToLower(suffix)
	}
}

func WithDefaultSlug(slug string) ResolverOption {
	return func(r *HostResolver) {
		r.defaultSlug = strings.ToLower(slug)
	}
}

func WithDevelopmentMode(enabled bool) ResolverOption {
	return func(r *HostResolver) {
		r.development = enabled
	}
}

func NewHostResolver(directory Directory, baseDomain string, opts ...ResolverOption) *HostResolver {
	r := &HostResolver{
		directory:  directory,
		baseDomain: strings.ToLower(strings.TrimSpace(baseDomain)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps a raw request host to a Resolution. An empty host means there
// is no request context (background job); the configured default slug is
// used there regardless of environment.
func (r *HostResolver) Resolve(ctx context.Context, rawHost string) Resolution {
	host := NormalizeHost(rawHost)
	if host == "" {
		if r.defaultSlug == "" {
			return Unresolved("no request host and no default tenant configured")
		}
		return r.lookup(ctx, r.defaultSlug)
	}

	slug, reason := r.slugFromHost(host)
	if slug == "" {
		if r.development && r.defaultSlug != "" && reason == reasonLoopback {
			return r.lookup(ctx, r.defaultSlug)
		}
		return Unresolved(reason)
	}
	return r.lookup(ctx, slug)
}

const (
	reasonLoopback = "host is not tenant-scoped"
	reasonApex     = "apex domain is not tenant-scoped"
	reasonNoSlug   = "no tenant slug could be derived from host"
)

// slugFromHost applies the derivation rules in order: dev suffix, apex base
// domain, subdomain of base domain, then first label of any dotted host.
func (r *HostResolver) slugFromHost(host string) (slug, reason string) {
	if isLoopback(host) {
		return "", reasonLoopback
	}
	if r.devSuffix != "" && strings.HasSuffix(host, r.devSuffix) {
		remainder := strings.TrimSuffix(host, r.devSuffix)
		if remainder == "" {
			return "", reasonNoSlug
		}
		return firstLabel(remainder), ""
	}
	if host == r.baseDomain {
		return "", reasonApex
	}
	if strings.HasSuffix(host, "."+r.baseDomain) {
		remainder := strings.TrimSuffix(host, "."+r.baseDomain)
		return firstLabel(remainder), ""
	}
	if strings.Contains(host, ".") {
		return firstLabel(host), ""
	}
	return "", reasonNoSlug
}

func (r *HostResolver) lookup(ctx context.Context, slug string) Resolution {
	t, err := r.directory.GetBySlug(ctx, slug)
	switch {
	case err == nil:
		return Resolved(t)
	case errors.Is(err, ErrTenantNotFound):
		res := Unresolved("")
		res.TenantSlug = slug
		res.FailureReason = (&NotFoundError{Slug: slug}).Error()
		return res
	default:
		return LookupFailed(slug, err)
	}
}

func firstLabel(host string) string {
	if i := strings.IndexByte(host, '.'); i >= 0 {
		return host[:i]
	}
	return host
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		return true
	}
	return false
}

// NormalizeHost lower-cases the host and strips any port.
func NormalizeHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	raw = strings.ToLower(raw)
	if h, _, err := net.SplitHostPort(raw); err == nil {
		return strings.ToLower(strings.TrimSpace(h))
	}
	return raw
}

// Holder caches one Resolution for the lifetime of a request. All callers in
// the request observe the identical outcome, no matter how many times
// resolution is triggered.
type Holder struct {
	once sync.Once
	fn   func(context.Context) Resolution
	res  Resolution
}

func NewHolder(fn func(context.Context) Resolution) *Holder {
	return &Holder{fn: fn}
}

// Resolve returns the cached resolution, computing it on first call.
func (h *Holder) Resolve(ctx context.Context) Resolution {
	h.once.Do(func() {
		h.res = h.fn(ctx)
	})
	return h.res
}
