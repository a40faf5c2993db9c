package tenancy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory struct {
	mu      sync.Mutex
	tenants map[string]TenantInfo
	lookups int
}

func newStubDirectory(slugs ...string) *stubDirectory {
	d := &stubDirectory{tenants: map[string]TenantInfo{}}
	for _, slug := range slugs {
		d.tenants[slug] = TenantInfo{ID: uuid.New(), Name: slug, Slug: slug}
	}
	return d
}

func (d *stubDirectory) GetBySlug(_ context.Context, slug string) (TenantInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups++
	t, ok := d.tenants[slug]
	if !ok {
		return TenantInfo{}, ErrTenantNotFound
	}
	return t, nil
}

func TestHostResolver_SlugDerivation(t *testing.T) {
	dir := newStubDirectory("acme", "demo", "eu", "default")
	resolver := NewHostResolver(dir, "veloxcrm.app",
		WithDevSuffix(".localhost"),
		WithDefaultSlug("default"),
		WithDevelopmentMode(true),
	)
	ctx := context.Background()

	cases := []struct {
		name     string
		host     string
		resolved bool
		slug     string
	}{
		{"dev suffix", "demo.localhost", true, "demo"},
		{"dev suffix with port", "demo.localhost:3200", true, "demo"},
		{"multi-label dev suffix", "eu.demo.localhost", true, "eu"},
		{"subdomain of base", "acme.veloxcrm.app", true, "acme"},
		{"nested subdomain of base", "eu.acme.veloxcrm.app", true, "eu"},
		{"unrelated dotted host", "acme.example.com", true, "acme"},
		{"uppercase host", "ACME.VeloxCRM.app", true, "acme"},
		{"loopback falls back in dev", "localhost", true, "default"},
		{"ip literal falls back in dev", "127.0.0.1:8080", true, "default"},
		{"apex never resolves", "veloxcrm.app", false, ""},
		{"bare single label", "intranet", false, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := resolver.Resolve(ctx, tc.host)
			assert.Equal(t, tc.resolved, res.Resolved)
			if tc.resolved {
				assert.Equal(t, tc.slug, res.TenantSlug)
			} else {
				assert.Error(t, res.Err())
			}
		})
	}
}

func TestHostResolver_UnknownSlug(t *testing.T) {
	dir := newStubDirectory("acme")
	resolver := NewHostResolver(dir, "veloxcrm.app")

	res := resolver.Resolve(context.Background(), "ghost.veloxcrm.app")
	require.False(t, res.Resolved)
	assert.EqualError(t, res.Err(), "Tenant 'ghost' not found.")
}

type failingDirectory struct {
	err error
}

func (d *failingDirectory) GetBySlug(context.Context, string) (TenantInfo, error) {
	return TenantInfo{}, d.err
}

func TestHostResolver_DirectoryOutage(t *testing.T) {
	outage := errors.New("connection refused")
	resolver := NewHostResolver(&failingDirectory{err: outage}, "veloxcrm.app")

	res := resolver.Resolve(context.Background(), "acme.veloxcrm.app")
	require.False(t, res.Resolved)

	var dirErr *DirectoryError
	require.ErrorAs(t, res.Err(), &dirErr)
	assert.Equal(t, "acme", dirErr.Slug)
	assert.ErrorIs(t, res.Err(), outage)

	var notFound *NotFoundError
	assert.False(t, errors.As(res.Err(), &notFound), "an outage must not masquerade as a missing tenant")
	assert.NotContains(t, res.FailureReason, "not found")
}

func TestHostResolver_NoDevFallbackOutsideDevelopment(t *testing.T) {
	dir := newStubDirectory("default")
	resolver := NewHostResolver(dir, "veloxcrm.app",
		WithDefaultSlug("default"),
		WithDevelopmentMode(false),
	)

	res := resolver.Resolve(context.Background(), "localhost")
	assert.False(t, res.Resolved)
	assert.Zero(t, dir.lookups)
}

func TestHostResolver_ApexNeverFallsBack(t *testing.T) {
	dir := newStubDirectory("default")
	resolver := NewHostResolver(dir, "veloxcrm.app",
		WithDefaultSlug("default"),
		WithDevelopmentMode(true),
	)

	// The dev fallback applies to loopback hosts only, never to the apex.
	res := resolver.Resolve(context.Background(), "veloxcrm.app")
	assert.False(t, res.Resolved)
	assert.Zero(t, dir.lookups)
}

func TestHostResolver_EmptyHostUsesDefaultSlug(t *testing.T) {
	dir := newStubDirectory("default")
	resolver := NewHostResolver(dir, "veloxcrm.app",
		WithDefaultSlug("default"),
		WithDevelopmentMode(false),
	)

	res := resolver.Resolve(context.Background(), "")
	require.True(t, res.Resolved)
	assert.Equal(t, "default", res.TenantSlug)
}

func TestHolder_MemoizesResolution(t *testing.T) {
	dir := newStubDirectory("acme")
	resolver := NewHostResolver(dir, "veloxcrm.app")

	holder := NewHolder(func(ctx context.Context) Resolution {
		return resolver.Resolve(ctx, "acme.veloxcrm.app")
	})

	var wg sync.WaitGroup
	results := make([]Resolution, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = holder.Resolve(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, dir.lookups)
	for _, res := range results {
		assert.Equal(t, results[0], res)
	}
}

func TestNormalizeHost(t *testing.T) {
	assert.Equal(t, "acme.veloxcrm.app", NormalizeHost(" ACME.veloxcrm.app:443 "))
	assert.Equal(t, "localhost", NormalizeHost("localhost:3200"))
	assert.Equal(t, "", NormalizeHost("  "))
}
