package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/veloxcrm/velox/pkg/composables"
	"github.com/veloxcrm/velox/pkg/metrics"
)

// CacheStore is the backing store for cached responses. Get returns
// false for both missing and expired entries.
type CacheStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool)
	Set(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration)
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
}

type memoryCacheEntry struct {
	resp      *CachedResponse
	expiresAt time.Time
}

// MemoryCacheStore keeps entries in-process. Expired entries are
// dropped lazily on read.
type MemoryCacheStore struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
}

func NewMemoryCacheStore() *MemoryCacheStore {
	return &MemoryCacheStore{entries: map[string]memoryCacheEntry{}}
}

func (s *MemoryCacheStore) Get(_ context.Context, key string) (*CachedResponse, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false
	}
	return entry.resp, true
}

func (s *MemoryCacheStore) Set(_ context.Context, key string, resp *CachedResponse, ttl time.Duration) {
	s.mu.Lock()
	s.entries[key] = memoryCacheEntry{resp: resp, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
}

// RedisCacheStore shares cached responses across instances. Store
// errors degrade to cache misses rather than failing the request.
type RedisCacheStore struct {
	client *redis.Client
}

func NewRedisCacheStore(client *redis.Client) *RedisCacheStore {
	return &RedisCacheStore{client: client}
}

func (s *RedisCacheStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var resp CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (s *RedisCacheStore) Set(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	s.client.Set(ctx, key, raw, ttl)
}

// CachePolicy declares how one operation's responses may be cached.
// VaryParams lists the query parameters that participate in the key;
// any other parameter is ignored for keying purposes.
type CachePolicy struct {
	TTL        time.Duration
	VaryParams []string
}

// CacheRegistry maps named routes to their cache policy. Like the
// permission registry it is written only during route registration.
type CacheRegistry struct {
	byOperation map[string]CachePolicy
}

func NewCacheRegistry() *CacheRegistry {
	return &CacheRegistry{byOperation: map[string]CachePolicy{}}
}

func (reg *CacheRegistry) Cacheable(operation string, policy CachePolicy) {
	reg.byOperation[operation] = policy
}

func (reg *CacheRegistry) Policy(operation string) (CachePolicy, bool) {
	policy, ok := reg.byOperation[operation]
	return policy, ok
}

// cacheKey scopes every entry to the resolved tenant slug so tenants
// can never observe each other's responses. Every variable component is
// query-escaped so crafted values cannot collide with the separators.
func cacheKey(slug string, r *http.Request, policy CachePolicy) string {
	var b strings.Builder
	b.WriteString("respcache:")
	b.WriteString(url.QueryEscape(slug))
	b.WriteString(":")
	b.WriteString(url.QueryEscape(r.URL.Path))
	query := r.URL.Query()
	for _, param := range policy.VaryParams {
		values := query[param]
		escaped := make([]string, len(values))
		for i, v := range values {
			escaped[i] = url.QueryEscape(v)
		}
		b.WriteString(":")
		b.WriteString(param)
		b.WriteString("=")
		b.WriteString(strings.Join(escaped, ","))
	}
	return b.String()
}

type cacheRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (w *cacheRecorder) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// ResponseCache serves declared GET operations from the store. Only
// requests with a resolved tenant participate; everything else passes
// straight through, and only 200 responses are stored.
func ResponseCache(reg *CacheRegistry, store CacheStore, defaultTTL time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			route := mux.CurrentRoute(r)
			if route == nil {
				next.ServeHTTP(w, r)
				return
			}
			policy, ok := reg.Policy(route.GetName())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			slug := composables.UseTenantSlug(r.Context())
			if slug == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := cacheKey(slug, r, policy)
			if cached, hit := store.Get(r.Context(), key); hit {
				metrics.ResponseCacheHits.Inc()
				for name, values := range cached.Header {
					// Headers already set for this request, like the
					// request id, keep their fresh values.
					if _, exists := w.Header()[name]; exists {
						continue
					}
					for _, v := range values {
						w.Header().Add(name, v)
					}
				}
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(cached.StatusCode)
				_, _ = w.Write(cached.Body)
				return
			}
			metrics.ResponseCacheMisses.Inc()

			recorder := &cacheRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)

			if recorder.statusCode != http.StatusOK {
				return
			}
			ttl := policy.TTL
			if ttl <= 0 {
				ttl = defaultTTL
			}
			store.Set(r.Context(), key, &CachedResponse{
				StatusCode: recorder.statusCode,
				Header:     recorder.Header().Clone(),
				Body:       recorder.body.Bytes(),
			}, ttl)
		})
	}
}
