package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TokenRotations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "velox_refresh_token_rotations_total",
		Help: "Successful refresh token rotations.",
	})
	TokenReuseDetections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "velox_refresh_token_reuse_detections_total",
		Help: "Refresh attempts with an already-revoked token (possible theft).",
	})
	PermissionDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "velox_permission_denials_total",
		Help: "Requests denied by the permission interceptor.",
	}, []string{"permission"})
	ResponseCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "velox_response_cache_hits_total",
		Help: "GET responses served from the tenant-scoped cache.",
	})
	ResponseCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "velox_response_cache_misses_total",
		Help: "Cacheable GET requests that missed the tenant-scoped cache.",
	})
	TenantResolutionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "velox_tenant_resolution_failures_total",
		Help: "Requests whose host or claims did not resolve to a tenant.",
	})
)
