// ABOUTME: Prometheus collectors for token cache and HTTP behavior
// ABOUTME: Registered via promauto on the default registry, served at /metrics

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TokenCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portalbff_token_cache_hits_total",
		Help: "B2B token cache hits by audience",
	}, []string{"audience"})

	TokenCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portalbff_token_cache_misses_total",
		Help: "B2B token cache misses (expired or absent) by audience",
	}, []string{"audience"})

	TokenAcquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portalbff_token_acquisitions_total",
		Help: "Client-credentials token acquisitions by audience and outcome",
	}, []string{"audience", "outcome"})

	DownstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portalbff_downstream_request_duration_seconds",
		Help:    "Time spent calling downstream resource APIs",
		Buckets: prometheus.ExponentialBuckets(0.005, 2.0, 12), // 5ms to ~10s
	}, []string{"audience", "status"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portalbff_http_requests_total",
		Help: "Inbound HTTP requests by method, path, and status",
	}, []string{"method", "path", "status"})

	AuthRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portalbff_auth_rejections_total",
		Help: "Requests rejected by the identity or role gate",
	}, []string{"reason"})
)
