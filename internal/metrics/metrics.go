package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recall_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	MemoriesWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recall_memories_written_total",
			Help: "Total number of memories successfully written.",
		},
	)

	DuplicatesDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_duplicates_detected_total",
			Help: "Total number of similarity links created during writes, by relation.",
		},
		[]string{"relation"},
	)

	RateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter, by endpoint.",
		},
		[]string{"endpoint"},
	)

	SearchCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recall_search_cache_hits_total",
			Help: "Total number of search requests served from cache.",
		},
	)

	SearchCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recall_search_cache_misses_total",
			Help: "Total number of search requests that missed the cache.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		MemoriesWrittenTotal,
		DuplicatesDetectedTotal,
		RateLimitRejectionsTotal,
		SearchCacheHitsTotal,
		SearchCacheMissesTotal,
	)
}
