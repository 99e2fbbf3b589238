package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrapped_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wrapped_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Business metrics
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrapped_analyses_total",
			Help: "Total number of analysis requests by outcome",
		},
		[]string{"outcome"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wrapped_analysis_duration_seconds",
			Help:    "Time spent fetching and analyzing a user's history",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrapped_cache_lookups_total",
			Help: "Total number of result cache lookups",
		},
		[]string{"result"},
	)

	// Reddit API metrics
	RedditRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrapped_reddit_requests_total",
			Help: "Total number of requests made to the Reddit API",
		},
		[]string{"endpoint", "status_code"},
	)

	// Application health metrics
	ApplicationInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wrapped_application_info",
			Help: "Application information",
		},
		[]string{"name", "version"},
	)
)

// Init sets metrics with static values
func Init(name, version string) {
	ApplicationInfo.WithLabelValues(name, version).Set(1)
}
