package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors exported by the service.
type Metrics struct {
	SearchCacheHits   prometheus.Counter
	SearchCacheMisses prometheus.Counter
	UpstreamRequests  *prometheus.CounterVec
	UpstreamLatency   *prometheus.HistogramVec
	TokenRefreshes    prometheus.Counter
	BookingsCreated   prometheus.Counter
	BookingsCancelled prometheus.Counter
	StatusRefreshRuns *prometheus.CounterVec
	StatusRefreshed   prometheus.Counter
	ErrorsCount       *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
}

// NewMetrics registers all collectors on reg.  Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests, since
// registering the same names twice panics.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SearchCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_hits_total",
			Help:      "Flight searches answered from the result cache",
		}),
		SearchCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_misses_total",
			Help:      "Flight searches that went to the upstream API",
		}),
		UpstreamRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests issued to the upstream flight API",
		}, []string{"path", "outcome"}),
		UpstreamLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of upstream flight API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
		TokenRefreshes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_token_refreshes_total",
			Help:      "Client-credentials token exchanges performed",
		}),
		BookingsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings persisted",
		}),
		BookingsCancelled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_cancelled_total",
			Help:      "Bookings moved to the cancelled state",
		}),
		StatusRefreshRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_refresh_runs_total",
			Help:      "Executions of the flight status refresh job by result",
		}, []string{"result"}),
		StatusRefreshed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_trackers_refreshed_total",
			Help:      "Trackers updated by the status refresh job",
		}),
		ErrorsCount: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served",
		}, []string{"method", "route", "code"}),
	}
}

// NewNop registers the collectors on a private registry so tests can build
// as many instances as they like.
func NewNop() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}
