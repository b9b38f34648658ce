package profileapi

import (
	"time"

	"github.com/c360studio/semstreams/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// apiMetrics holds Prometheus metrics for profile-api requests.
type apiMetrics struct {
	requestsTotal   *prometheus.CounterVec   // By endpoint and status code class
	requestDuration *prometheus.HistogramVec // By endpoint
	lookupErrors    *prometheus.CounterVec   // By endpoint
}

// newAPIMetrics creates and registers profile-api metrics with the provided registry.
func newAPIMetrics(registry *metric.MetricsRegistry) (*apiMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &apiMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semprofile",
			Subsystem: "profile_api",
			Name:      "requests_total",
			Help:      "Total number of profile API requests",
		}, []string{"endpoint", "status"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "semprofile",
			Subsystem: "profile_api",
			Name:      "request_duration_seconds",
			Help:      "Profile API request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"endpoint"}),

		lookupErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semprofile",
			Subsystem: "profile_api",
			Name:      "lookup_errors_total",
			Help:      "Total number of store lookups that failed while rendering",
		}, []string{"endpoint"}),
	}

	if err := registry.RegisterCounterVec("profile_api", "requests_total", m.requestsTotal); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec("profile_api", "request_duration_seconds", m.requestDuration); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("profile_api", "lookup_errors_total", m.lookupErrors); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *apiMetrics) recordRequest(endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(endpoint, statusClass(status)).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *apiMetrics) recordLookupError(endpoint string) {
	if m == nil {
		return
	}
	m.lookupErrors.WithLabelValues(endpoint).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
