package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector exposes dispatch counters without forcing metrics on every
// caller: a nil *Collector is a valid no-op receiver.
type Collector struct {
	requestsTotal    *prometheus.CounterVec
	rateLimitedTotal *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// NewCollector registers the client metrics on reg. Pass
// prometheus.DefaultRegisterer to use the process-wide registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keyauth",
			Name:      "requests_total",
			Help:      "Dispatched API requests by operation and outcome.",
		}, []string{"operation", "success"}),
		rateLimitedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keyauth",
			Name:      "rate_limited_total",
			Help:      "Admissions rejected by the client-side rate limiter.",
		}, []string{"operation"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "keyauth",
			Name:      "request_duration_seconds",
			Help:      "Wall-clock duration of outbound API calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (c *Collector) ObserveRequest(operation string, success bool, duration time.Duration) {
	if c == nil {
		return
	}
	outcome := "false"
	if success {
		outcome = "true"
	}
	c.requestsTotal.WithLabelValues(operation, outcome).Inc()
	c.requestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) IncRateLimited(operation string) {
	if c == nil {
		return
	}
	c.rateLimitedTotal.WithLabelValues(operation).Inc()
}
