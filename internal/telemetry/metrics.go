package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the relay.
type Metrics struct {
	RequestTotal       *prometheus.CounterVec
	RequestDurationMs  *prometheus.HistogramVec
	TokensTotal        *prometheus.CounterVec
	RateLimitHitTotal  prometheus.Counter
	UpstreamErrorTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_request_total",
			Help: "Total number of requests processed by the relay.",
		}, []string{"route", "status"}),

		RequestDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_request_duration_ms",
			Help:    "Total request duration in milliseconds (including provider latency).",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"provider"}),

		TokensTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_tokens_total",
			Help: "Total tokens reported by the provider.",
		}, []string{"model"}),

		RateLimitHitTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relay_rate_limit_hit_total",
			Help: "Total requests rejected by the local rate limiter.",
		}),

		UpstreamErrorTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_upstream_error_total",
			Help: "Total provider call failures by kind.",
		}, []string{"kind"}),
	}
}

// RequestLabels holds the label values for recording a completed request.
type RequestLabels struct {
	Route      string
	Status     string
	Provider   string
	Model      string
	DurationMs float64
	Tokens     int
}

// RecordRequest records metrics for a completed request.
func (m *Metrics) RecordRequest(labels RequestLabels) {
	m.RequestTotal.WithLabelValues(labels.Route, labels.Status).Inc()

	if labels.Provider != "" {
		m.RequestDurationMs.WithLabelValues(labels.Provider).Observe(labels.DurationMs)
	}

	if labels.Tokens > 0 {
		m.TokensTotal.WithLabelValues(labels.Model).Add(float64(labels.Tokens))
	}
}

// RecordRateLimitHit records a request rejected by the local limiter.
func (m *Metrics) RecordRateLimitHit() {
	m.RateLimitHitTotal.Inc()
}

// RecordUpstreamError records a provider call failure.
func (m *Metrics) RecordUpstreamError(kind string) {
	m.UpstreamErrorTotal.WithLabelValues(kind).Inc()
}
