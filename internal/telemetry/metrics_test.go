package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func testMetrics() *Metrics {
	// Hand-built with a throwaway registry so repeated tests don't collide
	// with promauto's default registration.
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_relay_request_total",
			Help: "Test counter",
		}, []string{"route", "status"}),
		RequestDurationMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "test_relay_request_duration_ms",
			Help:    "Test histogram",
			Buckets: []float64{100, 500, 1000},
		}, []string{"provider"}),
		TokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_relay_tokens_total",
			Help: "Test counter",
		}, []string{"model"}),
		RateLimitHitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "test_relay_rate_limit_hit_total",
			Help: "Test counter",
		}),
		UpstreamErrorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "test_relay_upstream_error_total",
			Help: "Test counter",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.RequestTotal, m.RequestDurationMs, m.TokensTotal, m.RateLimitHitTotal, m.UpstreamErrorTotal)
	return m
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return *metric.Counter.Value
}

func TestRecordRequest(t *testing.T) {
	m := testMetrics()

	m.RecordRequest(RequestLabels{
		Route:      "/askAi",
		Status:     "200",
		Provider:   "openai",
		Model:      "gpt-4o-mini",
		DurationMs: 150,
		Tokens:     20,
	})

	counter, err := m.RequestTotal.GetMetricWithLabelValues("/askAi", "200")
	if err != nil {
		t.Fatalf("get metric: %v", err)
	}
	if v := counterValue(t, counter); v != 1 {
		t.Errorf("request count = %v, want 1", v)
	}

	tokens, _ := m.TokensTotal.GetMetricWithLabelValues("gpt-4o-mini")
	if v := counterValue(t, tokens); v != 20 {
		t.Errorf("tokens = %v, want 20", v)
	}
}

func TestRecordRequest_NoProviderNoTokens(t *testing.T) {
	m := testMetrics()

	// A 400 recorded before any provider call has neither provider nor tokens.
	m.RecordRequest(RequestLabels{Route: "/askAi", Status: "400"})

	counter, err := m.RequestTotal.GetMetricWithLabelValues("/askAi", "400")
	if err != nil {
		t.Fatalf("get metric: %v", err)
	}
	if v := counterValue(t, counter); v != 1 {
		t.Errorf("request count = %v, want 1", v)
	}
}

func TestRecordRateLimitHit(t *testing.T) {
	m := testMetrics()
	m.RecordRateLimitHit()
	m.RecordRateLimitHit()

	if v := counterValue(t, m.RateLimitHitTotal); v != 2 {
		t.Errorf("rate limit hits = %v, want 2", v)
	}
}

func TestRecordUpstreamError(t *testing.T) {
	m := testMetrics()
	m.RecordUpstreamError("timeout")

	counter, _ := m.UpstreamErrorTotal.GetMetricWithLabelValues("timeout")
	if v := counterValue(t, counter); v != 1 {
		t.Errorf("upstream errors = %v, want 1", v)
	}
}
