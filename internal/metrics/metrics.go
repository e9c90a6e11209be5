// Package metrics exposes Prometheus counters for the proxy request path.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all registered proxy metrics. A nil *Metrics is valid and
// records nothing, so callers never have to branch on metrics being enabled.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
}

// New creates a collector with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aiproxy",
				Name:      "requests_total",
				Help:      "Total number of proxy requests processed",
			},
			[]string{"endpoint", "provider", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "aiproxy",
				Name:      "request_duration_seconds",
				Help:      "Duration of proxy requests in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"endpoint", "provider"},
		),
		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aiproxy",
				Name:      "tokens_total",
				Help:      "Total number of tokens processed",
			},
			[]string{"provider", "type"},
		),
	}

	registry.MustRegister(m.requestsTotal, m.requestDuration, m.tokensTotal)

	return m
}

// RecordRequest records one completed request. status is the HTTP status code
// as a string; provider may be empty when routing failed before selection.
func (m *Metrics) RecordRequest(endpoint, provider, status string, duration time.Duration) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "none"
	}
	m.requestsTotal.WithLabelValues(endpoint, provider, status).Inc()
	m.requestDuration.WithLabelValues(endpoint, provider).Observe(duration.Seconds())
}

// RecordTokens records prompt and completion token counts for a request.
func (m *Metrics) RecordTokens(provider string, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	if promptTokens > 0 {
		m.tokensTotal.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.tokensTotal.WithLabelValues(provider, "completion").Add(float64(completionTokens))
	}
}

// Handler returns the scrape endpoint for this collector's registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
