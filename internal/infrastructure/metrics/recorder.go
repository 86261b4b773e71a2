// Package metrics exports matching, cache and provider metrics in
// Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "junction25"

// Recorder owns a private registry and the collectors registered on it.
// All methods are safe on a nil *Recorder, which records nothing.
type Recorder struct {
	registry *prometheus.Registry

	searchLatency    *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	providerCalls    *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	fallbackTriggers *prometheus.CounterVec
}

// NewRecorder creates a recorder with Go runtime and process collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,
		searchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "matching",
				Name:      "search_duration_seconds",
				Help:      "Similarity search and ranking latency in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"catalog"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Lookup cache reads by result",
			},
			[]string{"namespace", "result"},
		),
		providerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "calls_total",
				Help:      "Calls to external providers by outcome",
			},
			[]string{"provider", "operation", "status"},
		),
		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "call_duration_seconds",
				Help:      "External provider call latency in seconds, retries included",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"provider", "operation"},
		),
		fallbackTriggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "matching",
				Name:      "market_fallback_total",
				Help:      "Market fallback recommendations by trigger reason",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.searchLatency,
		r.cacheLookups,
		r.providerCalls,
		r.providerLatency,
		r.fallbackTriggers,
	)

	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveSearch records one search or ranking pass over catalog.
func (r *Recorder) ObserveSearch(catalog string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.searchLatency.WithLabelValues(catalog).Observe(elapsed.Seconds())
}

// CacheLookup counts a cache read.
func (r *Recorder) CacheLookup(namespace, result string) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues(namespace, result).Inc()
}

// FallbackTriggered counts a market fallback activation.
func (r *Recorder) FallbackTriggered(reason string) {
	if r == nil {
		return
	}
	r.fallbackTriggers.WithLabelValues(reason).Inc()
}

// ProviderCall records the outcome and latency of an external provider call.
func (r *Recorder) ProviderCall(provider, operation string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.providerCalls.WithLabelValues(provider, operation, status).Inc()
	r.providerLatency.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}
