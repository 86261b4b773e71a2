package usecase

import "time"

// Metrics receives usecase-level measurements. The Prometheus recorder in
// infrastructure/metrics implements it.
type Metrics interface {
	ObserveSearch(catalog string, elapsed time.Duration)
	CacheLookup(namespace, result string)
	FallbackTriggered(reason string)
}

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

type nopMetrics struct{}

func (nopMetrics) ObserveSearch(string, time.Duration) {}
func (nopMetrics) CacheLookup(string, string)          {}
func (nopMetrics) FallbackTriggered(string)            {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
