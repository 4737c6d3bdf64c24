// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "harvest"

// Metrics holds the Prometheus collectors shared by the pipeline stages.
// All Record methods are safe on a nil *Metrics, which lets tests and the
// CLI run components without a registry.
type Metrics struct {
	ProviderRequests  *prometheus.CounterVec
	ProviderFailures  *prometheus.CounterVec
	ProviderDuration  *prometheus.HistogramVec
	RecordsReturned   *prometheus.CounterVec
	DuplicatesDropped prometheus.Counter

	EnrichAttempts *prometheus.CounterVec
	EnrichFilled   *prometheus.CounterVec

	SentimentVerdicts  *prometheus.CounterVec
	SentimentCacheHits prometheus.Counter
	SentimentCacheMiss prometheus.Counter

	LLMRequests *prometheus.CounterVec
	LLMFailures *prometheus.CounterVec
	LLMDuration *prometheus.HistogramVec

	StoreOperations *prometheus.CounterVec
	StoreErrors     *prometheus.CounterVec
}

// NewMetrics creates all collectors and registers them on reg. Passing a
// fresh prometheus.NewRegistry() keeps tests isolated from each other.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProviderRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "provider_requests_total",
			Help:      "Search calls issued per provider",
		}, []string{"source"}),
		ProviderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "provider_failures_total",
			Help:      "Search calls that contributed nothing because of an error",
		}, []string{"source"}),
		ProviderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "provider_duration_seconds",
			Help:      "Duration of search calls per provider",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"source"}),
		RecordsReturned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_returned_total",
			Help:      "Records returned per provider before deduplication",
		}, []string{"source"}),
		DuplicatesDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "duplicates_dropped_total",
			Help:      "Records discarded by deduplication",
		}),
		EnrichAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "enrich_attempts_total",
			Help:      "Body lookups per enrichment adapter",
		}, []string{"enricher"}),
		EnrichFilled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "enrich_filled_total",
			Help:      "Bodies found per enrichment adapter",
		}, []string{"enricher"}),
		SentimentVerdicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sentiment_verdicts_total",
			Help:      "Sentiment verdicts by strategy and label",
		}, []string{"strategy", "label"}),
		SentimentCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sentiment_cache_hits_total",
			Help:      "Sentiment lookups answered from the verdict cache",
		}),
		SentimentCacheMiss: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sentiment_cache_misses_total",
			Help:      "Sentiment lookups that required analysis",
		}),
		LLMRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "llm_requests_total",
			Help:      "Completion requests per LLM provider",
		}, []string{"provider"}),
		LLMFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "llm_failures_total",
			Help:      "Failed completion requests per LLM provider",
		}, []string{"provider"}),
		LLMDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "llm_duration_seconds",
			Help:      "Duration of completion requests",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
		StoreOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "store_operations_total",
			Help:      "Persistence operations by name",
		}, []string{"op"}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "store_errors_total",
			Help:      "Persistence errors by operation and class",
		}, []string{"op", "class"}),
	}
}

// RecordProviderCall records one search call and its outcome.
func (m *Metrics) RecordProviderCall(source string, records int, seconds float64, failed bool) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(source).Inc()
	m.ProviderDuration.WithLabelValues(source).Observe(seconds)
	m.RecordsReturned.WithLabelValues(source).Add(float64(records))
	if failed {
		m.ProviderFailures.WithLabelValues(source).Inc()
	}
}

// RecordDuplicates adds n to the dropped-duplicate counter.
func (m *Metrics) RecordDuplicates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DuplicatesDropped.Add(float64(n))
}

// RecordEnrichAttempt records one adapter lookup.
func (m *Metrics) RecordEnrichAttempt(enricher string, filled bool) {
	if m == nil {
		return
	}
	m.EnrichAttempts.WithLabelValues(enricher).Inc()
	if filled {
		m.EnrichFilled.WithLabelValues(enricher).Inc()
	}
}

// RecordVerdict records a produced sentiment verdict.
func (m *Metrics) RecordVerdict(strategy, label string) {
	if m == nil {
		return
	}
	m.SentimentVerdicts.WithLabelValues(strategy, label).Inc()
}

// RecordCacheLookup records a verdict cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.SentimentCacheHits.Inc()
		return
	}
	m.SentimentCacheMiss.Inc()
}

// RecordLLMCall records one completion request.
func (m *Metrics) RecordLLMCall(provider string, seconds float64, failed bool) {
	if m == nil {
		return
	}
	m.LLMRequests.WithLabelValues(provider).Inc()
	m.LLMDuration.WithLabelValues(provider).Observe(seconds)
	if failed {
		m.LLMFailures.WithLabelValues(provider).Inc()
	}
}

// RecordStoreOp records a persistence operation; class is empty on success.
func (m *Metrics) RecordStoreOp(op, class string) {
	if m == nil {
		return
	}
	m.StoreOperations.WithLabelValues(op).Inc()
	if class != "" {
		m.StoreErrors.WithLabelValues(op, class).Inc()
	}
}
