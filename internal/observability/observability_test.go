// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/harvest/pkg/types"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewLogger_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(types.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	log.Info().Msg("hidden")
	srcLog := WithSource(log, "openalex")
	srcLog.Warn().Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "openalex", entry["source"])
	assert.Equal(t, "warn", entry["level"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordProviderCall("x", 1, 0.1, true)
	m.RecordDuplicates(2)
	m.RecordEnrichAttempt("x", true)
	m.RecordVerdict("keyword", "neutral")
	m.RecordCacheLookup(true)
	m.RecordLLMCall("openai", 1, false)
	m.RecordStoreOp("upsert", "unavailable")
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordProviderCall("crossref", 3, 0.2, false)
	m.RecordProviderCall("crossref", 0, 0.1, true)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProviderRequests.WithLabelValues("crossref")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderFailures.WithLabelValues("crossref")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsReturned.WithLabelValues("crossref")))

	m.RecordDuplicates(4)
	m.RecordDuplicates(0)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.DuplicatesDropped))

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SentimentCacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SentimentCacheMiss))

	m.RecordStoreOp("upsert_disclosure", "")
	m.RecordStoreOp("upsert_disclosure", "unavailable")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoreOperations.WithLabelValues("upsert_disclosure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrors.WithLabelValues("upsert_disclosure", "unavailable")))
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}
