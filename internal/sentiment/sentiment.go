// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sentiment classifies disclosure and abstract text into a
// SentimentVerdict, either by counting financial keywords or by delegating
// to an LLM. Verdicts are cached per (source identifier, text prefix) for
// the life of the Tagger.
package sentiment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pdiddy/harvest/internal/llm"
	"github.com/pdiddy/harvest/internal/observability"
	"github.com/pdiddy/harvest/pkg/types"
)

const (
	defaultCachePrefix  = 2000
	defaultMaxTextRunes = 8000
)

// CacheStats reports verdict cache usage.
type CacheStats struct {
	Hits   int
	Misses int
	Size   int
}

// Tagger produces verdicts with the configured strategy. It is safe for
// concurrent use.
type Tagger struct {
	cfg     types.SentimentConfig
	llm     llm.Client
	log     zerolog.Logger
	Metrics *observability.Metrics

	mu     sync.Mutex
	cache  map[string]types.SentimentVerdict
	hits   int
	misses int
}

// New returns a Tagger. client may be nil when the strategy is keyword; a
// delegated Tagger without a client behaves as if every call failed.
func New(cfg types.SentimentConfig, client llm.Client, log zerolog.Logger) *Tagger {
	if cfg.Strategy == "" {
		cfg.Strategy = types.StrategyKeyword
	}
	if cfg.CachePrefix <= 0 {
		cfg.CachePrefix = defaultCachePrefix
	}
	if cfg.MaxTextRunes <= 0 {
		cfg.MaxTextRunes = defaultMaxTextRunes
	}
	return &Tagger{
		cfg:   cfg,
		llm:   client,
		log:   log,
		cache: make(map[string]types.SentimentVerdict),
	}
}

// Tag classifies text. ok is false when the text is blank, or when delegated
// analysis produced nothing and keyword fallback is disabled.
func (t *Tagger) Tag(ctx context.Context, sourceID, text string) (types.SentimentVerdict, bool) {
	if strings.TrimSpace(text) == "" {
		return types.SentimentVerdict{}, false
	}
	key := CacheKey(sourceID, text, t.cfg.CachePrefix)
	if v, ok := t.lookup(key); ok {
		return v, true
	}

	v, fallback, ok := t.analyze(ctx, sourceID, text)
	if !ok {
		return types.SentimentVerdict{}, false
	}
	t.Metrics.RecordVerdict(string(v.Strategy), string(v.Label))

	// A fallback verdict stands in for a failed delegated call; the next
	// Tag retries the LLM.
	if !fallback {
		t.mu.Lock()
		t.cache[key] = v
		t.mu.Unlock()
	}
	return v, true
}

// TagAll tags every record with a body and returns verdicts keyed by record
// identifier. Records without an identifier are keyed by title.
func (t *Tagger) TagAll(ctx context.Context, rs types.ResultSet) map[string]types.SentimentVerdict {
	out := make(map[string]types.SentimentVerdict, len(rs.Records))
	for _, r := range rs.Records {
		if ctx.Err() != nil {
			break
		}
		id := r.Identifier
		if id == "" {
			id = r.Title
		}
		if v, ok := t.Tag(ctx, id, r.Body); ok {
			out[id] = v
		}
	}
	return out
}

// Stats returns a snapshot of cache usage.
func (t *Tagger) Stats() CacheStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return CacheStats{Hits: t.hits, Misses: t.misses, Size: len(t.cache)}
}

func (t *Tagger) lookup(key string) (types.SentimentVerdict, bool) {
	t.mu.Lock()
	v, ok := t.cache[key]
	if ok {
		t.hits++
	} else {
		t.misses++
	}
	t.mu.Unlock()
	t.Metrics.RecordCacheLookup(ok)
	return v, ok
}

// analyze runs the configured strategy. fallback is true when a delegated
// Tagger answered with the keyword strategy instead.
func (t *Tagger) analyze(ctx context.Context, sourceID, text string) (v types.SentimentVerdict, fallback, ok bool) {
	if t.cfg.Strategy != types.StrategyDelegated {
		return Keyword(text), false, true
	}
	if v, ok := t.delegate(ctx, text); ok {
		return v, false, true
	}
	if t.cfg.FallbackToKeyword {
		t.log.Info().Str("source_id", sourceID).Msg("delegated analysis unavailable, using keyword strategy")
		return Keyword(text), true, true
	}
	t.log.Warn().Str("source_id", sourceID).Msg("analysis unavailable")
	return types.SentimentVerdict{}, false, false
}

func (t *Tagger) delegate(ctx context.Context, text string) (types.SentimentVerdict, bool) {
	if t.llm == nil {
		return types.SentimentVerdict{}, false
	}
	prompt, err := renderPrompt(truncateRunes(text, t.cfg.MaxTextRunes))
	if err != nil {
		t.log.Error().Err(err).Msg("rendering sentiment prompt")
		return types.SentimentVerdict{}, false
	}
	reply, err := t.llm.Complete(ctx, llm.Request{System: systemPrompt, Prompt: prompt, JSON: true})
	if err != nil {
		t.log.Warn().Err(err).Str("provider", t.llm.Name()).Msg("llm call failed")
		return types.SentimentVerdict{}, false
	}
	v, ok := ParseReply(reply)
	if !ok {
		t.log.Warn().Str("provider", t.llm.Name()).Msg("unparseable llm reply")
	}
	return v, ok
}

// CacheKey hashes sourceID and the first prefix runes of text.
func CacheKey(sourceID, text string, prefix int) string {
	h := sha256.New()
	h.Write([]byte(sourceID))
	h.Write([]byte{0})
	h.Write([]byte(truncateRunes(text, prefix)))
	return hex.EncodeToString(h.Sum(nil))
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
