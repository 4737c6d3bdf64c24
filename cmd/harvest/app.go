// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/harvest/internal/convert"
	"github.com/pdiddy/harvest/internal/enrich"
	"github.com/pdiddy/harvest/internal/httputil"
	"github.com/pdiddy/harvest/internal/kap"
	"github.com/pdiddy/harvest/internal/llm"
	"github.com/pdiddy/harvest/internal/observability"
	"github.com/pdiddy/harvest/internal/search"
	"github.com/pdiddy/harvest/internal/secrets"
	"github.com/pdiddy/harvest/internal/sentiment"
	"github.com/pdiddy/harvest/internal/store"
	"github.com/pdiddy/harvest/pkg/types"
)

// loadConfig layers the config file and HARVEST_* environment over the
// defaults, then fills credentials from .secrets/ where still empty.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing configuration: %w", err)
	}
	applySecrets(&cfg)
	return cfg, nil
}

func applySecrets(cfg *types.Config) {
	s := &cfg.Search
	s.SemanticScholarAPIKey = secretDefault(secrets.SemanticScholarAPIKey, s.SemanticScholarAPIKey)
	s.ScopusAPIKey = secretDefault(secrets.ScopusAPIKey, s.ScopusAPIKey)
	s.WOSAPIKey = secretDefault(secrets.WOSAPIKey, s.WOSAPIKey)
	s.OpenAlexEmail = secretDefault(secrets.OpenAlexEmail, s.OpenAlexEmail)
	s.ScholarProxyURL = secretDefault(secrets.ScholarProxyURL, s.ScholarProxyURL)
	s.ScholarProxyKey = secretDefault(secrets.ScholarProxyKey, s.ScholarProxyKey)

	ai := &cfg.Sentiment.AI
	switch ai.Provider {
	case types.LLMGemini:
		ai.APIKey = secretDefault(secrets.GeminiAPIKey, ai.APIKey)
	case types.LLMClaude:
		ai.APIKey = secretDefault(secrets.AnthropicAPIKey, ai.APIKey)
	case types.LLMOpenAI, "":
		ai.APIKey = secretDefault(secrets.OpenAIAPIKey, ai.APIKey)
	}

	if cfg.Store.Driver == types.DriverPostgres {
		cfg.Store.DSN = secretDefault(secrets.DatabaseURL, cfg.Store.DSN)
	}
}

// app holds the shared components one command invocation needs.
type app struct {
	cfg      types.Config
	log      zerolog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if f, _ := cmd.Flags().GetString("log-format"); f != "" {
		cfg.Logging.Format = f
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &app{
		cfg:      cfg,
		log:      observability.NewLogger(cfg.Logging, cmd.ErrOrStderr()),
		registry: reg,
		metrics:  observability.NewMetrics(reg),
	}, nil
}

func (a *app) kapClient() *kap.Client {
	return kap.NewClient(a.cfg.KAP, nil)
}

// aggregator builds the named providers, falling back to the configured
// list. "kap" selects the disclosure provider.
func (a *app) aggregator(names []string) (*search.Aggregator, []search.Provider, error) {
	if len(names) == 0 {
		names = a.cfg.Search.Providers
	}
	providers, err := search.Build(names, a.cfg.Search, httputil.NewClient(a.cfg.Search.HTTPConfig),
		kap.NewProvider(a.kapClient(), a.cfg.KAP))
	if err != nil {
		return nil, nil, err
	}
	return &search.Aggregator{
		Providers: providers,
		Workers:   a.cfg.Search.Workers,
		Log:       observability.WithSource(a.log, "search"),
		Metrics:   a.metrics,
	}, providers, nil
}

// converter is optional; without one, KAP attachments stay unread.
func (a *app) converter(ctx context.Context) convert.Converter {
	if !a.cfg.KAP.FetchAttachments {
		return nil
	}
	c, err := convert.New(ctx, a.cfg.Conversion)
	if err != nil {
		a.log.Warn().Err(err).Msg("PDF conversion unavailable; attachments will be skipped")
		return nil
	}
	return c
}

func (a *app) detailEnricher(ctx context.Context) *kap.DetailEnricher {
	return kap.NewDetailEnricher(a.kapClient(), a.cfg.KAP, a.converter(ctx), observability.WithSource(a.log, "kap"))
}

func (a *app) orchestrator(ctx context.Context) (*enrich.Orchestrator, error) {
	enrichers, err := enrich.Build(a.cfg.Enrich.Enrichers, a.cfg.Search, httputil.NewClient(a.cfg.Search.HTTPConfig),
		observability.WithSource(a.log, "enrich"), a.detailEnricher(ctx))
	if err != nil {
		return nil, err
	}
	return &enrich.Orchestrator{
		Enrichers: enrichers,
		Parallel:  a.cfg.Enrich.Parallel,
		Workers:   a.cfg.Enrich.Workers,
		Log:       observability.WithSource(a.log, "enrich"),
		Metrics:   a.metrics,
	}, nil
}

// tagger builds the sentiment tagger. A delegated strategy whose LLM
// client cannot be built degrades to keyword analysis with a warning.
func (a *app) tagger() *sentiment.Tagger {
	cfg := a.cfg.Sentiment
	var client llm.Client
	if cfg.Strategy == types.StrategyDelegated {
		hc := httputil.NewClient(types.HTTPConfig{Timeout: cfg.AI.Timeout})
		c, err := llm.New(cfg.AI, hc, a.metrics)
		if err != nil {
			a.log.Warn().Err(err).Msg("LLM client unavailable; using keyword sentiment")
			cfg.Strategy = types.StrategyKeyword
		} else {
			client = c
		}
	}
	t := sentiment.New(cfg, client, observability.WithSource(a.log, "sentiment"))
	t.Metrics = a.metrics
	return t
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, a.cfg.Store, observability.WithSource(a.log, "store"), a.metrics)
}

// outputWriter returns stdout or a created file and its closer.
func outputWriter(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}
