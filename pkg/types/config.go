// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds every single outbound call (default 20s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "harvest/0.1 (mailto:you@example.org)").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// RequestsPerSecond paces paginated requests against one source (default 2).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// SearchMode selects how the aggregator combines providers.
type SearchMode string

const (
	ModeFirstSuccess SearchMode = "first"
	ModeMergeAll     SearchMode = "merge"
)

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the maximum number of records to return (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// Mode is first (first non-empty provider wins) or merge (default).
	Mode SearchMode `json:"mode" yaml:"mode" mapstructure:"mode"`

	// Workers bounds concurrent provider calls in merge mode (default 5).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// Providers lists provider names in priority order.
	Providers []string `json:"providers" yaml:"providers" mapstructure:"providers"`

	// OpenAlexEmail is sent as mailto for the OpenAlex polite pool.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// ScopusAPIKey is required by the Scopus provider.
	ScopusAPIKey string `json:"scopus_api_key,omitempty" yaml:"scopus_api_key,omitempty" mapstructure:"scopus_api_key"`

	// WOSAPIKey is required by the Web of Science Starter provider.
	WOSAPIKey string `json:"wos_api_key,omitempty" yaml:"wos_api_key,omitempty" mapstructure:"wos_api_key"`

	// ScholarProxyURL is the scraping proxy endpoint used for Google Scholar.
	ScholarProxyURL string `json:"scholar_proxy_url,omitempty" yaml:"scholar_proxy_url,omitempty" mapstructure:"scholar_proxy_url"`

	// ScholarProxyKey authenticates against ScholarProxyURL.
	ScholarProxyKey string `json:"scholar_proxy_key,omitempty" yaml:"scholar_proxy_key,omitempty" mapstructure:"scholar_proxy_key"`
}

// EnrichConfig holds settings for the enrichment stage.
type EnrichConfig struct {
	// Enrichers lists enrichment adapters in the order they are tried.
	Enrichers []string `json:"enrichers" yaml:"enrichers" mapstructure:"enrichers"`

	// Parallel enables the bounded worker pool.
	Parallel bool `json:"parallel" yaml:"parallel" mapstructure:"parallel"`

	// Workers bounds concurrent records being enriched (default 5).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// LLMProvider names a delegated-analysis backend.
type LLMProvider string

const (
	LLMOpenAI LLMProvider = "openai"
	LLMGemini LLMProvider = "gemini"
	LLMClaude LLMProvider = "claude"
	LLMLocal  LLMProvider = "local"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Provider selects the API: openai, gemini, claude or local.
	Provider LLMProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the AI model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint (required for local).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxRetries is the number of retry attempts on HTTP 429 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Timeout bounds one completion call (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// SentimentConfig holds settings for the sentiment tagger.
type SentimentConfig struct {
	AI AIConfig `json:"ai" yaml:"ai" mapstructure:"ai"`

	// Strategy is keyword (default) or delegated.
	Strategy SentimentStrategy `json:"strategy" yaml:"strategy" mapstructure:"strategy"`

	// FallbackToKeyword makes a failed delegated analysis fall back to the
	// keyword strategy instead of reporting no verdict.
	FallbackToKeyword bool `json:"fallback_to_keyword" yaml:"fallback_to_keyword" mapstructure:"fallback_to_keyword"`

	// CachePrefix is the number of leading runes of text hashed into the
	// cache key (default 2000).
	CachePrefix int `json:"cache_prefix" yaml:"cache_prefix" mapstructure:"cache_prefix"`

	// MaxTextRunes truncates text sent to the LLM (default 8000).
	MaxTextRunes int `json:"max_text_runes" yaml:"max_text_runes" mapstructure:"max_text_runes"`
}

// KAPConfig holds settings for the KAP disclosure scraper.
type KAPConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the KAP site root (default https://www.kap.org.tr).
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// LookbackDays is the default query window when no dates are given (default 1).
	LookbackDays int `json:"lookback_days" yaml:"lookback_days" mapstructure:"lookback_days"`

	// FetchAttachments enables PDF attachment extraction when a disclosure
	// page carries no inline text.
	FetchAttachments bool `json:"fetch_attachments" yaml:"fetch_attachments" mapstructure:"fetch_attachments"`

	// AttachmentDir is where downloaded attachments are kept.
	AttachmentDir string `json:"attachment_dir" yaml:"attachment_dir" mapstructure:"attachment_dir"`
}

// ConversionBackend identifies the PDF text extraction tool.
type ConversionBackend string

const (
	BackendPdftotext ConversionBackend = "pdftotext"
	BackendContainer ConversionBackend = "container"
)

// ConversionConfig holds settings for PDF text extraction.
type ConversionConfig struct {
	// Backend selects pdftotext on PATH or pdftotext inside a container image.
	Backend ConversionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Image is the container image used by the container backend.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// Runtime is docker, podman or auto (default).
	Runtime string `json:"runtime" yaml:"runtime" mapstructure:"runtime"`

	// PullImage pulls Image when it is missing locally.
	PullImage bool `json:"pull_image" yaml:"pull_image" mapstructure:"pull_image"`

	// Memory caps each extraction container, e.g. "256m".
	Memory string `json:"memory,omitempty" yaml:"memory,omitempty" mapstructure:"memory"`
}

// StoreDriver selects the persistence backend.
type StoreDriver string

const (
	DriverSQLite   StoreDriver = "sqlite"
	DriverPostgres StoreDriver = "postgres"
)

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Driver is sqlite (default) or postgres.
	Driver StoreDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DSN is the SQLite file path or the PostgreSQL connection string.
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`

	// MaxConns caps the PostgreSQL pool (default 5).
	MaxConns int32 `json:"max_conns" yaml:"max_conns" mapstructure:"max_conns"`

	// AcquireTimeout bounds waiting for a pooled connection (default 5s).
	AcquireTimeout time.Duration `json:"acquire_timeout" yaml:"acquire_timeout" mapstructure:"acquire_timeout"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is trace, debug, info, warn or error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console (default console).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Address         string        `json:"address" yaml:"address" mapstructure:"address"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// Config groups all stage configurations.
type Config struct {
	Search     SearchConfig     `json:"search" yaml:"search" mapstructure:"search"`
	Enrich     EnrichConfig     `json:"enrich" yaml:"enrich" mapstructure:"enrich"`
	Sentiment  SentimentConfig  `json:"sentiment" yaml:"sentiment" mapstructure:"sentiment"`
	KAP        KAPConfig        `json:"kap" yaml:"kap" mapstructure:"kap"`
	Conversion ConversionConfig `json:"conversion" yaml:"conversion" mapstructure:"conversion"`
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging" mapstructure:"logging"`
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
}

// DefaultConfig returns the configuration used when no file or flag
// overrides a value.
func DefaultConfig() Config {
	httpCfg := HTTPConfig{
		Timeout:           20 * time.Second,
		UserAgent:         "harvest/0.1",
		RequestsPerSecond: 2,
	}
	return Config{
		Search: SearchConfig{
			HTTPConfig: httpCfg,
			MaxResults: 20,
			Mode:       ModeMergeAll,
			Workers:    5,
			Providers:  []string{"openalex", "semantic_scholar", "crossref", "arxiv"},
		},
		Enrich: EnrichConfig{
			Enrichers: []string{"semantic_scholar", "openalex", "crossref", "kap_detail"},
			Parallel:  true,
			Workers:   5,
		},
		Sentiment: SentimentConfig{
			AI: AIConfig{
				Provider:   LLMOpenAI,
				Model:      "gpt-4o-mini",
				MaxRetries: 3,
				Timeout:    60 * time.Second,
			},
			Strategy:          StrategyKeyword,
			FallbackToKeyword: true,
			CachePrefix:       2000,
			MaxTextRunes:      8000,
		},
		KAP: KAPConfig{
			HTTPConfig:    httpCfg,
			BaseURL:       "https://www.kap.org.tr",
			LookbackDays:  1,
			AttachmentDir: "data/attachments",
		},
		Conversion: ConversionConfig{
			Backend: BackendPdftotext,
			Image:   "minidocks/poppler:latest",
			Runtime: "auto",
		},
		Store: StoreConfig{
			Driver:         DriverSQLite,
			DSN:            "data/harvest.db",
			MaxConns:       5,
			AcquireTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}
