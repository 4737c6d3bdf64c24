// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// The filename is the key and the trimmed file contents are the value, so
// a key can be rotated by rewriting one file.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Key files harvest reads.
const (
	SemanticScholarAPIKey = "semantic-scholar-api-key"
	ScopusAPIKey          = "scopus-api-key"
	WOSAPIKey             = "wos-api-key"
	OpenAlexEmail         = "openalex-email"
	ScholarProxyURL       = "scholar-proxy-url"
	ScholarProxyKey       = "scholar-proxy-key"
	OpenAIAPIKey          = "openai-api-key"
	GeminiAPIKey          = "gemini-api-key"
	AnthropicAPIKey       = "anthropic-api-key"
	DatabaseURL           = "database-url"
)

// KnownKeys lists every key file harvest reads.
var KnownKeys = []string{
	SemanticScholarAPIKey, ScopusAPIKey, WOSAPIKey, OpenAlexEmail,
	ScholarProxyURL, ScholarProxyKey,
	OpenAIAPIKey, GeminiAPIKey, AnthropicAPIKey,
	DatabaseURL,
}

// Load reads every regular, non-hidden file in dir. A missing directory
// yields an empty map. Unreadable and empty files are skipped; the former
// are logged.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("key", name).Msg("could not read secret")
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}

// Names returns the keys of s, sorted. Values are never listed.
func Names(s map[string]string) []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Unknown returns the sorted keys of s that harvest never reads, which
// usually means a misspelled filename.
func Unknown(s map[string]string) []string {
	var out []string
	for _, k := range Names(s) {
		if !slices.Contains(KnownKeys, k) {
			out = append(out, k)
		}
	}
	return out
}
