// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the harvest CLI: academic search
// across several bibliographic APIs, KAP disclosure scraping, sentiment
// tagging, export and persistence.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/harvest/internal/observability"
	"github.com/pdiddy/harvest/internal/secrets"
	"github.com/pdiddy/harvest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the secret stored
// under key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets[key]
}

var rootCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Academic search, KAP disclosure scraping and sentiment tagging",
	Long: `harvest searches bibliographic APIs (Scopus, OpenAlex, Semantic Scholar,
arXiv, CrossRef, Google Scholar, Web of Science), fills missing abstracts,
deduplicates and exports the results. It also scrapes public-company
disclosures from KAP.org.tr and tags them with a sentiment verdict.

Results can be exported as JSON, CSV, Markdown, BibTeX, RIS or CSL-YAML and
persisted to SQLite or PostgreSQL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log := observability.NewLogger(types.DefaultConfig().Logging, cmd.ErrOrStderr())
		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir, log)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			log.Debug().Strs("keys", secrets.Names(s)).Msg("secrets loaded")
		}
		if unknown := secrets.Unknown(s); len(unknown) > 0 {
			log.Warn().Strs("keys", unknown).Str("dir", dir).Msg("ignoring unrecognized secret files")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./harvest.yaml or ~/.config/harvest/harvest.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of secret files (one key per file)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("harvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "harvest"))
		}
	}

	viper.SetEnvPrefix("HARVEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
