// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/harvest/pkg/types"
)

var sentimentCmd = &cobra.Command{
	Use:   "sentiment [file]",
	Short: "Classify the sentiment of a text",
	Long: `Sentiment reads text from a file, or from stdin when no file is given, and
prints a sentiment verdict as JSON. The strategy (keyword or delegated) comes
from the configuration unless --strategy overrides it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSentiment,
}

func init() {
	sentimentCmd.Flags().String("strategy", "", "keyword or delegated (default from config)")
	sentimentCmd.Flags().String("id", "", "source identifier used for caching")

	rootCmd.AddCommand(sentimentCmd)
}

func runSentiment(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if s, _ := cmd.Flags().GetString("strategy"); s != "" {
		switch st := types.SentimentStrategy(strings.ToLower(s)); st {
		case types.StrategyKeyword, types.StrategyDelegated:
			a.cfg.Sentiment.Strategy = st
		default:
			return fmt.Errorf("unknown sentiment strategy %q", s)
		}
	}

	var in io.Reader = cmd.InOrStdin()
	id := "stdin"
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in, id = f, args[0]
	}
	if flagID, _ := cmd.Flags().GetString("id"); flagID != "" {
		id = flagID
	}
	text, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if strings.TrimSpace(string(text)) == "" {
		return fmt.Errorf("input is empty")
	}

	v, ok := a.tagger().Tag(cmd.Context(), id, string(text))
	if !ok {
		return fmt.Errorf("no verdict could be produced")
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
