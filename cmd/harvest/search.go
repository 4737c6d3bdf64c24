// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/harvest/internal/enrich"
	"github.com/pdiddy/harvest/internal/export"
	"github.com/pdiddy/harvest/internal/search"
	"github.com/pdiddy/harvest/pkg/types"
)

const formatTable = "table"

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search academic APIs and export the results",
	Long: `Search queries the configured providers (scopus, openalex, semantic_scholar,
arxiv, crossref, scholar, wos, kap) for works matching the query. In merge
mode every provider runs concurrently and results are deduplicated; in first
mode providers run in priority order until one returns results.

Missing abstracts can be filled from secondary sources with --enrich, and
records can be tagged with a sentiment verdict with --sentiment.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("mode", "", "combination mode: first or merge (default from config)")
	searchCmd.Flags().Int("max", 0, "maximum number of results (default from config)")
	searchCmd.Flags().Int("year-min", 0, "earliest publication year")
	searchCmd.Flags().Int("year-max", 0, "latest publication year")
	searchCmd.Flags().StringSlice("providers", nil, "providers in priority order (default from config)")
	searchCmd.Flags().Bool("enrich", false, "fill missing abstracts from secondary sources")
	searchCmd.Flags().Bool("sentiment", false, "tag records with a sentiment verdict")
	searchCmd.Flags().String("format", formatTable, "output format: table, json, csv, markdown, bibtex, ris, csl")
	searchCmd.Flags().StringP("output", "o", "", "write output to this file instead of stdout")
	searchCmd.Flags().String("save", "", "save the query and results to a YAML query file")
	searchCmd.Flags().Bool("store", false, "persist the results to the configured store")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	q := search.Query{Text: strings.Join(args, " "), MaxResults: a.cfg.Search.MaxResults}
	if n, _ := cmd.Flags().GetInt("max"); n > 0 {
		q.MaxResults = n
	}
	q.YearMin, _ = cmd.Flags().GetInt("year-min")
	q.YearMax, _ = cmd.Flags().GetInt("year-max")
	names, _ := cmd.Flags().GetStringSlice("providers")
	doEnrich, _ := cmd.Flags().GetBool("enrich")
	doSentiment, _ := cmd.Flags().GetBool("sentiment")
	doStore, _ := cmd.Flags().GetBool("store")
	formatName, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	savePath, _ := cmd.Flags().GetString("save")

	// Reject a bad format before any network call.
	format, err := parseOutputFormat(formatName)
	if err != nil {
		return err
	}

	agg, providers, err := a.aggregator(names)
	if err != nil {
		return err
	}
	mode := a.cfg.Search.Mode
	if m, _ := cmd.Flags().GetString("mode"); m != "" {
		mode = types.SearchMode(m)
	}
	rs, err := agg.Search(ctx, q, mode)
	if err != nil {
		return err
	}

	if doEnrich {
		o, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		var stats enrich.Stats
		rs, stats = o.Enrich(ctx, rs)
		a.log.Info().Int("attempted", stats.Attempted).Int("filled", stats.Filled).Msg("enrichment finished")
	}

	var opts export.Options
	if doSentiment {
		opts.Verdicts = a.tagger().TagAll(ctx, rs)
		a.log.Info().Int("tagged", len(opts.Verdicts)).Msg("sentiment finished")
	}

	if savePath != "" {
		if err := search.WriteQueryFile(savePath, search.NewQueryFile(q, mode, providers, doEnrich, rs)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved query file: %s\n", savePath)
	}

	if doStore {
		st, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		n, err := st.UpsertArticles(ctx, rs)
		if err != nil {
			return fmt.Errorf("storing results: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Stored %d article(s)\n", n)
	}

	return writeOutput(cmd.OutOrStdout(), output, rs, formatName, format, opts)
}

// parseOutputFormat accepts "table" in addition to the export formats.
func parseOutputFormat(name string) (export.Format, error) {
	if name == "" || name == formatTable {
		return "", nil
	}
	return export.ParseFormat(name)
}

// writeOutput renders rs to stdout, or atomically to path when set.
func writeOutput(stdout io.Writer, path string, rs types.ResultSet, formatName string, format export.Format, opts export.Options) error {
	if format == "" {
		w, closeFn, err := outputWriter(path)
		if err != nil {
			return err
		}
		if path == "" {
			w = stdout
		}
		if err := search.FormatTable(rs, w); err != nil {
			closeFn()
			return err
		}
		return closeFn()
	}
	if path != "" {
		if err := export.WriteFile(path, rs, format, opts); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Wrote %d record(s) as %s to %s\n", len(rs.Records), formatName, path)
		return nil
	}
	return export.Write(stdout, rs, format, opts)
}
