// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/harvest/internal/export"
	"github.com/pdiddy/harvest/internal/kap"
	"github.com/pdiddy/harvest/internal/observability"
	"github.com/pdiddy/harvest/pkg/types"
)

var kapCmd = &cobra.Command{
	Use:   "kap",
	Short: "Scrape KAP disclosures, tag their sentiment and store them",
	Long: `KAP lists disclosures published on KAP.org.tr in a date window, fetches each
disclosure page (and, if enabled, its PDF attachments), tags the text with a
sentiment verdict and upserts disclosures and verdicts into the store.

Without --from and --to the window covers the last --days days.`,
	RunE: runKAP,
}

func init() {
	kapCmd.Flags().Int("days", 0, "look back this many days (default from config)")
	kapCmd.Flags().String("from", "", "window start (YYYY-MM-DD, Istanbul time)")
	kapCmd.Flags().String("to", "", "window end (YYYY-MM-DD, Istanbul time)")
	kapCmd.Flags().String("class", "", "disclosure class: ODA, FR, DG or DUY")
	kapCmd.Flags().Bool("details", true, "fetch each disclosure page")
	kapCmd.Flags().Bool("sentiment", true, "tag disclosures with a sentiment verdict")
	kapCmd.Flags().Bool("store", true, "persist disclosures and verdicts")
	kapCmd.Flags().Int("workers", kap.DefaultWorkers, "concurrent disclosures")
	kapCmd.Flags().String("format", formatTable, "output format: table, json, csv, markdown, bibtex, ris, csl")
	kapCmd.Flags().StringP("output", "o", "", "write output to this file instead of stdout")

	rootCmd.AddCommand(kapCmd)
}

func runKAP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	formatName, _ := cmd.Flags().GetString("format")
	format, err := parseOutputFormat(formatName)
	if err != nil {
		return err
	}

	days, _ := cmd.Flags().GetInt("days")
	if days <= 0 {
		days = a.cfg.KAP.LookbackDays
	}
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	w, err := kapWindow(time.Now(), days, from, to)
	if err != nil {
		return err
	}

	var filter kap.ListFilter
	if raw, _ := cmd.Flags().GetString("class"); raw != "" {
		t, ok := kap.ParseDisclosureType(raw)
		if !ok {
			return fmt.Errorf("unknown disclosure class %q", raw)
		}
		filter.DisclosureClass = t
	}

	s := &kap.Scraper{
		Client: a.kapClient(),
		Log:    observability.WithSource(a.log, "kap"),
	}
	s.Workers, _ = cmd.Flags().GetInt("workers")
	if ok, _ := cmd.Flags().GetBool("details"); ok {
		s.Details = a.detailEnricher(ctx)
	}
	if ok, _ := cmd.Flags().GetBool("sentiment"); ok {
		s.Tagger = a.tagger()
	}
	if ok, _ := cmd.Flags().GetBool("store"); ok {
		st, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		s.Sink = st
	}

	disclosures, sum, err := s.Scrape(ctx, w, filter)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Listed %d, detailed %d, tagged %d, stored %d, failed %d\n",
		sum.Listed, sum.Detailed, sum.Tagged, sum.Stored, sum.Failed)

	rs, opts := disclosureResults(disclosures)
	output, _ := cmd.Flags().GetString("output")
	return writeOutput(cmd.OutOrStdout(), output, rs, formatName, format, opts)
}

// kapWindow resolves the query window. Explicit dates win over days; a
// missing end defaults to today.
func kapWindow(now time.Time, days int, from, to string) (kap.Window, error) {
	if from == "" && to == "" {
		return kap.LookbackWindow(now, days), nil
	}
	w := kap.Window{To: now}
	var err error
	if from != "" {
		if w.From, err = time.ParseInLocation(time.DateOnly, from, kap.Istanbul); err != nil {
			return w, fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if to != "" {
		if w.To, err = time.ParseInLocation(time.DateOnly, to, kap.Istanbul); err != nil {
			return w, fmt.Errorf("invalid --to date: %w", err)
		}
	}
	if w.From.IsZero() {
		w.From = w.To.AddDate(0, 0, -days)
	}
	if w.From.After(w.To) {
		return w, fmt.Errorf("--from %s is after --to %s", w.From.Format(time.DateOnly), w.To.Format(time.DateOnly))
	}
	return w, nil
}

// disclosureResults turns scraped disclosures into a ResultSet plus the
// verdicts the exporters render.
func disclosureResults(ds []types.Disclosure) (types.ResultSet, export.Options) {
	rs := types.ResultSet{SourcesQueried: []string{kap.ProviderName}, TotalFoundUpstream: len(ds)}
	opts := export.Options{Title: "KAP disclosures", Verdicts: map[string]types.SentimentVerdict{}}
	for _, d := range ds {
		rs.Records = append(rs.Records, d.Record())
		if d.Sentiment != nil {
			opts.Verdicts[d.DisclosureID] = *d.Sentiment
		}
	}
	return rs, opts
}
