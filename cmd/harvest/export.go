// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/harvest/internal/export"
	"github.com/pdiddy/harvest/internal/search"
)

var exportCmd = &cobra.Command{
	Use:   "export <query-file>",
	Short: "Re-export a saved query file without querying any API",
	Long: `Export reads a YAML query file written by "harvest search --save" and renders
its results in any supported format.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("format", "json", "output format: table, json, csv, markdown, bibtex, ris, csl")
	exportCmd.Flags().StringP("output", "o", "", "write output to this file instead of stdout")
	exportCmd.Flags().String("title", "", "Markdown document title")
	exportCmd.Flags().Bool("toc", false, "add a table of contents to Markdown output")
	exportCmd.Flags().StringSlice("columns", nil, "CSV columns in order")
	exportCmd.Flags().Int("abstract-limit", 0, "truncate Markdown abstracts to this many characters (negative for no limit)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	formatName, _ := cmd.Flags().GetString("format")
	format, err := parseOutputFormat(formatName)
	if err != nil {
		return err
	}
	qf, err := search.ReadQueryFile(args[0])
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	var opts export.Options
	opts.Title, _ = cmd.Flags().GetString("title")
	if opts.Title == "" {
		opts.Title = fmt.Sprintf("Search results: %s", qf.Query.Text)
	}
	opts.TableOfContents, _ = cmd.Flags().GetBool("toc")
	opts.Columns, _ = cmd.Flags().GetStringSlice("columns")
	opts.AbstractLimit, _ = cmd.Flags().GetInt("abstract-limit")

	return writeOutput(cmd.OutOrStdout(), output, qf.Results, formatName, format, opts)
}
