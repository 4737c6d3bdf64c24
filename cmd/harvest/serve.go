// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/harvest/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve search, disclosure and sentiment operations over HTTP",
	Long: `Serve starts the HTTP API:

  GET    /healthz
  GET    /metrics
  GET    /search?q=...&mode=merge&max=20&format=json
  GET    /disclosures?company=...&since=...&until=...&limit=...&offset=...
  GET    /disclosures/{id}
  PUT    /disclosures/{id}
  DELETE /disclosures/{id}
  POST   /disclosures/{id}/sentiment

The server shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	serveCmd.Flags().Bool("no-store", false, "run without persistence; disclosure routes answer 503")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		a.cfg.Server.Address = addr
	}

	agg, _, err := a.aggregator(nil)
	if err != nil {
		return err
	}
	orch, err := a.orchestrator(ctx)
	if err != nil {
		return err
	}
	deps := api.Deps{
		Searcher: agg,
		Enricher: orch,
		Tagger:   a.tagger(),
		Gatherer: a.registry,
		Log:      a.log,
	}
	if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
		st, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		deps.Store = st
	}

	srv := api.NewServer(a.cfg.Server, deps)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}
