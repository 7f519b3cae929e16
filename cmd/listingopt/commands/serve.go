package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/listingopt/internal/logger"
	"github.com/jmylchreest/listingopt/internal/server"
	"github.com/jmylchreest/listingopt/internal/version"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the optimizer over HTTP.

Routes:
  POST /api/optimize             run an optimization
  GET  /api/optimizations        most recent runs
  GET  /api/optimizations/:id    one run
  GET  /api/history/:asin        every run for a product
  GET  /api/changes/:asin        optimized fields per run
  GET  /health                   liveness
  GET  /metrics                  Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Server.Port = servePort
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("starting listingopt",
		"version", version.String(),
		"environment", cfg.Server.Environment,
		"provider", cfg.LLM.Provider,
		"fetch_mode", cfg.Scraper.FetchMode,
		"store", cfg.Store.Driver)

	router := server.SetupRouter(cfg, server.NewHandler(a.optimizer, a.store), a.metrics.Registry)
	return server.Serve(ctx, ":"+cfg.Server.Port, router)
}
