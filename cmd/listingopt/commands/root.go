// Package commands implements the CLI commands for listingopt.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/listingopt/internal/config"
	"github.com/jmylchreest/listingopt/internal/logger"
)

var (
	cfgFile string
	debug   bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "listingopt",
	Short: "Rewrite Amazon product listings with an LLM",
	Long: `listingopt fetches an Amazon product page, extracts the title, bullet
points and description, asks an LLM for an optimized rewrite, and stores
both versions for later review.

Examples:
  # Run the HTTP API
  listingopt serve

  # Optimize one product from the Indian storefront
  listingopt optimize B0ABCDEFGH --region IN

  # Stream the completion and print YAML
  listingopt optimize B0ABCDEFGH --stream --format yaml

  # Review previous runs
  listingopt history B0ABCDEFGH
  listingopt show 42`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./listingopt.yaml, $HOME/listingopt.yaml or /etc/listingopt/)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logError("%v", err)
	}
	return err
}

// loadConfig reads configuration and initializes the logger from it and the
// global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Options{
		Debug: debug || cfg.Log.Debug,
		Quiet: quiet,
		JSON:  cfg.Log.JSON,
	})
	return cfg, nil
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
