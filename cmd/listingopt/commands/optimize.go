package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/listingopt/internal/output"
	"github.com/jmylchreest/listingopt/internal/pipeline"
)

var (
	optimizeRegion string
	optimizeStream bool
	optimizeFormat string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <asin>",
	Short: "Optimize one product listing",
	Long: `Fetch the product page for an ASIN, request an optimized rewrite and
store the result.

Examples:
  listingopt optimize B0ABCDEFGH
  listingopt optimize b0abcdefgh --region US --format yaml
  listingopt optimize B0ABCDEFGH --stream --format table`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	flags := optimizeCmd.Flags()
	flags.StringVarP(&optimizeRegion, "region", "r", "", "marketplace: US, IN, UK, CA (default scraper.default_region)")
	flags.BoolVar(&optimizeStream, "stream", false, "stream the completion")
	flags.StringVarP(&optimizeFormat, "format", "f", "json", "output format: json, jsonl, yaml, table")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(optimizeFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	logInfo("Optimizing %s...", args[0])
	res, err := a.optimizer.Run(ctx, pipeline.Request{
		ASIN:   args[0],
		Region: optimizeRegion,
		Stream: optimizeStream,
	})
	if err != nil {
		return err
	}
	logInfo("Stored as optimization #%d (%d warnings)", res.ID, len(res.Warnings))

	w, err := output.NewWriter(os.Stdout, format)
	if err != nil {
		return err
	}
	if err := w.Write(res); err != nil {
		return err
	}
	return w.Flush()
}
