package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/listingopt/internal/asin"
	"github.com/jmylchreest/listingopt/internal/output"
)

var (
	historyFormat string
	historyFull   bool
	showFormat    string
)

var historyCmd = &cobra.Command{
	Use:   "history [asin]",
	Short: "List stored optimizations",
	Long: `Without an argument, list the most recent optimizations. With an ASIN,
list the optimized fields of every run for that product, newest first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one stored optimization",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)

	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "table", "output format: json, jsonl, yaml, table")
	historyCmd.Flags().BoolVar(&historyFull, "full", false, "with an ASIN, show full records instead of the change history")
	showCmd.Flags().StringVarP(&showFormat, "format", "f", "table", "output format: json, jsonl, yaml, table")
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(historyFormat)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var result any
	switch {
	case len(args) == 0:
		result, err = st.List(ctx)
	default:
		code, verr := asin.Normalize(args[0])
		if verr != nil {
			return verr
		}
		if historyFull {
			result, err = st.ListByASIN(ctx, code)
		} else {
			result, err = st.History(ctx, code)
		}
	}
	if err != nil {
		return err
	}

	w, err := output.NewWriter(os.Stdout, format)
	if err != nil {
		return err
	}
	if err := w.Write(result); err != nil {
		return err
	}
	return w.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid optimization id %q", args[0])
	}
	format, err := output.ParseFormat(showFormat)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Get(ctx, id)
	if err != nil {
		return err
	}

	w, err := output.NewWriter(os.Stdout, format)
	if err != nil {
		return err
	}
	if err := w.Write(rec); err != nil {
		return err
	}
	return w.Flush()
}
