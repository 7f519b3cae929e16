package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jmylchreest/listingopt/internal/domain"
	"github.com/jmylchreest/listingopt/internal/pipeline"
)

// tableWriter renders known types as box tables. Anything else is an error.
type tableWriter struct {
	out   io.Writer
	width int
}

func newTableWriter(w io.Writer, width int) *tableWriter {
	return &tableWriter{out: w, width: width}
}

func (w *tableWriter) newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w.out)
	return t
}

func (w *tableWriter) Write(v any) error {
	switch v := v.(type) {
	case pipeline.Result:
		w.result(v)
	case *pipeline.Result:
		w.result(*v)
	case domain.Record:
		w.record(v)
	case *domain.Record:
		w.record(*v)
	case []domain.Record:
		w.records(v)
	case []domain.HistoryEntry:
		w.history(v)
	default:
		return fmt.Errorf("table output not supported for %T", v)
	}
	return nil
}

func (w *tableWriter) Flush() error { return nil }

func (w *tableWriter) detailTable() table.Writer {
	t := w.newTable()
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: 14},
		{Number: 2, WidthMax: w.width},
	})
	return t
}

func (w *tableWriter) result(r pipeline.Result) {
	t := w.detailTable()
	t.SetTitle(fmt.Sprintf("Optimization #%d  %s (%s)", r.ID, r.ASIN, r.Region))
	appendRewrite(t, r.Original, r.Optimized)
	t.AppendSeparator()
	if len(r.Warnings) == 0 {
		t.AppendRow(table.Row{"Warnings", "none"})
	} else {
		t.AppendRow(table.Row{"Warnings", strings.Join(r.Warnings, "\n")})
	}
	t.Render()
}

func (w *tableWriter) record(r domain.Record) {
	t := w.detailTable()
	t.SetTitle(fmt.Sprintf("Optimization #%d  %s (%s)", r.ID, r.ASIN(), r.Original.Region))
	appendRewrite(t, r.Original, r.Optimized)
	t.AppendSeparator()
	t.AppendRow(table.Row{"Created", fmt.Sprintf("%s (%s)", r.CreatedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(r.CreatedAt))})
	t.Render()
}

func appendRewrite(t table.Writer, orig domain.Listing, opt domain.Rewrite) {
	t.AppendRow(table.Row{"Title", orig.Title})
	t.AppendRow(table.Row{"Bullets", numbered(orig.Bullets)})
	t.AppendRow(table.Row{"Description", orig.Description})
	t.AppendSeparator()
	t.AppendRow(table.Row{"New title", opt.Title})
	t.AppendRow(table.Row{"New bullets", numbered(opt.Bullets)})
	t.AppendRow(table.Row{"New desc.", opt.Description})
	t.AppendRow(table.Row{"Keywords", strings.Join(opt.Keywords, ", ")})
}

func (w *tableWriter) records(recs []domain.Record) {
	t := w.newTable()
	t.AppendHeader(table.Row{"ID", "ASIN", "Region", "Optimized title", "Created"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: w.width / 2}})
	for _, r := range recs {
		t.AppendRow(table.Row{r.ID, r.ASIN(), r.Original.Region, r.Optimized.Title, humanize.Time(r.CreatedAt)})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d optimizations", len(recs)), ""})
	t.Render()
}

func (w *tableWriter) history(entries []domain.HistoryEntry) {
	t := w.newTable()
	t.AppendHeader(table.Row{"ID", "Optimized title", "Bullets", "Keywords", "Created"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: w.width / 2},
		{Number: 4, WidthMax: w.width / 3},
	})
	for _, e := range entries {
		t.AppendRow(table.Row{e.ID, e.Title, len(e.Bullets), strings.Join(e.Keywords, ", "), humanize.Time(e.CreatedAt)})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d runs", len(entries)), "", "", ""})
	t.Render()
}

func numbered(items []string) string {
	lines := make([]string, len(items))
	for i, s := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, s)
	}
	return strings.Join(lines, "\n")
}
