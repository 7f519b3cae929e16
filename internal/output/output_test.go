package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/listingopt/internal/domain"
	"github.com/jmylchreest/listingopt/internal/pipeline"
)

var sampleRecord = domain.Record{
	ID: 12,
	Original: domain.Listing{
		ASIN:        "B0ABCDEFGH",
		Region:      domain.RegionIN,
		Title:       "Widget Pro 3000",
		Bullets:     []string{"Dual band wireless with automatic channel switching", "Aluminium housing"},
		Description: "Dual band wireless with automatic channel switching Aluminium housing",
	},
	Optimized: domain.Rewrite{
		Title:       "Widget Pro 3000 Dual Band Router with Aluminium Housing",
		Bullets:     []string{"FAST: dual band", "COOL: aluminium", "EASY: setup"},
		Description: "A router that keeps up.",
		Keywords:    []string{"dual band router", "home wifi"},
	},
	CreatedAt: time.Now().Add(-3 * time.Hour),
}

// --- Format Tests ---

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"json", "JSON", " yaml ", "table", "jsonl"} {
		if _, err := ParseFormat(in); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", in, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("ParseFormat(xml) error = %v", err)
	}
}

func TestNewWriter_UnsupportedFormat(t *testing.T) {
	if _, err := NewWriter(&bytes.Buffer{}, Format("xml")); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

// --- JSON Tests ---

func TestJSONWriter_Record(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, FormatJSON)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if err := w.Write(sampleRecord); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if !strings.Contains(buf.String(), "\n  \"id\": 12") {
		t.Errorf("expected indented output, got:\n%s", buf.String())
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	optimized := got["optimized"].(map[string]any)
	if optimized["title"] != sampleRecord.Optimized.Title {
		t.Errorf("optimized.title = %v", optimized["title"])
	}
}

func TestJSONLWriter_OneLinePerValue(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, FormatJSONL)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	for i := range 3 {
		rec := sampleRecord
		rec.ID = int64(i + 1)
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var rec domain.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if rec.ID != int64(i+1) {
			t.Errorf("line %d: id = %d", i, rec.ID)
		}
	}
}

func TestJSONWriter_DoesNotEscapeHTML(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf, FormatJSON, WithIndent(""))
	if err := w.Write(map[string]string{"title": "Cable <2m> & adapter"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Cable <2m> & adapter") {
		t.Errorf("output = %s", buf.String())
	}
}

// --- YAML Tests ---

func TestYAMLWriter_Result(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, FormatYAML)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	res := pipeline.Result{ID: 3, ASIN: "B0ABCDEFGH", Region: domain.RegionUS, Warnings: []string{"Need at least 3 keywords"}}
	if err := w.Write(res); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if got["asin"] != "B0ABCDEFGH" || got["region"] != "US" {
		t.Errorf("got %v", got)
	}
	if warnings, ok := got["validation_warnings"].([]any); !ok || len(warnings) != 1 {
		t.Errorf("validation_warnings = %v", got["validation_warnings"])
	}
}

// --- Table Tests ---

func TestTableWriter_Record(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf, FormatTable)
	if err := w.Write(sampleRecord); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Optimization #12", "B0ABCDEFGH", "1. FAST: dual band", "3 hours ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestTableWriter_Records(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf, FormatTable)
	if err := w.Write([]domain.Record{sampleRecord, sampleRecord}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "2 optimizations") {
		t.Errorf("footer missing:\n%s", buf.String())
	}
}

func TestTableWriter_History(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf, FormatTable)
	entries := []domain.HistoryEntry{{ID: 4, ASIN: "B0ABCDEFGH", Title: "Second pass", Keywords: []string{"a", "b"}, CreatedAt: time.Now()}}
	if err := w.Write(entries); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Second pass") || !strings.Contains(buf.String(), "1 runs") {
		t.Errorf("unexpected table:\n%s", buf.String())
	}
}

func TestTableWriter_UnsupportedType(t *testing.T) {
	w, _ := NewWriter(&bytes.Buffer{}, FormatTable)
	if err := w.Write(42); err == nil {
		t.Error("expected error for unsupported type")
	}
}
