package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func resetLogger() {
	Init(Options{})
}

// --- Init Tests ---

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		logged    []string
		notLogged []string
	}{
		{"default", Options{}, []string{"info-msg", "warn-msg", "error-msg"}, []string{"debug-msg"}},
		{"debug", Options{Debug: true}, []string{"debug-msg", "info-msg"}, nil},
		{"quiet", Options{Quiet: true}, []string{"error-msg"}, []string{"debug-msg", "info-msg", "warn-msg"}},
		{"quiet wins over debug", Options{Debug: true, Quiet: true}, []string{"error-msg"}, []string{"debug-msg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			opts := tt.opts
			opts.Output = buf
			Init(opts)
			defer resetLogger()

			Debug("debug-msg")
			Info("info-msg")
			Warn("warn-msg")
			Error("error-msg")

			out := buf.String()
			for _, m := range tt.logged {
				if !strings.Contains(out, m) {
					t.Errorf("expected %q in output", m)
				}
			}
			for _, m := range tt.notLogged {
				if strings.Contains(out, m) {
					t.Errorf("did not expect %q in output", m)
				}
			}
		})
	}
}

func TestInit_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{JSON: true, Output: buf})
	defer resetLogger()

	Info("scraped listing", "asin", "B0ABCDEFGH")

	out := buf.String()
	if !strings.Contains(out, `"msg":"scraped listing"`) {
		t.Errorf("expected JSON msg field, got %s", out)
	}
	if !strings.Contains(out, `"asin":"B0ABCDEFGH"`) {
		t.Errorf("expected JSON asin field, got %s", out)
	}
}

// --- Context Tests ---

func TestNewContext_CarriesAttributes(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Output: buf})
	defer resetLogger()

	ctx := NewContext(context.Background(), "request_id", "abc-123")
	ctx = NewContext(ctx, "asin", "B0ABCDEFGH")

	DebugContext(ctx, "stage done")
	WarnContext(ctx, "slow stage")

	out := buf.String()
	for _, want := range []string{"stage done", "slow stage", "request_id=abc-123", "asin=B0ABCDEFGH"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got %s", want, out)
		}
	}
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	FromContext(context.Background()).Info("plain")
	InfoContext(context.Background(), "info with context")
	ErrorContext(context.Background(), "error with context")

	out := buf.String()
	for _, want := range []string{"plain", "info with context", "error with context"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output", want)
		}
	}
}

func TestWith_ReturnsLoggerWithAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	With("region", "IN").Info("test with attrs")

	if !strings.Contains(buf.String(), "region=IN") {
		t.Errorf("expected attributes in output, got %s", buf.String())
	}
}
