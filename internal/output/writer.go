// Package output renders optimization results and stored records for the CLI.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format is an output format name.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatJSONL, FormatYAML, FormatTable}
}

// ParseFormat resolves a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format: %s", s)
}

// Writer renders values to an underlying stream.
type Writer interface {
	// Write renders one value. Slices are rendered as a whole.
	Write(v any) error

	// Flush ensures everything written so far reached the stream.
	Flush() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	indent string
	width  int
}

// WithIndent sets the JSON indentation; empty means compact.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) { c.indent = indent }
}

// WithWidth caps the width of free-text table columns.
func WithWidth(n int) WriterOption {
	return func(c *writerConfig) { c.width = n }
}

// NewWriter creates a writer for format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{indent: "  ", width: 72}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatJSON:
		return newJSONWriter(w, cfg.indent), nil
	case FormatJSONL:
		return newJSONWriter(w, ""), nil
	case FormatYAML:
		return newYAMLWriter(w), nil
	case FormatTable:
		return newTableWriter(w, cfg.width), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
