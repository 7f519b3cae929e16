package store

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jmylchreest/listingopt/internal/logger"
)

var (
	invisibleRunes = regexp.MustCompile("[\u200B-\u200D\uFEFF]")
	bracketedArray = regexp.MustCompile(`(?s)\[.*\]`)
)

type listDecoder struct {
	name string
	fn   func(raw string) (string, bool)
}

// listDecoders run in order; each returns the candidate text to parse, or
// false when it does not apply.
var listDecoders = []listDecoder{
	{"direct", func(raw string) (string, bool) { return raw, true }},
	{"strip-invisible", func(raw string) (string, bool) {
		cleaned := strings.TrimSpace(invisibleRunes.ReplaceAllString(raw, ""))
		return cleaned, cleaned != raw
	}},
	{"extract-array", func(raw string) (string, bool) {
		m := bracketedArray.FindString(invisibleRunes.ReplaceAllString(raw, ""))
		return m, m != ""
	}},
	{"repair-truncated", func(raw string) (string, bool) {
		return repairTruncated(invisibleRunes.ReplaceAllString(raw, ""))
	}},
}

// DecodeList reads a stored list column. It tries each strategy in turn and
// falls back to an empty list; it never fails.
func DecodeList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		logger.Debug("stored list is empty", "strategy", "none")
		return []string{}
	}

	for _, d := range listDecoders {
		candidate, ok := d.fn(raw)
		if !ok {
			logger.Debug("stored list strategy not applicable", "strategy", d.name)
			continue
		}
		var out []string
		if err := json.Unmarshal([]byte(candidate), &out); err != nil {
			logger.Debug("stored list strategy failed", "strategy", d.name, "error", err, "len", len(raw))
			continue
		}
		if out == nil {
			out = []string{}
		}
		return out
	}

	logger.Debug("stored list unreadable, using empty list", "strategy", "empty", "len", len(raw))
	return []string{}
}

// repairTruncated closes an array that was cut off mid-write, such as
// `["a", "b` or `["a", `.
func repairTruncated(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return "", false
	}
	s = strings.TrimSpace(s[start:])
	if strings.HasSuffix(s, "]") {
		return "", false
	}

	if openString(s) {
		s += `"`
	}
	s = strings.TrimRight(s, ", \t\r\n")
	return s + "]", true
}

// openString reports whether s ends inside a JSON string literal.
func openString(s string) bool {
	in, escaped := false, false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && in:
			escaped = true
		case r == '"':
			in = !in
		}
	}
	return in
}
