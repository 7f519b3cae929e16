// Package asin normalizes and validates Amazon Standard Identification Numbers.
package asin

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmylchreest/listingopt/internal/domain"
)

// Length is the number of characters in a valid identifier.
const Length = 10

// Normalize coerces v to a string, removes everything that is not an ASCII
// letter or digit (including zero-width and directional marks), upper-cases
// the result and checks that exactly Length characters remain.
func Normalize(v any) (string, error) {
	raw := coerce(v)
	code := clean(raw)
	if code == "" {
		return "", domain.Errorf(domain.KindInvalidIdentifier, "validate", "ASIN is required")
	}
	if len(code) != Length {
		return "", domain.Errorf(domain.KindInvalidIdentifier, "validate",
			"invalid ASIN format %q: must be %d alphanumeric characters", raw, Length)
	}
	return code, nil
}

// Valid reports whether s normalizes to a well-formed identifier.
func Valid(s string) bool {
	_, err := Normalize(s)
	return err == nil
}

func coerce(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		// JSON numbers decode as float64; %v would switch to exponent form.
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

func clean(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if invisible(r) {
			continue
		}
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'Z':
			sb.WriteRune(r)
		case r >= 'a' && r <= 'z':
			sb.WriteRune(r - 'a' + 'A')
		}
	}
	return sb.String()
}

// invisible covers zero-width characters, directional marks and the BOM.
func invisible(r rune) bool {
	switch {
	case r >= 0x200B && r <= 0x200F,
		r >= 0x202A && r <= 0x202E,
		r >= 0x2060 && r <= 0x2064,
		r == 0xFEFF:
		return true
	}
	return false
}
