// Package quality runs advisory content checks over an optimized listing.
// Findings are reported as warnings and never block a result.
package quality

import (
	"fmt"
	"unicode/utf8"

	"github.com/jmylchreest/listingopt/internal/domain"
)

// Bounds used by the checks. Lengths are in characters.
const (
	MinTitleLen       = 50
	MaxTitleLen       = 250
	MinBullets        = 3
	MinDescriptionLen = 200
	MinKeywords       = 3
)

// Report is the outcome of Check.
type Report struct {
	Valid    bool     `json:"valid" yaml:"valid"`
	Warnings []string `json:"warnings" yaml:"warnings"`
}

type rule func(domain.Rewrite) (string, bool)

var rules = []rule{
	func(r domain.Rewrite) (string, bool) {
		return fmt.Sprintf("Optimized title too short (minimum %d characters)", MinTitleLen),
			utf8.RuneCountInString(r.Title) < MinTitleLen
	},
	func(r domain.Rewrite) (string, bool) {
		return fmt.Sprintf("Optimized title too long (maximum %d characters)", MaxTitleLen),
			utf8.RuneCountInString(r.Title) > MaxTitleLen
	},
	func(r domain.Rewrite) (string, bool) {
		return fmt.Sprintf("Need at least %d bullet points", MinBullets),
			len(r.Bullets) < MinBullets
	},
	func(r domain.Rewrite) (string, bool) {
		return fmt.Sprintf("Description too short (minimum %d characters)", MinDescriptionLen),
			utf8.RuneCountInString(r.Description) < MinDescriptionLen
	},
	func(r domain.Rewrite) (string, bool) {
		return fmt.Sprintf("Need at least %d keywords", MinKeywords),
			len(r.Keywords) < MinKeywords
	},
}

// Check applies every rule to r. It does not modify r.
func Check(r domain.Rewrite) Report {
	warnings := []string{}
	for _, check := range rules {
		if msg, failed := check(r); failed {
			warnings = append(warnings, msg)
		}
	}
	return Report{Valid: len(warnings) == 0, Warnings: warnings}
}
