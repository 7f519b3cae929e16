package quality

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jmylchreest/listingopt/internal/domain"
)

func passing() domain.Rewrite {
	return domain.Rewrite{
		Title:       strings.Repeat("t", 120),
		Bullets:     []string{"a", "b", "c", "d", "e"},
		Description: strings.Repeat("d", 400),
		Keywords:    []string{"k1", "k2", "k3", "k4", "k5"},
	}
}

func TestCheck_AllPass(t *testing.T) {
	report := Check(passing())
	if !report.Valid {
		t.Errorf("Valid = false, warnings = %v", report.Warnings)
	}
	if report.Warnings == nil || len(report.Warnings) != 0 {
		t.Errorf("Warnings = %#v, want empty non-nil slice", report.Warnings)
	}
}

func TestCheck_SingleRule(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Rewrite)
		want   string
	}{
		{"title 40 chars", func(r *domain.Rewrite) { r.Title = strings.Repeat("t", 40) },
			"Optimized title too short (minimum 50 characters)"},
		{"title 251 chars", func(r *domain.Rewrite) { r.Title = strings.Repeat("t", 251) },
			"Optimized title too long (maximum 250 characters)"},
		{"two bullets", func(r *domain.Rewrite) { r.Bullets = r.Bullets[:2] },
			"Need at least 3 bullet points"},
		{"short description", func(r *domain.Rewrite) { r.Description = strings.Repeat("d", 199) },
			"Description too short (minimum 200 characters)"},
		{"no keywords", func(r *domain.Rewrite) { r.Keywords = nil },
			"Need at least 3 keywords"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := passing()
			tt.mutate(&r)
			report := Check(r)
			if report.Valid {
				t.Error("Valid = true, want false")
			}
			if diff := cmp.Diff([]string{tt.want}, report.Warnings); diff != "" {
				t.Errorf("Warnings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheck_Boundaries(t *testing.T) {
	r := passing()
	r.Title = strings.Repeat("t", 50)
	r.Description = strings.Repeat("d", 200)
	r.Bullets = r.Bullets[:3]
	r.Keywords = r.Keywords[:3]
	if report := Check(r); !report.Valid {
		t.Errorf("boundary values should pass, got %v", report.Warnings)
	}

	r.Title = strings.Repeat("t", 250)
	if report := Check(r); !report.Valid {
		t.Errorf("250-char title should pass, got %v", report.Warnings)
	}
}

func TestCheck_CountsCharactersNotBytes(t *testing.T) {
	r := passing()
	r.Title = strings.Repeat("é", 50)
	if report := Check(r); !report.Valid {
		t.Errorf("50 multibyte characters should pass, got %v", report.Warnings)
	}
}

func TestCheck_EverythingWrong(t *testing.T) {
	report := Check(domain.Rewrite{})
	if len(report.Warnings) != 4 {
		t.Errorf("len(Warnings) = %d, want 4: %v", len(report.Warnings), report.Warnings)
	}
}

func TestCheck_DoesNotMutate(t *testing.T) {
	r := passing()
	r.Title = "short"
	before := r
	before.Bullets = append([]string(nil), r.Bullets...)
	Check(r)
	if diff := cmp.Diff(before, r); diff != "" {
		t.Errorf("Check mutated input (-before +after):\n%s", diff)
	}
}
