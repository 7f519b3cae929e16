package rewrite

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/titanous/json5"

	"github.com/jmylchreest/listingopt/internal/domain"
)

// response is the JSON object the prompt asks for. Strings must be
// non-empty and lists must be present.
type response struct {
	OptimizedTitle       string   `json:"optimizedTitle" validate:"required"`
	OptimizedBullets     []string `json:"optimizedBullets" validate:"required"`
	OptimizedDescription string   `json:"optimizedDescription" validate:"required"`
	Keywords             []string `json:"keywords" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseResponse decodes the completion text into a Rewrite. Code fences and
// prose around the object are tolerated, as are JSON5 trailing commas and
// comments. Any missing field fails with a ResponseShape error.
func ParseResponse(text string) (domain.Rewrite, error) {
	body := StripMarkdownCodeBlock(text)
	if body == "" {
		return domain.Rewrite{}, domain.Errorf(domain.KindResponseShape, "parse", "empty completion response")
	}

	resp, err := decode(body)
	if err != nil {
		return domain.Rewrite{}, domain.NewError(domain.KindResponseShape, "parse",
			fmt.Errorf("completion response is not a JSON object: %w", err))
	}

	if err := validate.Struct(resp); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return domain.Rewrite{}, domain.Errorf(domain.KindResponseShape, "parse",
				"completion response missing required fields: %s", strings.Join(fields, ", "))
		}
		return domain.Rewrite{}, domain.NewError(domain.KindResponseShape, "parse", err)
	}

	return domain.Rewrite{
		Title:       resp.OptimizedTitle,
		Bullets:     resp.OptimizedBullets,
		Description: resp.OptimizedDescription,
		Keywords:    resp.Keywords,
	}, nil
}

func decode(body string) (response, error) {
	var resp response
	err := json.Unmarshal([]byte(body), &resp)
	if err == nil {
		return resp, nil
	}

	resp = response{}
	if err5 := json5.Unmarshal([]byte(body), &resp); err5 == nil {
		return resp, nil
	}

	if obj := outermostObject(body); obj != "" && obj != body {
		resp = response{}
		if err5 := json5.Unmarshal([]byte(obj), &resp); err5 == nil {
			return resp, nil
		}
	}

	return response{}, err
}

// outermostObject returns the text from the first '{' to the last '}'.
func outermostObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// StripMarkdownCodeBlock removes a surrounding ``` or ```json fence.
func StripMarkdownCodeBlock(s string) string {
	s = strings.TrimSpace(s)

	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	default:
		return s
	}

	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
