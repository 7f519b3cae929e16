package scraper

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/listingopt/internal/domain"
)

const (
	minTitleLen       = 10
	minBulletLen      = 21
	maxBullets        = 8
	minDescriptionLen = 50
	fallbackBullets   = 3
)

// Selector cascades, tried in order until one yields content.
var (
	titleSelectors = []string{
		"#productTitle",
		"h1#title",
		"span#productTitle",
		"h1.product-title",
	}

	bulletSelectors = []string{
		"#feature-bullets ul li span.a-list-item",
		"#feature-bullets li span",
		"div#feature-bullets ul li",
		"#featurebullets_feature_div li span",
		"ul.a-unordered-list.a-vertical li span",
	}

	descriptionSelectors = []string{
		"#productDescription",
		"div#productDescription p",
		"#feature-bullets + div",
		`div[data-feature-name="productDescription"]`,
	}
)

type textExtractor func(doc *goquery.Document) (string, bool)

type listExtractor func(doc *goquery.Document) ([]string, bool)

func firstText(selector string) textExtractor {
	return func(doc *goquery.Document) (string, bool) {
		text := cleanText(doc.Find(selector).First().Text())
		return text, text != ""
	}
}

func metaContent(name string) textExtractor {
	return func(doc *goquery.Document) (string, bool) {
		content, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First().Attr("content")
		content = cleanText(content)
		return content, content != ""
	}
}

func allBullets(selector string) listExtractor {
	return func(doc *goquery.Document) ([]string, bool) {
		var out []string
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text := cleanText(s.Text())
			if keepBullet(text) {
				out = append(out, text)
			}
		})
		return out, len(out) > 0
	}
}

func keepBullet(text string) bool {
	return utf8.RuneCountInString(text) >= minBulletLen &&
		!strings.Contains(strings.ToLower(text), "see more")
}

func textCascade(selectors []string) []textExtractor {
	out := make([]textExtractor, len(selectors))
	for i, sel := range selectors {
		out[i] = firstText(sel)
	}
	return out
}

func listCascade(selectors []string) []listExtractor {
	out := make([]listExtractor, len(selectors))
	for i, sel := range selectors {
		out[i] = allBullets(sel)
	}
	return out
}

func runText(doc *goquery.Document, cascade []textExtractor) string {
	for _, extract := range cascade {
		if v, ok := extract(doc); ok {
			return v
		}
	}
	return ""
}

func runList(doc *goquery.Document, cascade []listExtractor) []string {
	for _, extract := range cascade {
		if v, ok := extract(doc); ok {
			return v
		}
	}
	return nil
}

// Extract applies the selector cascades to a product page and validates the
// result. ASIN and Region are left for the caller to fill.
func Extract(html string) (domain.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.Listing{}, domain.NewError(domain.KindExtraction, "parse", err)
	}

	title := runText(doc, textCascade(titleSelectors))
	if utf8.RuneCountInString(title) < minTitleLen {
		return domain.Listing{}, domain.Errorf(domain.KindExtraction, "",
			"could not extract product title (got %q)", title)
	}

	bullets := runList(doc, listCascade(bulletSelectors))
	if len(bullets) > maxBullets {
		bullets = bullets[:maxBullets]
	}

	description := extractDescription(doc, bullets)

	if len(bullets) == 0 {
		bullets = []string{domain.NoBulletsSentinel}
	}
	if description == "" {
		description = domain.NoDescriptionSentinel
	}

	return domain.Listing{
		Title:       title,
		Bullets:     bullets,
		Description: description,
	}, nil
}

// extractDescription runs the description cascade, then the meta
// description when the body text is short, then the leading bullets.
func extractDescription(doc *goquery.Document, bullets []string) string {
	description := runText(doc, textCascade(descriptionSelectors))

	if utf8.RuneCountInString(description) < minDescriptionLen {
		if meta, ok := metaContent("description")(doc); ok {
			description = meta
		}
	}

	if description == "" && len(bullets) > 0 {
		n := min(len(bullets), fallbackBullets)
		description = strings.Join(bullets[:n], " ")
	}

	return description
}

// cleanText normalizes whitespace in text.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
