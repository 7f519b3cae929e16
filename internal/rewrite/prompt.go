// Package rewrite asks a completion provider for an optimized version of a
// product listing and parses the answer.
package rewrite

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/listingopt/internal/domain"
)

// SystemPrompt sets the assistant's role and output contract.
const SystemPrompt = "You are an expert Amazon product listing optimizer. You always respond with valid JSON only, no other text."

const rubric = `TASK: Create optimized version with these requirements:

1. OPTIMIZED TITLE (150-200 characters):
   - Place high-value keywords at the beginning
   - Include brand, key features, and product type
   - Make it readable and compelling

2. OPTIMIZED BULLET POINTS (exactly 5 bullets, each 150-200 characters):
   - Start each with a BENEFIT in CAPITAL LETTERS
   - Include specific details and measurements
   - Focus on customer value and problem-solving
   - Naturally incorporate relevant keywords

3. ENHANCED DESCRIPTION (300-500 words):
   - Write a compelling narrative about the product
   - Highlight unique selling points and address customer pain points
   - Use natural keyword integration (no stuffing)
   - Stay marketplace compliant: no superlatives like "best" or "cheapest"

4. KEYWORD SUGGESTIONS (exactly 5 keyword phrases):
   - Extract from product features and benefits
   - Include long-tail keywords focused on search intent

IMPORTANT: Return ONLY a JSON object in this EXACT format with no other text:

{
  "optimizedTitle": "your optimized title here",
  "optimizedBullets": [
    "BENEFIT 1: detailed bullet point with value proposition",
    "BENEFIT 2: detailed bullet point with specific features",
    "BENEFIT 3: detailed bullet point with measurements or specs",
    "BENEFIT 4: detailed bullet point addressing customer needs",
    "BENEFIT 5: detailed bullet point with unique selling point"
  ],
  "optimizedDescription": "your complete enhanced description here as continuous text",
  "keywords": [
    "keyword phrase 1",
    "keyword phrase 2",
    "keyword phrase 3",
    "keyword phrase 4",
    "keyword phrase 5"
  ]
}`

// BuildPrompt renders the user prompt for listing. The output depends only
// on the listing.
func BuildPrompt(listing domain.Listing) string {
	var sb strings.Builder
	sb.WriteString("Analyze and optimize this product listing.\n\n")
	sb.WriteString("ORIGINAL PRODUCT:\n")
	fmt.Fprintf(&sb, "Title: %s\n\n", listing.Title)
	sb.WriteString("Bullet Points:\n")
	for i, b := range listing.Bullets {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, b)
	}
	fmt.Fprintf(&sb, "\nDescription: %s\n\n", listing.Description)
	sb.WriteString(rubric)
	return sb.String()
}
