package scraper

import "strings"

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// browserHeaders are sent with every page request so the request resembles
// a desktop Chrome navigation.
var browserHeaders = map[string]string{
	"Accept-Language":    "en-US,en;q=0.9",
	"Accept":             "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"sec-ch-ua":          `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
	"sec-ch-ua-mobile":   "?0",
	"sec-ch-ua-platform": `"Windows"`,
}

// detectChallengePage reports the kind of bot-check page, or "".
func detectChallengePage(title, html string) string {
	titleLower := strings.ToLower(title)
	htmlLower := strings.ToLower(html)

	if strings.Contains(htmlLower, "/errors/validatecaptcha") ||
		strings.Contains(htmlLower, "enter the characters you see below") {
		return "captcha"
	}

	if strings.Contains(titleLower, "robot check") ||
		strings.Contains(htmlLower, "robot or human") {
		return "robot-check"
	}

	if strings.Contains(titleLower, "access denied") {
		return "access-denied"
	}

	return ""
}
