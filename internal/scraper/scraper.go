// Package scraper fetches product pages and extracts listing text from them.
package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/listingopt/internal/domain"
	"github.com/jmylchreest/listingopt/internal/logger"
)

// Page is a fetched product page.
type Page struct {
	URL        string
	Title      string
	HTML       string
	StatusCode int
	FetchedAt  time.Time
}

// Source retrieves the rendered HTML of a product page.
type Source interface {
	Fetch(ctx context.Context, url string) (Page, error)
	Close() error
	// Name returns "browser", "static" or "solver".
	Name() string
}

// Config holds settings shared by the page sources.
type Config struct {
	UserAgent   string
	NavTimeout  time.Duration
	SettleDelay time.Duration
	ChromePath  string
	Stealth     bool
	Headless    bool
	// SolverURL is the FlareSolverr endpoint used by the "solver" mode.
	SolverURL string
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{
		UserAgent:   DefaultUserAgent,
		NavTimeout:  30 * time.Second,
		SettleDelay: 3 * time.Second,
		Stealth:     true,
		Headless:    true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = d.NavTimeout
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = d.SettleDelay
	}
	return c
}

// NewSource creates the page source for mode ("browser", "static" or "solver").
func NewSource(mode string, cfg Config) (Source, error) {
	switch strings.ToLower(mode) {
	case "", "browser":
		return NewBrowserSource(cfg), nil
	case "static":
		return NewStaticSource(cfg), nil
	case "solver":
		if cfg.SolverURL == "" {
			return nil, fmt.Errorf("solver fetch mode needs a solver URL")
		}
		return NewSolverSource(cfg), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s", mode)
	}
}

// Scraper turns an identifier and region into a Listing.
type Scraper struct {
	source  Source
	baseURL string
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithBaseURL replaces the region product URL prefix, e.g. with a mirror.
func WithBaseURL(u string) Option {
	return func(s *Scraper) { s.baseURL = u }
}

// New creates a Scraper reading pages from source.
func New(source Source, opts ...Option) *Scraper {
	s := &Scraper{source: source}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the underlying source.
func (s *Scraper) Close() error {
	return s.source.Close()
}

func (s *Scraper) productURL(asin string, region domain.Region) string {
	if s.baseURL != "" {
		return s.baseURL + asin
	}
	return region.ProductURL(asin)
}

// Scrape fetches the product page for asin in region and extracts its listing.
func (s *Scraper) Scrape(ctx context.Context, asin string, region domain.Region) (domain.Listing, error) {
	url := s.productURL(asin, region)
	start := time.Now()

	logger.DebugContext(ctx, "fetching product page", "url", url, "source", s.source.Name())

	page, err := s.source.Fetch(ctx, url)
	if err != nil {
		return domain.Listing{}, domain.WithTarget(err, asin, region, "scrape")
	}

	if isNotFoundTitle(page.Title) {
		return domain.Listing{}, &domain.Error{
			Kind:   domain.KindNotFound,
			ASIN:   asin,
			Region: region,
			Stage:  "scrape",
			Err:    fmt.Errorf("product not found, page title %q", page.Title),
		}
	}

	listing, err := Extract(page.HTML)
	if err != nil {
		return domain.Listing{}, domain.WithTarget(err, asin, region, "extract")
	}
	listing.ASIN = asin
	listing.Region = region

	logger.DebugContext(ctx, "extracted listing",
		"title_len", len([]rune(listing.Title)),
		"bullets", len(listing.Bullets),
		"description_len", len([]rune(listing.Description)),
		"duration", time.Since(start))

	return listing, nil
}

// isNotFoundTitle recognises the storefront's missing-product pages.
func isNotFoundTitle(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	return strings.Contains(t, "page not found") ||
		strings.Contains(t, "404") ||
		strings.TrimSpace(title) == "Amazon"
}
