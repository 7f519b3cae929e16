package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/listingopt/internal/domain"
	"github.com/jmylchreest/listingopt/internal/logger"
)

// StaticSource fetches pages over plain HTTP with Colly. No JavaScript runs,
// so it only sees server-rendered markup.
type StaticSource struct {
	config Config
}

// NewStaticSource creates a static source.
func NewStaticSource(cfg Config) *StaticSource {
	return &StaticSource{config: cfg.withDefaults()}
}

// Name returns "static".
func (s *StaticSource) Name() string { return "static" }

// Close releases resources.
func (s *StaticSource) Close() error { return nil }

// Fetch retrieves url and returns its HTML and <title>.
func (s *StaticSource) Fetch(ctx context.Context, url string) (Page, error) {
	result := Page{URL: url, FetchedAt: time.Now()}

	c := colly.NewCollector(
		colly.UserAgent(s.config.UserAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.config.NavTimeout)

	c.OnRequest(func(r *colly.Request) {
		for k, v := range browserHeaders {
			r.Headers.Set(k, v)
		}
	})

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.HTML = string(r.Body)
	})

	var fetchErr error
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = err
	}

	if fetchErr != nil {
		return result, s.fetchError(ctx, result.StatusCode, fetchErr)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return result, domain.NewError(domain.KindExtraction, "parse", err)
	}
	result.Title = cleanText(doc.Find("title").First().Text())

	if challenge := detectChallengePage(result.Title, result.HTML); challenge != "" {
		logger.WarnContext(ctx, "bot check page served", "url", url, "type", challenge)
		return result, domain.Errorf(domain.KindExtraction, "fetch", "blocked by %s page", challenge)
	}

	logger.DebugContext(ctx, "static fetch complete",
		"url", url,
		"status", result.StatusCode,
		"html_size", len(result.HTML))

	return result, nil
}

func (s *StaticSource) fetchError(ctx context.Context, status int, err error) error {
	if status == http.StatusNotFound {
		return domain.NewError(domain.KindNotFound, "fetch", fmt.Errorf("product page returned %d", status))
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.NewError(domain.KindTimeout, "fetch",
			fmt.Errorf("page load exceeded %s: %w", s.config.NavTimeout, err))
	}

	if ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return domain.NewError(domain.KindExtraction, "fetch", fmt.Errorf("fetch error: %w", err))
}
