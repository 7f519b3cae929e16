package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/listingopt/internal/domain"
	"github.com/jmylchreest/listingopt/internal/logger"
)

// blockedResources are never downloaded by the browser.
var blockedResources = []network.ResourceType{
	network.ResourceTypeImage,
	network.ResourceTypeStylesheet,
	network.ResourceTypeFont,
}

// BrowserSource renders pages in headless Chrome. The allocator options are
// shared; every Fetch launches its own browser, which is shut down before
// Fetch returns.
type BrowserSource struct {
	config Config

	mu          sync.Mutex
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
}

// NewBrowserSource creates a browser source. Chrome is started on first use.
func NewBrowserSource(cfg Config) *BrowserSource {
	return &BrowserSource{config: cfg.withDefaults()}
}

// Name returns "browser".
func (b *BrowserSource) Name() string { return "browser" }

func (b *BrowserSource) allocator() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.allocCtx == nil {
		b.allocCtx, b.cancelAlloc = chromedp.NewExecAllocator(context.Background(), allocatorOptions(b.config)...)
		logger.Debug("browser allocator created",
			"headless", b.config.Headless,
			"stealth", b.config.Stealth,
			"nav_timeout", b.config.NavTimeout,
			"settle_delay", b.config.SettleDelay)
	}
	return b.allocCtx
}

// Close cancels the allocator, stopping any browser still running.
func (b *BrowserSource) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelAlloc != nil {
		b.cancelAlloc()
		b.allocCtx, b.cancelAlloc = nil, nil
	}
	return nil
}

// Fetch opens url in a fresh browser, waits for the body plus the settle delay
// and returns the rendered document.
func (b *BrowserSource) Fetch(ctx context.Context, url string) (Page, error) {
	result := Page{URL: url, FetchedAt: time.Now()}

	tabCtx, cancelTab := chromedp.NewContext(b.allocator(),
		chromedp.WithLogf(func(format string, args ...any) {
			logger.DebugContext(ctx, "chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	defer cancelTab()

	// The browser hangs off the allocator context, so tie it to the caller explicitly.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	chromedp.ListenTarget(tabCtx, func(ev any) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(tabCtx)
			if c == nil || c.Target == nil {
				return
			}
			execCtx := cdp.WithExecutor(tabCtx, c.Target)
			if err := fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx); err != nil {
				logger.DebugContext(ctx, "failed to block request", "url", paused.Request.URL, "error", err)
			}
		}()
	})

	// The first Run starts the browser; it must not carry the navigation deadline.
	if err := chromedp.Run(tabCtx, b.prepare()...); err != nil {
		return result, b.fetchError(ctx, "prepare tab", err)
	}

	navCtx, cancelNav := context.WithTimeout(tabCtx, b.config.NavTimeout)
	defer cancelNav()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || (errors.Is(navCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil) {
			return result, domain.NewError(domain.KindTimeout, "navigate",
				fmt.Errorf("page load exceeded %s: %w", b.config.NavTimeout, err))
		}
		return result, b.fetchError(ctx, "navigate", err)
	}

	var html, title string
	if err := chromedp.Run(tabCtx,
		chromedp.Sleep(b.config.SettleDelay),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return result, b.fetchError(ctx, "read page", err)
	}

	result.HTML = html
	result.Title = title
	result.StatusCode = 200

	if challenge := detectChallengePage(title, html); challenge != "" {
		logger.WarnContext(ctx, "bot check page served", "url", url, "type", challenge)
		return result, domain.Errorf(domain.KindExtraction, "navigate", "blocked by %s page", challenge)
	}

	logger.DebugContext(ctx, "browser fetch complete", "url", url, "title", title, "html_size", len(html))
	return result, nil
}

func (b *BrowserSource) prepare() []chromedp.Action {
	patterns := make([]*fetch.RequestPattern, 0, len(blockedResources))
	for _, rt := range blockedResources {
		patterns = append(patterns, &fetch.RequestPattern{
			URLPattern:   "*",
			ResourceType: rt,
			RequestStage: fetch.RequestStageRequest,
		})
	}

	headers := make(network.Headers, len(browserHeaders))
	for k, v := range browserHeaders {
		headers[k] = v
	}

	actions := []chromedp.Action{
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		fetch.Enable().WithPatterns(patterns),
	}
	if b.config.Stealth {
		actions = append(actions, injectStealthScript())
	}
	return actions
}

func (b *BrowserSource) fetchError(ctx context.Context, stage string, err error) error {
	if ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return domain.NewError(domain.KindExtraction, stage, fmt.Errorf("browser automation failed: %w", err))
}
