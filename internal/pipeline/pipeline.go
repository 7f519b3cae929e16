// Package pipeline runs one listing optimization end to end: validate the
// identifier, scrape the page, request a rewrite, check it, and store both
// versions.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/jmylchreest/listingopt/internal/asin"
	"github.com/jmylchreest/listingopt/internal/domain"
	"github.com/jmylchreest/listingopt/internal/logger"
	"github.com/jmylchreest/listingopt/internal/quality"
)

// Scraper fetches and extracts a product listing.
type Scraper interface {
	Scrape(ctx context.Context, asin string, region domain.Region) (domain.Listing, error)
}

// Rewriter produces optimized copy for a listing.
type Rewriter interface {
	Optimize(ctx context.Context, listing domain.Listing) (domain.Rewrite, error)
	OptimizeStream(ctx context.Context, listing domain.Listing) (domain.Rewrite, error)
}

// Recorder persists a finished run.
type Recorder interface {
	Create(ctx context.Context, rec domain.Record) (int64, error)
}

// Request is one optimization request. ASIN is taken as-is from the caller
// and normalized before anything else happens.
type Request struct {
	ASIN   any
	Region string
	Stream bool
}

// Result is a stored optimization plus its advisory warnings.
type Result struct {
	ID        int64          `json:"id" yaml:"id"`
	ASIN      string         `json:"asin" yaml:"asin"`
	Region    domain.Region  `json:"region" yaml:"region"`
	Original  domain.Listing `json:"original" yaml:"original"`
	Optimized domain.Rewrite `json:"optimized" yaml:"optimized"`
	Warnings  []string       `json:"validationWarnings" yaml:"validation_warnings"`
}

// Optimizer wires the stages together.
type Optimizer struct {
	scraper  Scraper
	rewriter Rewriter
	store    Recorder
	metrics  *Metrics
	stream   bool
	region   domain.Region
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithMetrics records stage timings and outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(o *Optimizer) { o.metrics = m }
}

// WithStreamDefault makes streaming the default completion mode.
func WithStreamDefault(stream bool) Option {
	return func(o *Optimizer) { o.stream = stream }
}

// WithDefaultRegion sets the region used when a request names none.
func WithDefaultRegion(r domain.Region) Option {
	return func(o *Optimizer) { o.region = r }
}

// New creates an Optimizer.
func New(s Scraper, r Rewriter, store Recorder, opts ...Option) *Optimizer {
	o := &Optimizer{scraper: s, rewriter: r, store: store, region: domain.DefaultRegion}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the pipeline once. Nothing is stored unless both the listing
// and the rewrite are complete; quality warnings never fail a run.
func (o *Optimizer) Run(ctx context.Context, req Request) (Result, error) {
	code, err := asin.Normalize(req.ASIN)
	if err != nil {
		return Result{}, o.fail(ctx, "validate", err)
	}
	regionCode := req.Region
	if strings.TrimSpace(regionCode) == "" {
		regionCode = string(o.region)
	}
	region, err := domain.ParseRegion(regionCode)
	if err != nil {
		return Result{}, o.fail(ctx, "validate", domain.WithTarget(err, code, "", "validate"))
	}

	ctx = logger.NewContext(ctx, "asin", code, "region", region)
	stream := req.Stream || o.stream
	logger.InfoContext(ctx, "optimization started", "stream", stream)
	start := time.Now()

	stageStart := time.Now()
	listing, err := o.scraper.Scrape(ctx, code, region)
	o.metrics.ObserveStage("scrape", time.Since(stageStart))
	if err != nil {
		return Result{}, o.fail(ctx, "scrape", domain.WithTarget(err, code, region, "scrape"))
	}

	stageStart = time.Now()
	var rewrite domain.Rewrite
	if stream {
		rewrite, err = o.rewriter.OptimizeStream(ctx, listing)
	} else {
		rewrite, err = o.rewriter.Optimize(ctx, listing)
	}
	o.metrics.ObserveStage("rewrite", time.Since(stageStart))
	if err != nil {
		return Result{}, o.fail(ctx, "rewrite", domain.WithTarget(err, code, region, "rewrite"))
	}

	report := quality.Check(rewrite)
	o.metrics.AddWarnings(len(report.Warnings))
	if !report.Valid {
		logger.DebugContext(ctx, "quality warnings", "warnings", report.Warnings)
	}

	stageStart = time.Now()
	id, err := o.store.Create(ctx, domain.Record{Original: listing, Optimized: rewrite})
	o.metrics.ObserveStage("store", time.Since(stageStart))
	if err != nil {
		return Result{}, o.fail(ctx, "store", domain.WithTarget(err, code, region, "store"))
	}

	o.metrics.IncRun("success")
	logger.InfoContext(ctx, "optimization finished",
		"id", id,
		"warnings", len(report.Warnings),
		"duration", time.Since(start))

	return Result{
		ID:        id,
		ASIN:      code,
		Region:    region,
		Original:  listing,
		Optimized: rewrite,
		Warnings:  report.Warnings,
	}, nil
}

func (o *Optimizer) fail(ctx context.Context, stage string, err error) error {
	kind := domain.KindOf(err)
	o.metrics.IncRun("error")
	o.metrics.IncError(stage, string(kind))
	logger.WarnContext(ctx, "optimization failed", "stage", stage, "kind", kind, "error", err)
	return err
}
