package commands

import (
	"context"
	"errors"

	"github.com/jmylchreest/listingopt/internal/config"
	"github.com/jmylchreest/listingopt/internal/domain"
	"github.com/jmylchreest/listingopt/internal/pipeline"
	"github.com/jmylchreest/listingopt/internal/rewrite"
	"github.com/jmylchreest/listingopt/internal/scraper"
	"github.com/jmylchreest/listingopt/internal/store"
)

// app holds the long-lived components built from configuration.
type app struct {
	cfg       *config.Config
	store     store.Store
	scraper   *scraper.Scraper
	metrics   *pipeline.Metrics
	optimizer *pipeline.Optimizer
}

// openStore opens the configured record store behind the read cache.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	db, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Store.CacheSize <= 0 {
		return db, nil
	}
	cached, err := store.NewCached(db, cfg.Store.CacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return cached, nil
}

// newApp wires the full pipeline. Nothing contacts the browser or the
// completion provider until the first optimization.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	region, err := domain.ParseRegion(cfg.Scraper.DefaultRegion)
	if err != nil {
		return nil, err
	}

	src, err := scraper.NewSource(cfg.Scraper.FetchMode, scraper.Config{
		UserAgent:   cfg.Scraper.UserAgent,
		NavTimeout:  cfg.Scraper.NavTimeout,
		SettleDelay: cfg.Scraper.SettleDelay,
		ChromePath:  cfg.Scraper.ChromePath,
		Stealth:     cfg.Scraper.Stealth,
		Headless:    cfg.Scraper.Headless,
		SolverURL:   cfg.Scraper.SolverURL,
	})
	if err != nil {
		return nil, err
	}
	var scraperOpts []scraper.Option
	if cfg.Scraper.BaseURL != "" {
		scraperOpts = append(scraperOpts, scraper.WithBaseURL(cfg.Scraper.BaseURL))
	}
	sc := scraper.New(src, scraperOpts...)

	st, err := openStore(ctx, cfg)
	if err != nil {
		sc.Close()
		return nil, err
	}

	metrics := pipeline.NewMetrics()
	requester := rewrite.New(rewrite.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
		EnvKey:      config.ProviderEnvKey(cfg.LLM.Provider),
	}, rewrite.WithObserver(metrics))

	optimizer := pipeline.New(sc, requester, st,
		pipeline.WithMetrics(metrics),
		pipeline.WithStreamDefault(cfg.LLM.Stream),
		pipeline.WithDefaultRegion(region),
	)

	return &app{
		cfg:       cfg,
		store:     st,
		scraper:   sc,
		metrics:   metrics,
		optimizer: optimizer,
	}, nil
}

// Close releases the browser and the database.
func (a *app) Close() error {
	return errors.Join(a.scraper.Close(), a.store.Close())
}
