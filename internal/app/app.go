// Package app initializes and holds the long-lived services of the scraper,
// acting as the composition root for commands.
package app

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/alialtamimi/etimad-scraper/internal/api"
	"github.com/alialtamimi/etimad-scraper/internal/browser"
	"github.com/alialtamimi/etimad-scraper/internal/clock"
	"github.com/alialtamimi/etimad-scraper/internal/config"
	"github.com/alialtamimi/etimad-scraper/internal/logging"
	"github.com/alialtamimi/etimad-scraper/internal/metrics"
	"github.com/alialtamimi/etimad-scraper/internal/pipeline"
	"github.com/alialtamimi/etimad-scraper/internal/scraper"
	"github.com/alialtamimi/etimad-scraper/internal/store"
)

// App holds the shared services: config, logger, store, browser pool and
// the pipeline orchestrator. It is built once at startup and passed to the
// command that needs it.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Store        *store.Postgres
	Browser      *browser.Pool
	Orchestrator *pipeline.Orchestrator
	API          *api.Server
}

// New loads configuration, runs migrations and wires every service. It fails
// fast when any critical dependency cannot be initialized.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	metrics.Init()

	if err := store.Migrate(cfg.DB.DSN, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pg, err := store.NewPostgres(ctx, store.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        int32(cfg.DB.MaxConns),
		MinConns:        int32(cfg.DB.MinConns),
		MaxConnLifetime: cfg.MaxConnLifetime(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	pool, err := browser.NewPool(browser.Config{
		MaxSessions:    cfg.Scraper.ConcurrentSessions,
		SessionTimeout: cfg.SessionTimeout(),
		Headless:       cfg.Browser.Headless,
		UserAgent:      cfg.Browser.UserAgent,
	}, logger)
	if err != nil {
		pg.Close()
		return nil, fmt.Errorf("build browser pool: %w", err)
	}

	baseURL, err := url.Parse(cfg.Portal.BaseURL)
	if err != nil {
		pool.Close()
		pg.Close()
		return nil, fmt.Errorf("parse portal base url: %w", err)
	}

	retry := scraper.NewRetryPolicy(cfg.Scraper.MaxRetries, clock.System{})

	// NavRetries stays at the constructor's fixed default; tuning the
	// backoff retry knob must not widen the plain inner navigation loop.
	discoverer := scraper.NewDiscoverer(pool, pg, pg, retry, scraper.DiscovererConfig{
		ListingURL:        cfg.ListingURL(),
		BaseURL:           baseURL,
		NavigationTimeout: cfg.NavigationTimeout(),
		SettleDelay:       cfg.SettleDelay(),
	}, logger)

	fetcher := scraper.NewDetailFetcher(pool, retry, scraper.FetcherConfig{
		NavigationTimeout: cfg.NavigationTimeout(),
		SectionWait:       cfg.SectionWait(),
	}, logger)

	orchestrator := pipeline.New(discoverer, fetcher, pg, pipeline.Config{
		SubCategories: cfg.Scraper.SubCategories,
		BatchSize:     cfg.Scraper.BatchSize,
	}, clock.System{}, logger)

	server := api.NewServer(orchestrator, pg, pg, logger)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Store:        pg,
		Browser:      pool,
		Orchestrator: orchestrator,
		API:          server,
	}, nil
}

// Close releases the browser pool and database connections.
func (a *App) Close() {
	if a.Browser != nil {
		a.Browser.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}
