package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/alialtamimi/etimad-scraper/internal/etimad"
	"github.com/alialtamimi/etimad-scraper/internal/metrics"
	"github.com/alialtamimi/etimad-scraper/internal/store"
)

// KeywordLookup resolves a search term to its classification keyword.
type KeywordLookup interface {
	LookupKeyword(ctx context.Context, term string) (store.Keyword, error)
}

// AuditLog records one discovery attempt per sub-category per run.
type AuditLog interface {
	LogScraping(ctx context.Context, keywordID, classificationID *int64, count int, status, errMsg string)
}

// DiscovererConfig holds the portal knobs for metadata discovery.
type DiscovererConfig struct {
	// ListingURL is the visitor-facing tender listing page.
	ListingURL string
	// BaseURL resolves relative card links to absolute ones.
	BaseURL *url.URL
	// NavRetries bounds the plain (no backoff) inner navigation retries.
	NavRetries        int
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
}

// Discoverer runs a portal search for one sub-category and collects the
// resulting tender summary cards.
type Discoverer struct {
	sessions  SessionRunner
	keywords  KeywordLookup
	audit     AuditLog
	retry     *RetryPolicy
	cfg       DiscovererConfig
	newDriver func() searchDriver
	logger    *zap.Logger
}

// NewDiscoverer wires a Discoverer against real chromedp drivers.
func NewDiscoverer(
	sessions SessionRunner,
	keywords KeywordLookup,
	audit AuditLog,
	retry *RetryPolicy,
	cfg DiscovererConfig,
	logger *zap.Logger,
) *Discoverer {
	if cfg.NavRetries <= 0 {
		cfg.NavRetries = 3
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	d := &Discoverer{
		sessions: sessions,
		keywords: keywords,
		audit:    audit,
		retry:    retry,
		cfg:      cfg,
		logger:   logger,
	}
	d.newDriver = func() searchDriver {
		return chromeDriver{
			navTimeout:  cfg.NavigationTimeout,
			settleDelay: cfg.SettleDelay,
		}
	}
	return d
}

// Discover searches the portal for one sub-category and returns the unique
// tender summaries found, first-seen order preserved. Failures are isolated:
// exhausting all attempts logs a failed audit row and yields an empty slice.
// The returned error is non-nil only when the surrounding context died, which
// the orchestrator treats as fatal.
func (d *Discoverer) Discover(ctx context.Context, subCategory string) ([]etimad.TenderSummary, error) {
	log := d.logger.With(zap.String("sub_category", subCategory))
	log.Info("starting metadata discovery")

	keywordID, classificationID := d.resolveKeyword(ctx, subCategory, log)

	var summaries []etimad.TenderSummary
	err := d.retry.Do(ctx, func(ctx context.Context) error {
		found, err := d.collect(ctx, subCategory, keywordID)
		if err != nil {
			return err
		}
		summaries = found
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error("discovery failed after all attempts", zap.Error(err))
		d.audit.LogScraping(ctx, keywordID, classificationID, 0, store.ScrapeStatusFailed, err.Error())
		metrics.ObserveDiscovery(false)
		return nil, nil
	}

	note := ""
	if len(summaries) == 0 {
		log.Warn("no relevant tenders found")
		note = "no relevant tenders found"
	}
	d.audit.LogScraping(ctx, keywordID, classificationID, len(summaries), store.ScrapeStatusSuccess, note)
	metrics.ObserveDiscovery(true)
	metrics.AddTendersDiscovered(len(summaries))

	log.Info("discovery finished", zap.Int("tenders", len(summaries)))
	return summaries, nil
}

func (d *Discoverer) resolveKeyword(ctx context.Context, subCategory string, log *zap.Logger) (*int64, *int64) {
	kw, err := d.keywords.LookupKeyword(ctx, subCategory)
	switch {
	case err == nil:
		return &kw.ID, &kw.ClassificationID
	case errors.Is(err, store.ErrNotFound):
		log.Warn("sub-category has no classification keyword")
	default:
		log.Warn("keyword lookup failed", zap.Error(err))
	}
	return nil, nil
}

// collect runs one full search attempt in its own browser session.
func (d *Discoverer) collect(ctx context.Context, term string, keywordID *int64) ([]etimad.TenderSummary, error) {
	var summaries []etimad.TenderSummary
	err := d.sessions.WithSession(ctx, func(tab context.Context) error {
		drv := d.newDriver()

		var navErr error
		for attempt := 0; attempt < d.cfg.NavRetries; attempt++ {
			if navErr = drv.Navigate(tab, d.cfg.ListingURL); navErr == nil {
				break
			}
			d.logger.Warn("listing navigation failed",
				zap.Int("attempt", attempt+1),
				zap.Error(navErr))
		}
		if navErr != nil {
			return fmt.Errorf("navigate listing: %w", navErr)
		}

		html, err := drv.Search(tab, term)
		if err != nil {
			return err
		}

		cards, err := etimad.ParseCards(html, d.cfg.BaseURL)
		if err != nil {
			return err
		}

		seen := make(map[string]struct{}, len(cards))
		for _, card := range cards {
			if _, dup := seen[card.Link]; dup {
				continue
			}
			seen[card.Link] = struct{}{}
			summaries = append(summaries, etimad.TenderSummary{
				Title:       card.Title,
				Link:        card.Link,
				SubCategory: term,
				KeywordID:   keywordID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
