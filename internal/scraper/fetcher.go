package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alialtamimi/etimad-scraper/internal/etimad"
	"github.com/alialtamimi/etimad-scraper/internal/metrics"
)

// FetcherConfig holds the portal knobs for detail extraction.
type FetcherConfig struct {
	NavigationTimeout time.Duration
	// SectionWait bounds how long the second tab may take to render its
	// marker field.
	SectionWait time.Duration
}

// DetailFetcher scrapes one tender page into a TenderDetailRecord.
type DetailFetcher struct {
	sessions  SessionRunner
	retry     *RetryPolicy
	cfg       FetcherConfig
	newDriver func() detailDriver
	logger    *zap.Logger
}

// NewDetailFetcher wires a DetailFetcher against real chromedp drivers.
func NewDetailFetcher(
	sessions SessionRunner,
	retry *RetryPolicy,
	cfg FetcherConfig,
	logger *zap.Logger,
) *DetailFetcher {
	if cfg.SectionWait <= 0 {
		cfg.SectionWait = 10 * time.Second
	}
	f := &DetailFetcher{
		sessions: sessions,
		retry:    retry,
		cfg:      cfg,
		logger:   logger,
	}
	f.newDriver = func() detailDriver {
		return chromeDriver{
			navTimeout:  cfg.NavigationTimeout,
			sectionWait: cfg.SectionWait,
		}
	}
	return f
}

// FetchDetails scrapes the tender behind one summary. The record is never
// discarded: navigation retry exhaustion yields {Link, Err}, and extraction
// failures keep whatever fields were gathered before the failure. The browser
// session is owned exclusively for this link and torn down before the
// concurrency slot is reused.
func (f *DetailFetcher) FetchDetails(ctx context.Context, sum etimad.TenderSummary) etimad.TenderDetailRecord {
	rec := etimad.TenderDetailRecord{
		Link:      sum.Link,
		KeywordID: sum.KeywordID,
		Fields:    make(map[string]string),
	}

	err := f.sessions.WithSession(ctx, func(tab context.Context) error {
		drv := f.newDriver()

		navErr := f.retry.Do(tab, func(ctx context.Context) error {
			return drv.Navigate(ctx, sum.Link)
		})
		if navErr != nil {
			rec.Err = fmt.Sprintf("timeout loading page: %v", navErr)
			f.logger.Error("detail navigation exhausted retries",
				zap.String("link", sum.Link),
				zap.Error(navErr))
			return nil
		}

		raw1, err := drv.SectionText(tab, selDetailTab1, selDetailPanel1, "")
		if err != nil {
			rec.Err = err.Error()
			return nil
		}
		mergeFields(rec.Fields, etimad.ExtractFields(raw1, etimad.Section1Labels))

		raw2, err := drv.SectionText(tab, selDetailTab2, selDetailPanel2, etimad.LabelInquiryDeadline)
		if err != nil {
			rec.Err = err.Error()
			return nil
		}
		mergeFields(rec.Fields, etimad.ExtractFields(raw2, etimad.Section2Labels))

		if err := rec.Serialize(); err != nil {
			rec.Err = fmt.Sprintf("serialize raw copy: %v", err)
		}
		return nil
	})
	if err != nil && rec.Err == "" {
		// Session-level failure (slot wait canceled, tab setup).
		rec.Err = err.Error()
	}

	ok := rec.Err == ""
	metrics.ObserveDetailFetch(ok)
	if ok {
		f.logger.Debug("extracted tender",
			zap.String("tender_number", rec.Field(etimad.LabelTenderNumber)),
			zap.String("link", sum.Link))
	}
	return rec
}

func mergeFields(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}
