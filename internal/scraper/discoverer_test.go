package scraper

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alialtamimi/etimad-scraper/internal/store"
)

const searchResultsHTML = `
<div id="cardsresult">
  <div class="tender-card"><h3><a href="/Tender/Details/1">منافسة أولى</a></h3></div>
  <div class="tender-card"><h3><a href="/Tender/Details/2">منافسة ثانية</a></h3></div>
  <div class="tender-card"><h3><a href="/Tender/Details/1">منافسة أولى مكررة</a></h3></div>
</div>`

// fakeSearchDriver scripts navigation and search outcomes per attempt.
type fakeSearchDriver struct {
	mu          sync.Mutex
	navFails    int
	navCalls    int
	searchFails int
	searchCalls int
	html        string
}

func (f *fakeSearchDriver) Navigate(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navCalls++
	if f.navCalls <= f.navFails {
		return errNavTimeout
	}
	return nil
}

func (f *fakeSearchDriver) Search(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchCalls <= f.searchFails {
		return "", errors.New("results container never appeared")
	}
	return f.html, nil
}

func newTestDiscoverer(t *testing.T, drv *fakeSearchDriver, keywords KeywordLookup) (*Discoverer, *fakeAudit) {
	t.Helper()
	base, err := url.Parse("https://tenders.etimad.sa")
	require.NoError(t, err)

	audit := &fakeAudit{}
	d := NewDiscoverer(
		&fakeSessions{},
		keywords,
		audit,
		NewRetryPolicy(3, &fakeSleeper{}),
		DiscovererConfig{
			ListingURL: "https://tenders.etimad.sa/Tender/AllTendersForVisitor",
			BaseURL:    base,
		},
		zap.NewNop(),
	)
	d.newDriver = func() searchDriver { return drv }
	return d, audit
}

func TestNewDiscovererFixedInnerNavRetries(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://tenders.etimad.sa")
	require.NoError(t, err)

	// The inner plain navigation loop is fixed at three attempts and does
	// not follow the outer backoff policy's attempt count.
	d := NewDiscoverer(
		&fakeSessions{},
		&fakeKeywords{},
		&fakeAudit{},
		NewRetryPolicy(7, &fakeSleeper{}),
		DiscovererConfig{
			ListingURL: "https://tenders.etimad.sa/Tender/AllTendersForVisitor",
			BaseURL:    base,
		},
		zap.NewNop(),
	)
	require.Equal(t, 3, d.cfg.NavRetries)
}

func TestDiscoverDeduplicatesByLink(t *testing.T) {
	t.Parallel()

	kw := store.Keyword{ID: 3, ClassificationID: 1}
	drv := &fakeSearchDriver{html: searchResultsHTML}
	d, audit := newTestDiscoverer(t, drv, &fakeKeywords{kw: kw})

	summaries, err := d.Discover(context.Background(), "حوكمة البيانات")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// First-seen order and first-seen title win.
	require.Equal(t, "https://tenders.etimad.sa/Tender/Details/1", summaries[0].Link)
	require.Equal(t, "منافسة أولى", summaries[0].Title)
	require.Equal(t, "https://tenders.etimad.sa/Tender/Details/2", summaries[1].Link)
	require.Equal(t, "حوكمة البيانات", summaries[0].SubCategory)
	require.Equal(t, int64(3), *summaries[0].KeywordID)

	entries := audit.all()
	require.Len(t, entries, 1)
	require.Equal(t, store.ScrapeStatusSuccess, entries[0].status)
	require.Equal(t, 2, entries[0].count)
	require.Equal(t, int64(3), *entries[0].keywordID)
	require.Equal(t, int64(1), *entries[0].classificationID)
}

func TestDiscoverZeroCardsIsSuccess(t *testing.T) {
	t.Parallel()

	drv := &fakeSearchDriver{html: `<div id="cardsresult"></div>`}
	d, audit := newTestDiscoverer(t, drv, &fakeKeywords{kw: store.Keyword{ID: 3, ClassificationID: 1}})

	summaries, err := d.Discover(context.Background(), "ذكاء الأعمال")
	require.NoError(t, err)
	require.Empty(t, summaries)

	entries := audit.all()
	require.Len(t, entries, 1)
	require.Equal(t, store.ScrapeStatusSuccess, entries[0].status)
	require.Zero(t, entries[0].count)
	require.Equal(t, "no relevant tenders found", entries[0].errMsg)
}

func TestDiscoverInnerNavigationRetries(t *testing.T) {
	t.Parallel()

	// Two navigation failures are absorbed by the plain inner retry loop;
	// the outer backoff loop never fires.
	drv := &fakeSearchDriver{navFails: 2, html: searchResultsHTML}
	d, audit := newTestDiscoverer(t, drv, &fakeKeywords{kw: store.Keyword{ID: 3, ClassificationID: 1}})

	summaries, err := d.Discover(context.Background(), "حوكمة البيانات")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, 3, drv.navCalls)
	require.Equal(t, store.ScrapeStatusSuccess, audit.all()[0].status)
}

func TestDiscoverExhaustionLogsFailedAudit(t *testing.T) {
	t.Parallel()

	drv := &fakeSearchDriver{searchFails: 99, html: searchResultsHTML}
	d, audit := newTestDiscoverer(t, drv, &fakeKeywords{kw: store.Keyword{ID: 3, ClassificationID: 1}})

	summaries, err := d.Discover(context.Background(), "استراتيجية البيانات")
	require.NoError(t, err, "exhaustion is isolated, not fatal")
	require.Empty(t, summaries)
	require.Equal(t, 3, drv.searchCalls)

	entries := audit.all()
	require.Len(t, entries, 1)
	require.Equal(t, store.ScrapeStatusFailed, entries[0].status)
	require.Zero(t, entries[0].count)
	require.Contains(t, entries[0].errMsg, "results container never appeared")
}

func TestDiscoverUnknownKeywordStillSearches(t *testing.T) {
	t.Parallel()

	drv := &fakeSearchDriver{html: searchResultsHTML}
	d, audit := newTestDiscoverer(t, drv, &fakeKeywords{err: store.ErrNotFound})

	summaries, err := d.Discover(context.Background(), "مصطلح جديد")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Nil(t, summaries[0].KeywordID)
	require.Nil(t, audit.all()[0].keywordID)
}
