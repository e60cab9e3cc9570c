package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alialtamimi/etimad-scraper/internal/store"
)

// fakeSessions runs the session body directly, no browser involved.
type fakeSessions struct {
	mu    sync.Mutex
	count int
	err   error
}

func (f *fakeSessions) WithSession(ctx context.Context, fn func(tab context.Context) error) error {
	f.mu.Lock()
	f.count++
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return fn(ctx)
}

func (f *fakeSessions) sessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// fakeSleeper records requested delays instead of sleeping.
type fakeSleeper struct {
	mu     sync.Mutex
	slept  []time.Duration
	errOut error
}

func (f *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slept = append(f.slept, d)
	return f.errOut
}

func (f *fakeSleeper) delays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.slept...)
}

type auditEntry struct {
	keywordID        *int64
	classificationID *int64
	count            int
	status           string
	errMsg           string
}

// fakeAudit collects scraping log rows.
type fakeAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (f *fakeAudit) LogScraping(_ context.Context, keywordID, classificationID *int64, count int, status, errMsg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditEntry{keywordID, classificationID, count, status, errMsg})
}

func (f *fakeAudit) all() []auditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]auditEntry(nil), f.entries...)
}

// fakeKeywords resolves every term to one keyword, or fails.
type fakeKeywords struct {
	kw  store.Keyword
	err error
}

func (f *fakeKeywords) LookupKeyword(context.Context, string) (store.Keyword, error) {
	if f.err != nil {
		return store.Keyword{}, f.err
	}
	return f.kw, nil
}

var errNavTimeout = errors.New("page load timed out")
