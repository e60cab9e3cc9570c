// Package pipeline sequences the scrape phases: discover metadata across all
// sub-categories, fetch every unique tender's details, persist each record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alialtamimi/etimad-scraper/internal/clock"
	"github.com/alialtamimi/etimad-scraper/internal/etimad"
	"github.com/alialtamimi/etimad-scraper/internal/metrics"
	"github.com/alialtamimi/etimad-scraper/internal/store"
)

// ErrAlreadyRunning is returned when a run is requested while one is active.
// The second request is rejected, never queued.
var ErrAlreadyRunning = errors.New("pipeline run already in progress")

// State is the orchestrator's lifecycle position.
type State string

// Pipeline states.
const (
	StateIdle        State = "idle"
	StateDiscovering State = "discovering"
	StateDetailing   State = "detailing"
	StatePersisting  State = "persisting"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Discoverer yields the tender summaries for one sub-category. Its error is
// non-nil only for fatal conditions (dead context); per-category failures
// come back as an empty slice.
type Discoverer interface {
	Discover(ctx context.Context, subCategory string) ([]etimad.TenderSummary, error)
}

// DetailFetcher scrapes one tender page. It never fails outright; degraded
// outcomes are carried on the record.
type DetailFetcher interface {
	FetchDetails(ctx context.Context, sum etimad.TenderSummary) etimad.TenderDetailRecord
}

// TenderStore persists normalized tender rows.
type TenderStore interface {
	UpsertTender(ctx context.Context, t store.Tender) error
}

// Config controls phase fan-out.
type Config struct {
	// SubCategories are the search terms driving discovery, one concurrent
	// task each.
	SubCategories []string
	// BatchSize chunks detail fetching into sequential batches. Within a
	// batch all fetches run concurrently under the browser admission gate.
	BatchSize int
}

// Report summarizes one pipeline run. Duration is kept as a time.Duration
// for callers; the JSON form carries seconds, not raw nanoseconds.
type Report struct {
	RunID           uuid.UUID     `json:"run_id"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"-"`
	DurationSeconds float64       `json:"duration_seconds"`
	Discovered      int           `json:"discovered"`
	Fetched         int           `json:"fetched"`
	Saved           int           `json:"saved"`
	Failed          int           `json:"failed"`
	Warning         string        `json:"warning,omitempty"`
}

// Orchestrator owns the running flag and the three-phase state machine.
type Orchestrator struct {
	discoverer Discoverer
	fetcher    DetailFetcher
	tenders    TenderStore
	cfg        Config
	clk        clock.Clock
	logger     *zap.Logger

	running    atomic.Bool
	mu         sync.Mutex
	state      State
	lastReport *Report
}

// New constructs an Orchestrator in the idle state.
func New(
	discoverer Discoverer,
	fetcher DetailFetcher,
	tenders TenderStore,
	cfg Config,
	clk clock.Clock,
	logger *zap.Logger,
) *Orchestrator {
	if clk == nil {
		clk = clock.System{}
	}
	return &Orchestrator{
		discoverer: discoverer,
		fetcher:    fetcher,
		tenders:    tenders,
		cfg:        cfg,
		clk:        clk,
		logger:     logger,
		state:      StateIdle,
	}
}

// Status returns the current state and the report of the last finished run,
// if any.
func (o *Orchestrator) Status() (State, *Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastReport == nil {
		return o.state, nil
	}
	rep := *o.lastReport
	return o.state, &rep
}

// Run executes one full pipeline run and blocks until it finishes. A second
// concurrent call fails immediately with ErrAlreadyRunning.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	if !o.running.CompareAndSwap(false, true) {
		return Report{}, ErrAlreadyRunning
	}
	defer o.running.Store(false)
	return o.run(ctx, uuid.New())
}

// Start launches a run in the background and returns its id, for callers
// like the dashboard trigger that must respond immediately. The run outlives
// the caller's request context.
func (o *Orchestrator) Start(ctx context.Context) (uuid.UUID, error) {
	if !o.running.CompareAndSwap(false, true) {
		return uuid.Nil, ErrAlreadyRunning
	}
	id := uuid.New()
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer o.running.Store(false)
		if _, err := o.run(runCtx, id); err != nil {
			o.logger.Error("background pipeline run failed",
				zap.String("run_id", id.String()),
				zap.Error(err))
		}
	}()
	return id, nil
}

func (o *Orchestrator) run(ctx context.Context, id uuid.UUID) (Report, error) {
	log := o.logger.With(zap.String("run_id", id.String()))
	started := o.clk.Now()
	rep := Report{RunID: id, StartedAt: started}

	log.Info("pipeline run starting", zap.Strings("sub_categories", o.cfg.SubCategories))

	o.setState(StateDiscovering)
	summaries, err := o.discoverAll(ctx, log)
	if err != nil {
		o.finish(StateFailed, &rep, started)
		metrics.ObservePipelineRun("failed")
		return rep, fmt.Errorf("discovery phase: %w", err)
	}
	rep.Discovered = len(summaries)

	if len(summaries) == 0 {
		rep.Warning = "no metadata found - nothing to fetch"
		log.Warn(rep.Warning)
		o.finish(StateDone, &rep, started)
		metrics.ObservePipelineRun("empty")
		return rep, nil
	}

	o.setState(StateDetailing)
	records := o.fetchAll(ctx, summaries, log)
	for _, rec := range records {
		if rec.Err == "" {
			rep.Fetched++
		}
	}

	o.setState(StatePersisting)
	o.persistAll(ctx, records, &rep, log)

	o.finish(StateDone, &rep, started)
	metrics.ObservePipelineRun("succeeded")
	log.Info("pipeline run complete",
		zap.Int("discovered", rep.Discovered),
		zap.Int("fetched", rep.Fetched),
		zap.Int("saved", rep.Saved),
		zap.Int("failed", rep.Failed),
		zap.Duration("duration", rep.Duration))
	return rep, nil
}

// discoverAll fans out one discovery task per sub-category and joins them
// all. Results are flattened in configuration order and deduplicated by
// link, first seen wins.
func (o *Orchestrator) discoverAll(ctx context.Context, log *zap.Logger) ([]etimad.TenderSummary, error) {
	phaseStart := o.clk.Now()
	results := make([][]etimad.TenderSummary, len(o.cfg.SubCategories))
	errs := make([]error, len(o.cfg.SubCategories))

	var wg sync.WaitGroup
	for i, term := range o.cfg.SubCategories {
		wg.Add(1)
		go func(i int, term string) {
			defer wg.Done()
			results[i], errs[i] = o.discoverer.Discover(ctx, term)
		}(i, term)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{})
	var all []etimad.TenderSummary
	for _, batch := range results {
		for _, sum := range batch {
			if _, dup := seen[sum.Link]; dup {
				continue
			}
			seen[sum.Link] = struct{}{}
			all = append(all, sum)
		}
	}

	metrics.ObservePhase("discover", o.clk.Now().Sub(phaseStart))
	log.Info("metadata discovery phase complete",
		zap.Int("sub_categories", len(o.cfg.SubCategories)),
		zap.Int("unique_tenders", len(all)))
	return all, nil
}

// fetchAll processes summaries in sequential batches; within a batch every
// fetch runs concurrently, bounded by the browser session gate. A batch must
// fully complete before the next one starts.
func (o *Orchestrator) fetchAll(ctx context.Context, summaries []etimad.TenderSummary, log *zap.Logger) []etimad.TenderDetailRecord {
	phaseStart := o.clk.Now()
	records := make([]etimad.TenderDetailRecord, len(summaries))

	batchSize := o.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(summaries)
	}

	for start := 0; start < len(summaries); start += batchSize {
		end := start + batchSize
		if end > len(summaries) {
			end = len(summaries)
		}
		log.Info("processing detail batch",
			zap.Int("batch", start/batchSize+1),
			zap.Int("size", end-start))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				records[i] = o.fetcher.FetchDetails(ctx, summaries[i])
			}(i)
		}
		wg.Wait()
	}

	metrics.ObservePhase("detail", o.clk.Now().Sub(phaseStart))
	return records
}

// persistAll maps and upserts each record independently, continuing past
// individual failures. Records whose extraction degraded are still attempted
// when they carry the identity fields the row requires; the rest count as
// misses.
func (o *Orchestrator) persistAll(ctx context.Context, records []etimad.TenderDetailRecord, rep *Report, log *zap.Logger) {
	phaseStart := o.clk.Now()

	for _, rec := range records {
		tender, err := store.TenderFromRecord(rec)
		if err != nil {
			log.Warn("skipping unmappable record",
				zap.String("link", rec.Link),
				zap.String("extraction_error", rec.Err),
				zap.Error(err))
			rep.Failed++
			metrics.ObserveTenderSaved(false)
			continue
		}
		if err := o.tenders.UpsertTender(ctx, tender); err != nil {
			log.Error("failed to save tender",
				zap.String("tender_number", tender.TenderNumber),
				zap.Error(err))
			rep.Failed++
			metrics.ObserveTenderSaved(false)
			continue
		}
		rep.Saved++
		metrics.ObserveTenderSaved(true)
	}

	metrics.ObservePhase("persist", o.clk.Now().Sub(phaseStart))
	log.Info("persistence phase complete",
		zap.Int("saved", rep.Saved),
		zap.Int("total", len(records)))
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) finish(s State, rep *Report, started time.Time) {
	rep.Duration = o.clk.Now().Sub(started)
	rep.DurationSeconds = rep.Duration.Seconds()
	o.mu.Lock()
	o.state = s
	snapshot := *rep
	o.lastReport = &snapshot
	o.mu.Unlock()
}
