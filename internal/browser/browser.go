// Package browser manages headless Chrome sessions via chromedp. A single
// exec allocator is shared by the whole process; each scrape operation gets
// its own tab context that is torn down before its concurrency slot is
// released.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls the shared browser pool.
type Config struct {
	// MaxSessions bounds how many tabs may drive the portal at once.
	// Zero disables the limit.
	MaxSessions int
	// SessionTimeout is a hard ceiling on one scrape operation, covering
	// navigation retries and extraction together.
	SessionTimeout time.Duration
	Headless       bool
	UserAgent      string
}

// Pool owns the chromedp allocator and the admission gate bounding
// concurrent sessions.
type Pool struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	limiter     chan struct{}
	logger      *zap.Logger
}

// NewPool builds the shared allocator. Chrome itself is only launched when
// the first session runs.
func NewPool(cfg Config, logger *zap.Logger) (*Pool, error) {
	if cfg.MaxSessions < 0 {
		return nil, fmt.Errorf("max sessions must be >= 0")
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 5 * time.Minute
	}

	var limiter chan struct{}
	if cfg.MaxSessions > 0 {
		limiter = make(chan struct{}, cfg.MaxSessions)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("lang", "ar"),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Pool{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		limiter:     limiter,
		logger:      logger,
	}, nil
}

// Close cancels the allocator, killing any remaining browser processes.
func (p *Pool) Close() {
	p.allocCancel()
}

// WithSession acquires a concurrency slot, runs fn against a fresh tab
// context, and guarantees the tab and the slot are released afterwards in
// all cases. The tab context carries the pool's session timeout.
func (p *Pool) WithSession(ctx context.Context, fn func(tab context.Context) error) error {
	if err := p.acquire(ctx); err != nil {
		return err
	}
	defer p.release()

	tabCtx, tabCancel := chromedp.NewContext(p.allocator)
	defer tabCancel()

	tabCtx, cancel := context.WithTimeout(tabCtx, p.cfg.SessionTimeout)
	defer cancel()

	return fn(tabCtx)
}

func (p *Pool) acquire(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	select {
	case p.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session slot wait canceled: %w", ctx.Err())
	}
}

func (p *Pool) release() {
	if p.limiter == nil {
		return
	}
	<-p.limiter
}
