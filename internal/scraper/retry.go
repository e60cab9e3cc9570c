// Package scraper drives the Etimad portal through headless browser sessions:
// metadata discovery via portal search and per-tender detail extraction.
package scraper

import (
	"context"
	"time"

	"github.com/alialtamimi/etimad-scraper/internal/clock"
)

// RetryPolicy is the bounded retry loop shared by discovery and detail
// fetching. Backoff doubles each attempt (unit, 2*unit, 4*unit, ...). The
// sleeper is injectable so tests run without real delays.
type RetryPolicy struct {
	MaxAttempts int
	Unit        time.Duration
	Sleeper     clock.Sleeper
}

// NewRetryPolicy builds a policy with one-second backoff units.
func NewRetryPolicy(maxAttempts int, sleeper clock.Sleeper) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if sleeper == nil {
		sleeper = clock.System{}
	}
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		Unit:        time.Second,
		Sleeper:     sleeper,
	}
}

// Backoff returns the wait before retrying after the given zero-based attempt.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	return p.Unit << attempt
}

// Do runs op until it succeeds or MaxAttempts is exhausted, sleeping the
// backoff between attempts. The last error is returned on exhaustion. A dead
// context stops the loop immediately.
func (p *RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		if sleepErr := p.Sleeper.Sleep(ctx, p.Backoff(attempt)); sleepErr != nil {
			return err
		}
	}
	return err
}
