// Package retry wraps network-bound operations with bounded exponential
// backoff and keeps a per-operation attempt counter so repeated failures of
// the same logical operation share one budget.
package retry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"pitchperfect/fault"
)

const maxJitter = time.Second

type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2,
	}
}

// Retrier holds attempt counters keyed by operation id. One instance is
// shared across all callers; it is safe for concurrent use.
type Retrier struct {
	cfg Config

	mu       sync.Mutex
	attempts map[string]int
}

func New(cfg Config) *Retrier {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = 2
	}
	return &Retrier{cfg: cfg, attempts: make(map[string]int)}
}

// Do invokes fn, retrying retryable failures with exponential backoff plus
// jitter. The counter for operationID is cleared on success, on a
// non-retryable error, and when the retry budget is exhausted. Backoff waits
// are cancelled by ctx.
func (r *Retrier) Do(ctx context.Context, operationID string, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			r.clear(operationID)
			return nil
		}

		attempt := r.bump(operationID)
		if !fault.Retryable(err) || attempt > r.cfg.MaxRetries {
			r.clear(operationID)
			return err
		}

		delay := r.delayFor(attempt - 1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			r.clear(operationID)
			return ctx.Err()
		}
	}
}

// Attempts returns the current attempt count for an operation id.
func (r *Retrier) Attempts(operationID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[operationID]
}

func (r *Retrier) bump(operationID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[operationID]++
	return r.attempts[operationID]
}

func (r *Retrier) clear(operationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, operationID)
}

func (r *Retrier) delayFor(attempt int) time.Duration {
	d := float64(r.cfg.BaseDelay)
	for i := 0; i < attempt; i++ {
		d *= r.cfg.Multiplier
		if d >= float64(r.cfg.MaxDelay) {
			d = float64(r.cfg.MaxDelay)
			break
		}
	}
	return time.Duration(d) + time.Duration(rand.Int63n(int64(maxJitter)))
}
