package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// CounterStore records one request against a fixed-window counter and
// returns the updated count together with the window's start. When the
// window has elapsed the store resets the counter to 1 and starts a new
// window. Implementations must be atomic under concurrent callers.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, windowStart time.Time, err error)
}

// Result is the outcome of one rate-limit check. Reset is the time the
// current window is expected to clear.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter enforces a per-key request budget over a fixed window (a
// sliding-window approximation: the bucket resets wholesale). Exceeding
// the budget is a normal rejection outcome, not an error.
type Limiter struct {
	store  CounterStore
	window time.Duration
}

type Option func(*Limiter)

// WithWindow overrides the one-minute default window.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

func New(store CounterStore, opts ...Option) *Limiter {
	l := &Limiter{store: store, window: time.Minute}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records the request and reports whether it fits the limit. The
// counter advances even for rejected requests; Remaining never goes below
// zero.
func (l *Limiter) Allow(ctx context.Context, key string, limit int) (Result, error) {
	count, start, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %q: %w", key, err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		Reset:     start.Add(l.window),
	}, nil
}
