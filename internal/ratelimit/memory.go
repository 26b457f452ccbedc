package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process CounterStore fallback. It is safe within
// one process but provides no cross-instance atomicity; multi-instance
// deployments must use the redis store instead.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count int64
	start time.Time
}

type MemoryOption func(*MemoryStore)

// WithClock overrides the time source for window arithmetic.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Incr(ctx context.Context, key string, size time.Duration) (int64, time.Time, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= size {
		w = &window{count: 0, start: now}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.start, nil
}

// Sweep drops windows that elapsed before the cutoff so idle keys don't
// accumulate. The janitor calls it periodically.
func (s *MemoryStore) Sweep(size time.Duration) {
	cutoff := s.now().Add(-size)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, w := range s.windows {
		if w.start.Before(cutoff) {
			delete(s.windows, k)
		}
	}
}

// StartJanitor sweeps elapsed windows every interval until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval, size time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep(size)
			}
		}
	}()
}
