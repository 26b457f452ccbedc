package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_WindowBudget(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore(WithClock(func() time.Time { return now }))
	l := New(store)

	// Four calls inside the window with a budget of three.
	want := []bool{true, true, true, false}
	for i, allowed := range want {
		res, err := l.Allow(context.Background(), "user-1:/api/posts", 3)
		if err != nil {
			t.Fatalf("Allow() call %d error = %v", i+1, err)
		}
		if res.Allowed != allowed {
			t.Errorf("call %d: Allowed = %v, want %v", i+1, res.Allowed, allowed)
		}
		if res.Limit != 3 {
			t.Errorf("call %d: Limit = %d, want 3", i+1, res.Limit)
		}
	}
}

func TestLimiter_RemainingCountsDown(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore(WithClock(func() time.Time { return now }))
	l := New(store)

	for i, want := range []int{2, 1, 0, 0} {
		res, err := l.Allow(context.Background(), "k", 3)
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if res.Remaining != want {
			t.Errorf("call %d: Remaining = %d, want %d", i+1, res.Remaining, want)
		}
	}
}

func TestLimiter_WindowReset(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore(WithClock(func() time.Time { return now }))
	l := New(store)

	for i := 0; i < 4; i++ {
		l.Allow(context.Background(), "k", 3)
	}
	res, _ := l.Allow(context.Background(), "k", 3)
	if res.Allowed {
		t.Fatal("fifth call inside window allowed")
	}

	// Advance past the window: the bucket resets wholesale.
	now = now.Add(61 * time.Second)
	res, err := l.Allow(context.Background(), "k", 3)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !res.Allowed {
		t.Error("call after window elapsed rejected")
	}
	if res.Remaining != 2 {
		t.Errorf("Remaining after reset = %d, want 2", res.Remaining)
	}
}

func TestLimiter_ResetIsWindowEnd(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore(WithClock(func() time.Time { return now }))
	l := New(store)

	res, err := l.Allow(context.Background(), "k", 5)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if got, want := res.Reset, now.Add(time.Minute); !got.Equal(want) {
		t.Errorf("Reset = %v, want %v", got, want)
	}

	// Later calls in the same window keep the original deadline.
	now = now.Add(20 * time.Second)
	res, _ = l.Allow(context.Background(), "k", 5)
	if got, want := res.Reset, now.Add(40*time.Second); !got.Equal(want) {
		t.Errorf("Reset mid-window = %v, want %v", got, want)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	l := New(store)

	for i := 0; i < 3; i++ {
		l.Allow(context.Background(), "a:/api/posts", 2)
	}
	res, err := l.Allow(context.Background(), "b:/api/posts", 2)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !res.Allowed {
		t.Error("exhausting key a rejected key b")
	}
}

func TestLimiter_CustomWindow(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore(WithClock(func() time.Time { return now }))
	l := New(store, WithWindow(time.Second))

	l.Allow(context.Background(), "k", 1)
	res, _ := l.Allow(context.Background(), "k", 1)
	if res.Allowed {
		t.Fatal("second call inside 1s window allowed")
	}

	now = now.Add(time.Second)
	res, _ = l.Allow(context.Background(), "k", 1)
	if !res.Allowed {
		t.Error("call after 1s window rejected")
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore(WithClock(func() time.Time { return now }))

	store.Incr(context.Background(), "stale", time.Minute)
	now = now.Add(2 * time.Minute)
	store.Incr(context.Background(), "live", time.Minute)

	store.Sweep(time.Minute)

	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.windows["stale"]; ok {
		t.Error("Sweep() kept elapsed window")
	}
	if _, ok := store.windows["live"]; !ok {
		t.Error("Sweep() dropped live window")
	}
}
