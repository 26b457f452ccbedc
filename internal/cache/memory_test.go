package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory()

	err := m.Set(context.Background(), "k1", []byte(`{"a":1}`), 30*time.Second)
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	data, ok, err := m.Get(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want hit")
	}
	if string(data) != `{"a":1}` {
		t.Errorf("data = %s, want {\"a\":1}", data)
	}
}

func TestMemory_MissingKey(t *testing.T) {
	m := NewMemory()

	_, ok, err := m.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true for missing key")
	}
}

func TestMemory_ExpiryIsLazy(t *testing.T) {
	now := time.Now()
	m := NewMemory(WithClock(func() time.Time { return now }))

	if err := m.Set(context.Background(), "k", []byte("v"), 10*time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Still fresh just before the deadline.
	now = now.Add(9 * time.Second)
	if _, ok, _ := m.Get(context.Background(), "k"); !ok {
		t.Fatal("entry expired early")
	}

	// At the deadline the entry is a miss and gets evicted.
	now = now.Add(time.Second)
	if _, ok, _ := m.Get(context.Background(), "k"); ok {
		t.Fatal("expired entry still served")
	}

	m.mu.RLock()
	_, still := m.entries["k"]
	m.mu.RUnlock()
	if still {
		t.Error("expired entry not evicted on read")
	}
}

func TestMemory_ZeroTTLDisablesWrite(t *testing.T) {
	m := NewMemory()

	if err := m.Set(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok, _ := m.Get(context.Background(), "k"); ok {
		t.Error("zero-TTL write was stored")
	}
}

func TestMemory_Sweep(t *testing.T) {
	now := time.Now()
	m := NewMemory(WithClock(func() time.Time { return now }))

	m.Set(context.Background(), "old", []byte("v"), time.Second)
	m.Set(context.Background(), "fresh", []byte("v"), time.Hour)

	now = now.Add(2 * time.Second)
	m.Sweep()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.entries["old"]; ok {
		t.Error("Sweep() kept expired entry")
	}
	if _, ok := m.entries["fresh"]; !ok {
		t.Error("Sweep() removed live entry")
	}
}

func TestStrategies_For(t *testing.T) {
	mem := NewMemory()
	s := Strategies{InMemory: mem}

	if got := s.For("in_memory"); got != Store(mem) {
		t.Errorf("For(in_memory) = %v, want memory store", got)
	}
	if got := s.For("cdn"); got != nil {
		t.Errorf("For(cdn) = %v, want nil", got)
	}
	if got := s.For("none"); got != nil {
		t.Errorf("For(none) = %v, want nil", got)
	}
	if got := s.For("redis"); got != nil {
		t.Errorf("For(redis) = %v, want nil when unconfigured", got)
	}
}
