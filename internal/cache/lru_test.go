package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c := NewLRUCache[int](2, time.Hour, WithEvictHook(func(k string, _ int) {
		evicted = append(evicted, k)
	}))

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Errorf("evicted = %v, want [b]", evicted)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestLRUCache_IdleTTL(t *testing.T) {
	clk := newClock()
	c := NewLRUCache[string](10, 30*time.Minute, WithClock[string](clk.Now))

	c.Set("ann", "session")
	clk.Advance(20 * time.Minute)
	if _, ok := c.Get("ann"); !ok {
		t.Fatal("entry expired too early")
	}
	// The read above refreshed the deadline.
	clk.Advance(20 * time.Minute)
	if _, ok := c.Get("ann"); !ok {
		t.Fatal("read did not refresh the deadline")
	}
	clk.Advance(31 * time.Minute)
	if _, ok := c.Get("ann"); ok {
		t.Fatal("entry should be expired")
	}
}

func TestLRUCache_SetReplacesWithoutHook(t *testing.T) {
	calls := 0
	c := NewLRUCache[int](2, time.Hour, WithEvictHook(func(string, int) { calls++ }))
	c.Set("a", 1)
	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("Get(a) = %d, want 2", v)
	}
	if calls != 0 {
		t.Errorf("hook fired %d times on replace", calls)
	}
	c.Delete("a")
	c.Delete("a")
	if calls != 1 {
		t.Errorf("hook fired %d times, want 1 after Delete", calls)
	}
}

func TestManager_Sweep(t *testing.T) {
	clk := newClock()
	var evicted []string
	sessions := NewLRUCache[int](10, time.Minute,
		WithClock[int](clk.Now),
		WithEvictHook(func(k string, _ int) { evicted = append(evicted, k) }),
	)
	sessions.Set("old", 1)
	clk.Advance(30 * time.Second)
	sessions.Set("new", 2)
	clk.Advance(45 * time.Second)

	m := NewManager(sessions)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if len(evicted) != 1 || evicted[0] != "old" {
		t.Errorf("evicted = %v, want [old]", evicted)
	}
	if sessions.Len() != 1 {
		t.Errorf("Len() = %d, want 1", sessions.Len())
	}
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Stop()
	m.Stop()
}

func TestManager_StartStop(t *testing.T) {
	m := NewManager(NewLRUCache[int](1, time.Millisecond))
	m.Start(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
}
