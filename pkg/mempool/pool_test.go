package mempool

import (
	"errors"
	"testing"
	"time"
)

// fakeClock gives tests control over block age and recency.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestPool(t *testing.T, maxBytes uint64, opts ...Option) *Pool {
	t.Helper()
	return New(maxBytes, opts...)
}

func TestAllocateAndAccessors(t *testing.T) {
	p := newTestPool(t, 1000)

	buf, err := p.Allocate("logo", 400, 1)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if len(buf) != 400 {
		t.Fatalf("buffer length = %d, want 400", len(buf))
	}

	if !p.Has("logo") {
		t.Error("Has(logo) = false after allocation")
	}
	if got := p.Used(); got != 400 {
		t.Errorf("Used() = %d, want 400", got)
	}
	if got := p.Free(); got != 600 {
		t.Errorf("Free() = %d, want 600", got)
	}
	if got := p.UsagePercent(); got != 40 {
		t.Errorf("UsagePercent() = %v, want 40", got)
	}
	if got := p.BlockCount(); got != 1 {
		t.Errorf("BlockCount() = %d, want 1", got)
	}
	if p.IsLowMemory() {
		t.Error("IsLowMemory() = true at 40% usage")
	}

	info, ok := p.BlockInfo("logo")
	if !ok {
		t.Fatal("BlockInfo(logo) not found")
	}
	if info.AccessCount != 1 {
		t.Errorf("new block AccessCount = %d, want 1", info.AccessCount)
	}
	if info.Locked {
		t.Error("new block should not be locked")
	}
}

func TestAllocateInvalidSize(t *testing.T) {
	p := newTestPool(t, 1000)

	for _, size := range []int{0, -1} {
		if _, err := p.Allocate("bad", size, 1); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("Allocate(size=%d) error = %v, want ErrInvalidSize", size, err)
		}
	}
	if p.Has("bad") {
		t.Error("failed allocation must not register a block")
	}
}

func TestAllocateLargerThanBudget(t *testing.T) {
	p := newTestPool(t, 1000)

	if _, err := p.Allocate("huge", 1001, 1); !errors.Is(err, ErrBlockTooLarge) {
		t.Fatalf("error = %v, want ErrBlockTooLarge", err)
	}
}

func TestReplaceSemantics(t *testing.T) {
	p := newTestPool(t, 1000)

	if _, err := p.Allocate("res", 600, 1); err != nil {
		t.Fatalf("first Allocate failed: %v", err)
	}
	if _, err := p.Allocate("res", 200, 1); err != nil {
		t.Fatalf("second Allocate failed: %v", err)
	}

	if got := p.Used(); got != 200 {
		t.Errorf("Used() = %d after replace, want 200 (old block fully released)", got)
	}
	if got := p.BlockCount(); got != 1 {
		t.Errorf("BlockCount() = %d after replace, want 1", got)
	}

	info, _ := p.BlockInfo("res")
	if info.Size != 200 {
		t.Errorf("block size = %d, want second call's 200", info.Size)
	}
}

func TestDeallocate(t *testing.T) {
	p := newTestPool(t, 1000)

	if _, err := p.Allocate("res", 100, 1); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if !p.Deallocate("res") {
		t.Error("Deallocate(res) = false for resident block")
	}
	if p.Has("res") {
		t.Error("block still resident after Deallocate")
	}
	if got := p.Used(); got != 0 {
		t.Errorf("Used() = %d after Deallocate, want 0", got)
	}

	if p.Deallocate("res") {
		t.Error("Deallocate of unknown id must return false")
	}
}

func TestUnknownIDsAreSafeNoOps(t *testing.T) {
	p := newTestPool(t, 1000)

	p.UpdateAccess("ghost")
	if p.SetLocked("ghost", true) {
		t.Error("SetLocked on unknown id must return false")
	}
	if p.SetPriority("ghost", 5) {
		t.Error("SetPriority on unknown id must return false")
	}
	if _, ok := p.Buffer("ghost"); ok {
		t.Error("Buffer on unknown id must report not found")
	}
	if _, ok := p.BlockInfo("ghost"); ok {
		t.Error("BlockInfo on unknown id must report not found")
	}
}

func TestUpdateAccess(t *testing.T) {
	clock := newFakeClock()
	p := newTestPool(t, 1000, WithClock(clock.now))

	if _, err := p.Allocate("res", 100, 1); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	created := clock.t

	clock.advance(5 * time.Second)
	p.UpdateAccess("res")
	p.UpdateAccess("res")

	info, _ := p.BlockInfo("res")
	if info.AccessCount != 3 {
		t.Errorf("AccessCount = %d, want 3 (1 from allocation + 2 reads)", info.AccessCount)
	}
	if !info.LastAccessed.After(created) {
		t.Error("LastAccessed not refreshed by UpdateAccess")
	}
}

func TestBudgetInvariant(t *testing.T) {
	p := newTestPool(t, 1000)

	// Arbitrary store/remove sequence; resident bytes must never exceed the
	// budget after any successful call.
	ops := []struct {
		id     string
		size   int
		remove bool
	}{
		{"a", 300, false},
		{"b", 300, false},
		{"c", 300, false},
		{"a", 0, true},
		{"d", 500, false},
		{"e", 400, false},
		{"f", 250, false},
		{"b", 0, true},
		{"g", 600, false},
	}

	for _, op := range ops {
		if op.remove {
			p.Deallocate(op.id)
		} else {
			_, err := p.Allocate(op.id, op.size, 1)
			if err != nil && !errors.Is(err, ErrPoolExhausted) {
				t.Fatalf("Allocate(%s) unexpected error: %v", op.id, err)
			}
		}
		if used := p.Used(); used > p.MaxSize() {
			t.Fatalf("budget violated: used %d > max %d", used, p.MaxSize())
		}
	}
}

func TestThresholdTriggersCleanup(t *testing.T) {
	clock := newFakeClock()
	p := newTestPool(t, 1000, WithClock(clock.now), WithCleanupThreshold(0.8))

	if _, err := p.Allocate("old", 500, 1); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	clock.advance(time.Minute)

	// 500 + 400 = 900 > 800 threshold: the pass must run first and evict
	// "old" (the only candidate).
	if _, err := p.Allocate("new", 400, 1); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if p.Has("old") {
		t.Error("threshold-triggered cleanup did not evict the idle block")
	}
	if !p.Has("new") {
		t.Error("new block missing after allocation")
	}
}

func TestExhaustionAfterCleanup(t *testing.T) {
	p := newTestPool(t, 1000)

	if _, err := p.Allocate("pinned", 900, 1); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if !p.SetLocked("pinned", true) {
		t.Fatal("SetLocked failed")
	}

	_, err := p.Allocate("more", 500, 1)
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("error = %v, want ErrPoolExhausted", err)
	}
	if p.Has("more") {
		t.Error("failed allocation must not register a block")
	}
	if !p.Has("pinned") {
		t.Error("locked block was evicted")
	}
}

func TestSetCleanupThreshold(t *testing.T) {
	p := newTestPool(t, 1000)

	p.SetCleanupThreshold(0.5)
	if got := p.CleanupThreshold(); got != 500 {
		t.Errorf("CleanupThreshold() = %d, want 500", got)
	}

	// Out-of-range fractions are ignored.
	p.SetCleanupThreshold(0)
	p.SetCleanupThreshold(1.5)
	if got := p.CleanupThreshold(); got != 500 {
		t.Errorf("CleanupThreshold() = %d after invalid sets, want 500", got)
	}

	if _, err := p.Allocate("res", 500, 1); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if !p.IsLowMemory() {
		t.Error("IsLowMemory() = false at exactly the threshold")
	}
}
