package mempool

import (
	"sync"
	"time"

	"github.com/fcanovai/rescache/internal/logger"
)

// Pool enforces a byte budget over named blocks.
//
// All entry points are serialized behind a single mutex: the block table and
// byte buffers are not designed for concurrent readers and writers, and
// eviction must run to completion before the triggering allocation returns.
//
// Pools are caller-owned; construct one per cache (or per test) rather than
// sharing a process-wide instance.
type Pool struct {
	mu        sync.Mutex
	blocks    map[string]*block
	used      uint64
	maxBytes  uint64
	threshold uint64
	nextSeq   uint64

	// now is injectable so tests can pin recency and age.
	now func() time.Time

	metrics Metrics
}

// Option configures a Pool.
type Option func(*Pool)

// WithMetrics attaches a metrics collector to the pool.
func WithMetrics(m Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

// WithCleanupThreshold sets the cleanup trigger point as a fraction of the
// budget. Fractions outside (0, 1] are ignored.
func WithCleanupThreshold(fraction float64) Option {
	return func(p *Pool) { p.setThreshold(fraction) }
}

// WithClock overrides the pool's time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

// New creates a pool with the given byte budget.
func New(maxBytes uint64, opts ...Option) *Pool {
	p := &Pool{
		blocks:    make(map[string]*block),
		maxBytes:  maxBytes,
		threshold: uint64(float64(maxBytes) * DefaultCleanupThreshold),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Allocate reserves size bytes for id and returns the block's buffer.
//
// If id already has a block it is deallocated first (replace semantics).
// If the allocation would push usage past the cleanup threshold, a cleanup
// pass runs before allocating. If the allocation still does not fit within
// the budget, one forced cleanup pass runs and the allocation is retried
// exactly once; ErrPoolExhausted is returned if it still does not fit, and
// no block is created.
//
// On success the block is registered with accessCount 1 and lastAccessed
// set to now.
func (p *Pool) Allocate(id string, size int, priority uint8) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	need := uint64(size)
	if need > p.maxBytes {
		if p.metrics != nil {
			p.metrics.ObserveAllocationFailure()
		}
		return nil, ErrBlockTooLarge
	}

	// Replace semantics: the old block is released before the new one is
	// sized, never after.
	if old, ok := p.blocks[id]; ok {
		p.removeLocked(id, old)
	}

	if p.used+need > p.threshold {
		p.cleanupLocked()
	}

	if p.used+need > p.maxBytes {
		p.cleanupLocked()
		if p.used+need > p.maxBytes {
			if p.metrics != nil {
				p.metrics.ObserveAllocationFailure()
			}
			logger.Warn("allocation failed after cleanup",
				logger.KeyResourceID, id,
				logger.KeySize, size,
				logger.KeyUsed, p.used,
				logger.KeyFree, p.maxBytes-p.used,
			)
			return nil, ErrPoolExhausted
		}
	}

	b := &block{
		data:         make([]byte, size),
		lastAccessed: p.now(),
		accessCount:  1,
		priority:     priority,
		seq:          p.nextSeq,
	}
	p.nextSeq++
	p.blocks[id] = b
	p.used += need

	if p.metrics != nil {
		p.metrics.ObserveAllocation(size)
		p.metrics.RecordUsage(p.used, len(p.blocks))
	}
	logger.Debug("allocated block",
		logger.KeyResourceID, id,
		logger.KeySize, size,
		logger.KeyUsed, p.used,
	)

	return b.data, nil
}

// Deallocate releases id's block and returns true. Returns false if id is
// unknown.
func (p *Pool) Deallocate(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.blocks[id]
	if !ok {
		return false
	}
	p.removeLocked(id, b)

	if p.metrics != nil {
		p.metrics.RecordUsage(p.used, len(p.blocks))
	}
	logger.Debug("deallocated block", logger.KeyResourceID, id, logger.KeyUsed, p.used)
	return true
}

// UpdateAccess bumps id's recency and access count. No-op for unknown ids.
func (p *Pool) UpdateAccess(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.blocks[id]; ok {
		b.lastAccessed = p.now()
		b.accessCount++
	}
}

// SetLocked toggles id's eviction exemption. Returns false for unknown ids.
func (p *Pool) SetLocked(id string, locked bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.blocks[id]
	if !ok {
		return false
	}
	b.locked = locked
	return true
}

// SetPriority updates id's eviction priority. Returns false for unknown ids.
func (p *Pool) SetPriority(id string, priority uint8) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.blocks[id]
	if !ok {
		return false
	}
	b.priority = priority
	return true
}

// Has reports whether id has a resident block.
func (p *Pool) Has(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.blocks[id]
	return ok
}

// Buffer returns the live byte buffer for id.
//
// The buffer is owned by the pool: callers must not retain it across a
// subsequent Allocate or Deallocate for the same id.
func (p *Pool) Buffer(id string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.blocks[id]
	if !ok {
		return nil, false
	}
	return b.data, true
}

// BlockInfo returns a snapshot of id's bookkeeping.
func (p *Pool) BlockInfo(id string) (BlockInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.blocks[id]
	if !ok {
		return BlockInfo{}, false
	}
	return BlockInfo{
		Size:         len(b.data),
		LastAccessed: b.lastAccessed,
		AccessCount:  b.accessCount,
		Priority:     b.priority,
		Locked:       b.locked,
	}, true
}

// Used returns the total bytes currently resident.
func (p *Pool) Used() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used
}

// Free returns the bytes available below the budget.
func (p *Pool) Free() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxBytes - p.used
}

// UsagePercent returns pool occupancy as a percentage of the budget.
func (p *Pool) UsagePercent() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.maxBytes == 0 {
		return 0
	}
	return float64(p.used) / float64(p.maxBytes) * 100
}

// BlockCount returns the number of resident blocks.
func (p *Pool) BlockCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.blocks)
}

// IsLowMemory reports whether usage has reached the cleanup threshold.
func (p *Pool) IsLowMemory() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used >= p.threshold
}

// MaxSize returns the configured byte budget.
func (p *Pool) MaxSize() uint64 {
	return p.maxBytes
}

// CleanupThreshold returns the current cleanup trigger point in bytes.
func (p *Pool) CleanupThreshold() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.threshold
}

// SetCleanupThreshold sets the cleanup trigger point as a fraction of the
// budget (0.9 = 90%). Fractions outside (0, 1] are ignored.
func (p *Pool) SetCleanupThreshold(fraction float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setThreshold(fraction)
}

func (p *Pool) setThreshold(fraction float64) {
	if fraction <= 0 || fraction > 1 {
		return
	}
	p.threshold = uint64(float64(p.maxBytes) * fraction)
}

// ForceCleanup runs a cleanup pass unconditionally and returns the number
// of blocks evicted and the bytes freed.
func (p *Pool) ForceCleanup() (int, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cleanupLocked()
}

// removeLocked releases a block's buffer and bookkeeping. Caller holds p.mu.
func (p *Pool) removeLocked(id string, b *block) {
	p.used -= uint64(len(b.data))
	b.data = nil
	delete(p.blocks, id)
}
