// Package rescache implements the resource cache index: a metadata overlay
// mapping resource identifiers to version, type and integrity information,
// with all physical byte storage delegated to a mempool.Pool.
//
// The index never duplicates pool bookkeeping. Size, recency and priority
// live in the pool; the index keeps only version/type/hash plus hit and miss
// accounting. An entry may outlive its backing block (the pool evicted it
// out from under the index) - that is an expected condition, reconciled
// lazily on the next access rather than eagerly.
package rescache

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fcanovai/rescache/internal/logger"
	"github.com/fcanovai/rescache/pkg/mempool"
)

// ErrEmptyPayload is returned by Store for zero-length data.
var ErrEmptyPayload = errors.New("rescache: empty payload")

// Entry is the cache index's own metadata for one resource. Size and
// recency are intentionally absent: read them through the pool.
type Entry struct {
	Version uint32 // 0 means invalidated
	Type    string // free-form classification
	Hash    string // optional integrity digest, empty if unset
	Created time.Time
}

// Metrics collects cache index events. A nil Metrics means zero overhead.
type Metrics interface {
	ObserveHit()
	ObserveMiss()
	ObserveStore(bytes int)
	RecordHitRatio(percent float64)
	RecordEntryCount(count int)
}

// Cache is the single entry point callers use to store and retrieve
// resources. All methods are serialized behind one mutex.
type Cache struct {
	mu      sync.Mutex
	pool    *mempool.Pool
	entries map[string]Entry
	hits    uint64
	misses  uint64
	now     func() time.Time
	metrics Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics attaches a metrics collector to the cache.
func WithMetrics(m Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithClock overrides the cache's time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache index backed by the given pool.
func New(pool *mempool.Pool, opts ...Option) *Cache {
	c := &Cache{
		pool:    pool,
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store allocates space for the resource, copies data in and records
// metadata. Existing state for id is replaced. If allocation fails the
// error propagates and the entry is not created or updated.
func (c *Cache) Store(id string, data []byte, version uint32, priority uint8, resType string) error {
	if len(data) == 0 {
		return ErrEmptyPayload
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	buf, err := c.pool.Allocate(id, len(data), priority)
	if err != nil {
		return fmt.Errorf("store %q: %w", id, err)
	}
	copy(buf, data)

	c.entries[id] = Entry{
		Version: version,
		Type:    resType,
		Created: c.now(),
	}

	if c.metrics != nil {
		c.metrics.ObserveStore(len(data))
		c.metrics.RecordEntryCount(len(c.entries))
	}
	logger.Debug("stored resource",
		logger.KeyResourceID, id,
		logger.KeySize, len(data),
		logger.KeyVersion, version,
		logger.KeyType, resType,
	)
	return nil
}

// Get returns the resource bytes. A missing entry, or an entry whose
// backing block was evicted out from under the index, records a miss; the
// dangling entry is dropped. A hit refreshes the block's access stats.
//
// The returned buffer is owned by the pool: callers must not retain it
// across a later Store or Remove for the same id.
func (c *Cache) Get(id string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		c.recordMiss()
		return nil, false
	}

	buf, ok := c.pool.Buffer(id)
	if !ok {
		// Evicted behind our back: reconcile and count as a miss.
		delete(c.entries, id)
		c.recordMiss()
		logger.Debug("resource evicted from pool, dropping stale entry",
			logger.KeyResourceID, id)
		return nil, false
	}

	c.pool.UpdateAccess(id)
	c.recordHit()
	return buf, true
}

// Has reports whether id has both an index entry and a resident backing
// block. Dangling entries are reconciled the same way Get does, but Has
// never counts toward hit/miss statistics.
func (c *Cache) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		return false
	}
	if !c.pool.Has(id) {
		delete(c.entries, id)
		return false
	}
	return true
}

// Remove drops the entry and deallocates the backing block. Returns false
// if the entry did not exist.
func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		return false
	}
	delete(c.entries, id)
	c.pool.Deallocate(id)

	if c.metrics != nil {
		c.metrics.RecordEntryCount(len(c.entries))
	}
	return true
}

// UpdateMetadata overwrites version and, when non-empty, the integrity
// hash. Residency is unaffected. No-op for unknown ids.
func (c *Cache) UpdateMetadata(id string, version uint32, hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return
	}
	e.Version = version
	if hash != "" {
		e.Hash = hash
	}
	c.entries[id] = e
}

// IsValid reports whether a local entry exists with version >= the server's.
// Absence is not valid, and neither is an invalidated entry: version 0 is
// the "must re-fetch" marker, so it never satisfies any server version.
func (c *Cache) IsValid(id string, serverVersion uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok || e.Version == 0 {
		return false
	}
	return e.Version >= serverVersion
}

// Invalidate sets the local version to 0, forcing a re-fetch on the next
// validity check. The bytes stay resident and servable until removed or
// evicted.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return
	}
	e.Version = 0
	c.entries[id] = e
}

// Clear deallocates every resident block known to the index and resets the
// hit/miss counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id := range c.entries {
		c.pool.Deallocate(id)
	}
	c.entries = make(map[string]Entry)
	c.hits = 0
	c.misses = 0

	if c.metrics != nil {
		c.metrics.RecordEntryCount(0)
		c.metrics.RecordHitRatio(0)
	}
	logger.Info("cache cleared")
}

// HitRatio returns hits/(hits+misses) as a percentage, or exactly 0 when
// no accesses have occurred.
func (c *Cache) HitRatio() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hitRatioLocked()
}

func (c *Cache) hitRatioLocked() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total) * 100
}

// Hits returns the cumulative hit count.
func (c *Cache) Hits() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

// Misses returns the cumulative miss count.
func (c *Cache) Misses() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}

// Len returns the number of index entries, including ones whose backing
// block may have been evicted but not yet reconciled.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ListByRecency returns the ids of all resources with resident backing
// blocks, most recently accessed first. Ids whose block was evicted are
// silently excluded; listing never mutates the index.
func (c *Cache) ListByRecency() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	type recency struct {
		id           string
		lastAccessed time.Time
	}

	resident := make([]recency, 0, len(c.entries))
	for id := range c.entries {
		if info, ok := c.pool.BlockInfo(id); ok {
			resident = append(resident, recency{id, info.LastAccessed})
		}
	}

	sort.Slice(resident, func(i, j int) bool {
		if !resident[i].lastAccessed.Equal(resident[j].lastAccessed) {
			return resident[i].lastAccessed.After(resident[j].lastAccessed)
		}
		return resident[i].id < resident[j].id
	})

	ids := make([]string, len(resident))
	for i, r := range resident {
		ids[i] = r.id
	}
	return ids
}

// SetPriority updates the backing block's eviction priority. The pool is
// the single owner of priority, so there is no index-side copy to drift out
// of sync. Returns false if the id is unknown to the index or not resident.
func (c *Cache) SetPriority(id string, priority uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		return false
	}
	return c.pool.SetPriority(id, priority)
}

// Touch refreshes the resource's recency without counting as a hit or
// miss. Returns false if the id is unknown to the index.
func (c *Cache) Touch(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		return false
	}
	c.pool.UpdateAccess(id)
	return true
}

// Entry returns a snapshot of the index metadata for id.
func (c *Cache) Entry(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	return e, ok
}

// Pool exposes the backing pool for monitoring surfaces (usage, free
// bytes, block count). Mutating it directly bypasses the index; dangling
// entries are reconciled lazily on the next Get or Has.
func (c *Cache) Pool() *mempool.Pool {
	return c.pool
}

func (c *Cache) recordHit() {
	c.hits++
	if c.metrics != nil {
		c.metrics.ObserveHit()
		c.metrics.RecordHitRatio(c.hitRatioLocked())
	}
}

func (c *Cache) recordMiss() {
	c.misses++
	if c.metrics != nil {
		c.metrics.ObserveMiss()
		c.metrics.RecordHitRatio(c.hitRatioLocked())
	}
}
