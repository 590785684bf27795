// Package mempool implements a bounded-memory block pool for cached
// resources.
//
// The pool owns a fixed byte budget and hands out named blocks to callers.
// Every block carries access bookkeeping (recency, frequency, priority,
// lock state) that feeds the eviction policy: when an allocation would push
// usage past the cleanup threshold, the pool evicts the worst-scoring
// unlocked blocks until at least 30% of the bytes in use have been freed.
//
// The pool is the single source of truth for block size, recency and
// priority. Higher layers (the resource cache index) keep only their own
// metadata and read residency state through the pool.
package mempool

import (
	"errors"
	"time"
)

// Eviction scoring weights. Priority dominates frequency, which dominates
// raw recency: score = priority*1000 + accessCount*100 - ageSeconds.
// Lower score = better eviction candidate.
const (
	scoreWeightPriority  = 1000
	scoreWeightFrequency = 100
)

// DefaultCleanupThreshold is the fraction of the budget at which a cleanup
// pass runs proactively before an allocation.
const DefaultCleanupThreshold = 0.9

// cleanupTargetFraction is the share of in-use bytes a cleanup pass tries
// to free.
const cleanupTargetFraction = 0.3

var (
	// ErrInvalidSize is returned by Allocate for a non-positive size.
	ErrInvalidSize = errors.New("mempool: allocation size must be positive")

	// ErrBlockTooLarge is returned when the requested size exceeds the
	// pool's total budget and no amount of eviction can satisfy it.
	ErrBlockTooLarge = errors.New("mempool: block larger than pool budget")

	// ErrPoolExhausted is returned when an allocation still does not fit
	// after a forced cleanup pass. The caller decides whether to drop the
	// resource or retry later.
	ErrPoolExhausted = errors.New("mempool: pool exhausted after cleanup")
)

// block is one resident resource's bytes plus bookkeeping.
type block struct {
	data         []byte
	lastAccessed time.Time
	accessCount  uint64
	priority     uint8
	locked       bool
	seq          uint64 // insertion order, breaks score ties deterministically
}

// BlockInfo is a read-only snapshot of a block's bookkeeping.
type BlockInfo struct {
	Size         int
	LastAccessed time.Time
	AccessCount  uint64
	Priority     uint8
	Locked       bool
}

// Metrics collects pool events. Implementations must be safe for concurrent
// use. A nil Metrics means zero overhead.
type Metrics interface {
	// ObserveAllocation records a successful allocation of the given size.
	ObserveAllocation(bytes int)

	// ObserveAllocationFailure records an allocation that failed even
	// after a forced cleanup pass.
	ObserveAllocationFailure()

	// ObserveEviction records a cleanup pass that evicted blocks.
	ObserveEviction(blocks int, bytes uint64)

	// RecordUsage records current pool occupancy.
	RecordUsage(usedBytes uint64, blocks int)
}
