package mempool

import (
	"sort"

	"github.com/fcanovai/rescache/internal/logger"
)

// Eviction policy
//
// Candidates are all unlocked blocks, scored by recency, frequency and
// priority. The pass evicts ascending by score until at least 30% of the
// bytes in use at the start of the pass have been freed, or candidates run
// out. Locked blocks are never touched, even when the target cannot be met;
// in that case the pass simply frees less and a pending allocation may still
// fail.

// blockScore computes a block's eviction score at the given reference time.
//
// The subtraction term can exceed the additive terms for long-idle blocks,
// so the score must stay signed throughout.
func (p *Pool) blockScore(b *block, nowMillis int64) int64 {
	ageSeconds := (nowMillis - b.lastAccessed.UnixMilli()) / 1000
	return int64(b.priority)*scoreWeightPriority +
		int64(b.accessCount)*scoreWeightFrequency -
		ageSeconds
}

// cleanupLocked runs one eviction pass. Caller holds p.mu.
func (p *Pool) cleanupLocked() (int, uint64) {
	if len(p.blocks) == 0 {
		return 0, 0
	}

	type candidate struct {
		id    string
		score int64
		seq   uint64
	}

	nowMillis := p.now().UnixMilli()

	candidates := make([]candidate, 0, len(p.blocks))
	for id, b := range p.blocks {
		if b.locked {
			continue
		}
		candidates = append(candidates, candidate{
			id:    id,
			score: p.blockScore(b, nowMillis),
			seq:   b.seq,
		})
	}

	// Lower score evicts first; insertion order breaks ties so eviction is
	// reproducible.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score < candidates[j].score
		}
		return candidates[i].seq < candidates[j].seq
	})

	target := uint64(float64(p.used) * cleanupTargetFraction)

	var (
		evicted int
		freed   uint64
	)
	for _, c := range candidates {
		if freed >= target {
			break
		}
		b := p.blocks[c.id]
		freed += uint64(len(b.data))
		p.removeLocked(c.id, b)
		evicted++
	}

	if p.metrics != nil {
		p.metrics.ObserveEviction(evicted, freed)
		p.metrics.RecordUsage(p.used, len(p.blocks))
	}
	logger.Debug("cleanup pass completed",
		logger.KeyEvicted, evicted,
		logger.KeyFreed, freed,
		logger.KeyUsed, p.used,
		logger.KeyBlocks, len(p.blocks),
	)

	return evicted, freed
}
