package engine

import "github.com/bastidangca/aether/internal/board"

// Bound classifies a stored score.
type Bound uint8

const (
	BoundExact Bound = 1
	BoundUpper Bound = 2
	BoundLower Bound = 3
)

// TTEntry is one transposition table slot. The struct is 24 bytes after
// alignment; the full 64-bit key is kept so torn concurrent writes are
// rejected by key mismatch rather than corrupting a probe.
type TTEntry struct {
	Key   uint64
	Score int16
	Eval  int16
	Move  board.Move
	Depth uint8
	Bound Bound
	Gen   uint8
}

// TTBucket groups two entries sharing an index.
type TTBucket struct {
	entries [2]TTEntry
}

// TransTable is the shared transposition table: a power-of-two number of
// two-way buckets, no locks. Concurrent writers may interleave; probes
// validate by key equality and simply miss on a torn entry.
type TransTable struct {
	buckets []TTBucket
	mask    uint64
	gen     uint8
}

// NewTransTable allocates a table of roughly sizeMB megabytes, rounded down
// to a power-of-two bucket count.
func NewTransTable(sizeMB int) *TransTable {
	tt := &TransTable{}
	tt.Resize(sizeMB)
	return tt
}

// Resize reallocates the table. Existing entries are dropped.
func (tt *TransTable) Resize(sizeMB int) {
	if sizeMB < 1 {
		sizeMB = 1
	}
	target := uint64(sizeMB) * 1024 * 1024 / 48 // bucket is two 24-byte entries
	n := uint64(1)
	for n*2 <= target {
		n *= 2
	}
	tt.buckets = make([]TTBucket, n)
	tt.mask = n - 1
	tt.gen = 0
}

// Clear zeroes every bucket and resets the generation.
func (tt *TransTable) Clear() {
	for i := range tt.buckets {
		tt.buckets[i] = TTBucket{}
	}
	tt.gen = 0
}

// NewSearch advances the generation counter. Called once per search.
func (tt *TransTable) NewSearch() {
	tt.gen++
}

// Probe scans the bucket for the key. On a hit the entry generation is
// refreshed and a copy returned.
func (tt *TransTable) Probe(key uint64) (TTEntry, bool) {
	bucket := &tt.buckets[key&tt.mask]
	for i := range bucket.entries {
		if bucket.entries[i].Key == key {
			bucket.entries[i].Gen = tt.gen
			return bucket.entries[i], true
		}
	}
	return TTEntry{}, false
}

// Store writes a search result. A slot holding the same key is updated in
// place, overwriting the payload only when the new depth is at least the
// old one or the new bound is exact. Otherwise the victim maximizes
// age*1000 - depth, with exact entries shielded by 5000.
func (tt *TransTable) Store(key uint64, move board.Move, score, eval, depth int, bound Bound) {
	bucket := &tt.buckets[key&tt.mask]

	for i := range bucket.entries {
		e := &bucket.entries[i]
		if e.Key != key {
			continue
		}
		e.Gen = tt.gen
		if depth >= int(e.Depth) || bound == BoundExact {
			e.Move = move
			e.Score = int16(score)
			e.Eval = int16(eval)
			e.Depth = uint8(depth)
			e.Bound = bound
		}
		return
	}

	victim := 0
	best := -1 << 30
	for i := range bucket.entries {
		e := &bucket.entries[i]
		age := int(uint8(tt.gen - e.Gen))
		suitability := age*1000 - int(e.Depth)
		if e.Bound == BoundExact {
			suitability -= 5000
		}
		if suitability > best {
			best = suitability
			victim = i
		}
	}

	bucket.entries[victim] = TTEntry{
		Key:   key,
		Move:  move,
		Score: int16(score),
		Eval:  int16(eval),
		Depth: uint8(depth),
		Bound: bound,
		Gen:   tt.gen,
	}
}

// Prefetch warms the bucket holding key. Go offers no prefetch intrinsic,
// so this touches the cache line with a discarded read.
func (tt *TransTable) Prefetch(key uint64) {
	_ = tt.buckets[key&tt.mask].entries[0].Key
}

// Hashfull samples up to the first 1000 buckets and reports occupancy in
// permille.
func (tt *TransTable) Hashfull() int {
	sample := min(len(tt.buckets), 1000)
	if sample == 0 {
		return 0
	}
	count := 0
	for i := 0; i < sample; i++ {
		for j := range tt.buckets[i].entries {
			if tt.buckets[i].entries[j].Key != 0 {
				count++
			}
		}
	}
	return count * 500 / sample
}
