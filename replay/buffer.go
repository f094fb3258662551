package replay

import (
	"math/rand"
	"sync"
)

// Buffer is a fixed-capacity circular store of completed games. Once
// full, the oldest game is overwritten on each insert.
//
// A single ingestor goroutine writes; any number of sampler goroutines
// read. The RWMutex scopes the slot-pointer swap together with the
// counter updates, so readers always see a consistent pair of
// (filled, slots) and never an out-of-range selection.
type Buffer struct {
	mu       sync.RWMutex
	games    []*GameRecord
	index    int    // next write position, [0, capacity)
	filled   int    // populated slots, saturates at capacity
	lifetime uint64 // total inserts ever, never resets
}

// Stats is a point-in-time view of the buffer counters.
type Stats struct {
	Capacity int
	Filled   int
	Index    int
	Lifetime uint64
}

// Snapshot is a self-consistent, serializable copy of the buffer:
// all counters plus the populated slots [0, Filled).
type Snapshot struct {
	Capacity int           `json:"capacity"`
	Index    int           `json:"index"`
	Filled   int           `json:"filled"`
	Lifetime uint64        `json:"lifetime"`
	Games    []*GameRecord `json:"games"`
}

// NewBuffer creates an empty buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{
		games: make([]*GameRecord, capacity),
	}
}

// NewBufferFromSnapshot reconstructs a buffer from a checkpoint,
// validating it against the configured capacity. A snapshot taken at a
// smaller capacity restores into the larger buffer; one holding more
// games than capacity is rejected rather than silently truncated.
func NewBufferFromSnapshot(snap *Snapshot, capacity int) (*Buffer, error) {
	if capacity <= 0 {
		capacity = 1
	}
	if len(snap.Games) > capacity || snap.Filled != len(snap.Games) {
		return nil, ErrInvalidSnapshot
	}
	if snap.Index < 0 || snap.Index >= max(snap.Capacity, 1) {
		return nil, ErrInvalidSnapshot
	}

	b := NewBuffer(capacity)
	copy(b.games, snap.Games)
	b.index = snap.Index
	if snap.Capacity != capacity {
		// The capacity changed between runs: keep the games but move
		// the cursor past the populated prefix so empty slots fill
		// before anything is overwritten.
		b.index = snap.Filled % capacity
	}
	b.filled = snap.Filled
	b.lifetime = snap.Lifetime
	return b, nil
}

// Insert writes the record at the cursor, overwriting the oldest game
// once the buffer is full. It always succeeds.
func (b *Buffer) Insert(g *GameRecord) {
	b.mu.Lock()
	b.games[b.index] = g
	b.lifetime++
	if b.filled < len(b.games) {
		b.filled++
	}
	b.index = (b.index + 1) % len(b.games)
	b.mu.Unlock()
}

// SampleGame returns a uniformly random game among the populated
// slots. The rng is owned by the calling sampler; only the slot access
// happens under the read lock.
func (b *Buffer) SampleGame(rng *rand.Rand) (*GameRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.filled == 0 {
		return nil, ErrEmptyBuffer
	}
	return b.games[rng.Intn(b.filled)], nil
}

// Filled returns the number of populated slots.
func (b *Buffer) Filled() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filled
}

// Stats returns a consistent snapshot of the counters.
func (b *Buffer) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		Capacity: len(b.games),
		Filled:   b.filled,
		Index:    b.index,
		Lifetime: b.lifetime,
	}
}

// Snapshot copies the counters and populated slot pointers under the
// read lock. Records are immutable, so sharing the pointers with a
// concurrent writer is safe.
func (b *Buffer) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	games := make([]*GameRecord, b.filled)
	copy(games, b.games[:b.filled])
	return &Snapshot{
		Capacity: len(b.games),
		Index:    b.index,
		Filled:   b.filled,
		Lifetime: b.lifetime,
		Games:    games,
	}
}
