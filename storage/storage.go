// Package storage persists replay buffer snapshots across process
// restarts. Each save is a full replacement of the previous
// checkpoint; given the low save frequency relative to insert volume,
// simplicity wins over incremental I/O.
package storage

import (
	"github.com/pkg/errors"

	"github.com/TheLortex/rust-mcts/replay"
)

var (
	// ErrNotFound means no checkpoint exists yet; the caller starts
	// with an empty buffer.
	ErrNotFound = errors.New("storage: checkpoint not found")

	// ErrCheckpointIO reports a read or write failure on the durable
	// checkpoint. It is surfaced, not retried.
	ErrCheckpointIO = errors.New("storage: checkpoint i/o failed")
)

// Store saves and restores full buffer snapshots.
type Store interface {
	Save(*replay.Snapshot) error
	Load() (*replay.Snapshot, error)
}
