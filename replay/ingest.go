package replay

import (
	"encoding/binary"
	"io"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// maxFrameSize bounds a single frame payload. A longest realistic game
// is a few megabytes of JSON; anything near this limit means the frame
// boundary is lost.
const maxFrameSize = 1 << 30

// Ingestor states.
const (
	StateWaiting int32 = iota
	StateStreaming
	StateStopped
)

// Checkpointer persists buffer snapshots. The ingestor calls it
// synchronously every SavePeriod inserts.
type Checkpointer interface {
	Save(*Snapshot) error
}

// IngestorConfig carries the read-only settings of the ingest loop.
type IngestorConfig struct {
	// FifoPath is the named pipe written by the game generator.
	// Created if missing; the open blocks until the generator
	// connects.
	FifoPath string

	// BoardSize and ActionSize are the flattened per-move row sizes
	// frames are validated against.
	BoardSize  int
	ActionSize int

	// SavePeriod triggers a synchronous checkpoint every N inserts.
	// Zero disables periodic checkpointing.
	SavePeriod int

	// Source overrides FifoPath with an already-open stream. Used by
	// tests and in-process producers.
	Source io.Reader
}

// Ingestor is the single writer of a Buffer. It reads length-prefixed
// game frames from the generator's pipe, decodes them, and inserts
// them in arrival order.
//
// Stop is cooperative: the flag is checked once per frame, so an
// in-flight blocking read completes (or blocks indefinitely on a
// stalled generator) before the loop exits. There is deliberately no
// read timeout; the generator is a long-running companion process.
type Ingestor struct {
	buf  *Buffer
	ckpt Checkpointer
	cfg  IngestorConfig

	src      io.Reader
	closer   io.Closer
	inserted uint64
	stopped  atomic.Bool
	state    atomic.Int32
}

// NewIngestor creates an ingestor writing into buf. ckpt may be nil to
// disable checkpointing.
func NewIngestor(buf *Buffer, ckpt Checkpointer, cfg IngestorConfig) *Ingestor {
	in := &Ingestor{
		buf:  buf,
		ckpt: ckpt,
		cfg:  cfg,
		src:  cfg.Source,
	}
	in.state.Store(StateWaiting)
	return in
}

// Run streams frames into the buffer until Stop is observed or a
// stream error occurs. Frame errors are fatal: a desynchronized
// boundary cannot be resynchronized, so the error is returned rather
// than skipped.
func (in *Ingestor) Run() error {
	return in.run(0)
}

// Preload runs the same loop but returns once the buffer holds at
// least limit games. It is used to block startup until a first batch
// can be sampled. Returns immediately if the restored buffer already
// has enough games.
func (in *Ingestor) Preload(limit int) error {
	if in.buf.Filled() >= limit {
		return nil
	}
	return in.run(limit)
}

// Stop requests a cooperative shutdown. It only guarantees that no new
// frame read begins after the flag is observed.
func (in *Ingestor) Stop() {
	in.stopped.Store(true)
}

// State reports the ingestor's lifecycle state.
func (in *Ingestor) State() int32 {
	return in.state.Load()
}

func (in *Ingestor) run(limit int) error {
	if err := in.ensureOpen(); err != nil {
		return err
	}
	in.state.Store(StateStreaming)
	defer in.state.Store(StateStopped)

	var header [8]byte
	for !in.stopped.Load() && (limit <= 0 || in.buf.Filled() < limit) {
		if _, err := io.ReadFull(in.src, header[:]); err != nil {
			return errors.Wrapf(ErrStreamTruncated,
				"frame header after %d records: %v", in.inserted, err)
		}
		size := binary.BigEndian.Uint64(header[:])
		if size == 0 || size > maxFrameSize {
			return errors.Wrapf(ErrMalformedRecord, "frame size %d out of range", size)
		}

		payload := make([]byte, size)
		if _, err := io.ReadFull(in.src, payload); err != nil {
			return errors.Wrapf(ErrStreamTruncated,
				"frame payload of %d bytes after %d records: %v", size, in.inserted, err)
		}

		game, err := DecodeRecord(payload, in.cfg.BoardSize, in.cfg.ActionSize)
		if err != nil {
			return err
		}
		game.ID = uuid.New()

		in.buf.Insert(game)
		in.inserted++

		if in.ckpt != nil && in.cfg.SavePeriod > 0 && in.inserted%uint64(in.cfg.SavePeriod) == 0 {
			if err := in.ckpt.Save(in.buf.Snapshot()); err != nil {
				return errors.Wrapf(err, "checkpoint after %d records", in.inserted)
			}
			log.Debug().Uint64("inserted", in.inserted).Msg("checkpointed replay buffer")
		}
	}
	return nil
}

// ensureOpen opens the generator pipe on first use, creating it if
// missing. The open blocks until the generator side connects.
func (in *Ingestor) ensureOpen() error {
	if in.src != nil {
		return nil
	}

	if _, err := os.Stat(in.cfg.FifoPath); os.IsNotExist(err) {
		if err := unix.Mkfifo(in.cfg.FifoPath, 0o644); err != nil && !errors.Is(err, unix.EEXIST) {
			return errors.Wrapf(err, "mkfifo %s", in.cfg.FifoPath)
		}
	}

	log.Info().Str("fifo", in.cfg.FifoPath).Msg("waiting for game generator")
	f, err := os.OpenFile(in.cfg.FifoPath, os.O_RDONLY, 0)
	if err != nil {
		return errors.Wrapf(err, "open fifo %s", in.cfg.FifoPath)
	}
	log.Info().Str("fifo", in.cfg.FifoPath).Msg("game generator connected")

	in.src = f
	in.closer = f
	return nil
}

// Close releases the pipe if the ingestor opened one.
func (in *Ingestor) Close() error {
	if in.closer == nil {
		return nil
	}
	return in.closer.Close()
}
