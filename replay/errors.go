package replay

import "github.com/pkg/errors"

var (
	// ErrEmptyBuffer is returned when sampling is attempted before any
	// game has been inserted. Callers should run Preload first.
	ErrEmptyBuffer = errors.New("replay: buffer is empty")

	// ErrStreamTruncated reports that the game stream ended mid-frame.
	// A desynchronized frame boundary cannot be recovered from an
	// undelimited byte stream, so this terminates ingestion.
	ErrStreamTruncated = errors.New("replay: game stream truncated")

	// ErrMalformedRecord reports a frame payload whose fields do not
	// match the configured shapes. Silently dropping or truncating a
	// record would bias the training signal, so this is fatal too.
	ErrMalformedRecord = errors.New("replay: malformed game record")

	// ErrInvalidSnapshot reports a checkpoint that is inconsistent with
	// the configured buffer capacity.
	ErrInvalidSnapshot = errors.New("replay: invalid buffer snapshot")
)
