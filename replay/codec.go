package replay

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// wireRecord is the frame payload produced by the game generator: one
// JSON object of flat numeric arrays, reshaped on decode into per-move
// rows of the configured sizes.
type wireRecord struct {
	State  []float64 `json:"state"`
	Policy []float64 `json:"policy"`
	Value  []float64 `json:"value"`
	Action []float64 `json:"action"`
	Reward []float64 `json:"reward"`
	Turn   []int     `json:"turn"`
}

// DecodeRecord parses a frame payload and reshapes it into a
// GameRecord. Any field whose flat length disagrees with the move
// count or the configured shapes yields ErrMalformedRecord.
func DecodeRecord(payload []byte, boardSize, actionSize int) (*GameRecord, error) {
	var w wireRecord
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, errors.Wrapf(ErrMalformedRecord, "decode payload: %v", err)
	}

	moves := len(w.Value)
	if moves == 0 {
		return nil, errors.Wrap(ErrMalformedRecord, "record has no moves")
	}
	if len(w.Reward) != moves || len(w.Turn) != moves {
		return nil, errors.Wrapf(ErrMalformedRecord,
			"per-move lengths disagree: value=%d reward=%d turn=%d",
			moves, len(w.Reward), len(w.Turn))
	}

	state, err := reshape(w.State, moves, boardSize)
	if err != nil {
		return nil, errors.Wrapf(err, "state field")
	}
	policy, err := reshape(w.Policy, moves, actionSize)
	if err != nil {
		return nil, errors.Wrapf(err, "policy field")
	}
	action, err := reshape(w.Action, moves, actionSize)
	if err != nil {
		return nil, errors.Wrapf(err, "action field")
	}

	return &GameRecord{
		State:  state,
		Policy: policy,
		Value:  w.Value,
		Action: action,
		Reward: w.Reward,
		Turn:   w.Turn,
	}, nil
}

// EncodeRecord flattens a GameRecord back into a frame payload. It is
// the encoder counterpart of DecodeRecord, used by the mock generator
// and by tests.
func EncodeRecord(g *GameRecord) ([]byte, error) {
	w := wireRecord{
		State:  flatten(g.State),
		Policy: flatten(g.Policy),
		Value:  g.Value,
		Action: flatten(g.Action),
		Reward: g.Reward,
		Turn:   g.Turn,
	}
	data, err := json.Marshal(w)
	return data, errors.Wrap(err, "encode record")
}

// WriteFrame writes one length-prefixed frame: an 8-byte big-endian
// payload length followed by the payload itself.
func WriteFrame(w io.Writer, payload []byte) error {
	var header [8]byte
	binary.BigEndian.PutUint64(header[:], uint64(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return errors.Wrap(err, "write frame header")
	}
	_, err := w.Write(payload)
	return errors.Wrap(err, "write frame payload")
}

func reshape(flat []float64, rows, rowSize int) ([][]float64, error) {
	if len(flat) != rows*rowSize {
		return nil, errors.Wrapf(ErrMalformedRecord,
			"flat length %d does not match %d moves of size %d",
			len(flat), rows, rowSize)
	}
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = flat[i*rowSize : (i+1)*rowSize : (i+1)*rowSize]
	}
	return out, nil
}

func flatten(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	flat := make([]float64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		flat = append(flat, r...)
	}
	return flat
}
