package replay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testGenerator(t *testing.T, batchSize, epochSize int) *Generator {
	t.Helper()
	buf := NewBuffer(4)
	buf.Insert(fourMoveGame())
	buf.Insert(testGame(1))
	return NewGenerator(NewSampler(buf, testParams(), 7), batchSize, epochSize)
}

func TestBatchShapes(t *testing.T) {
	g := testGenerator(t, 4, 16)

	b, err := g.Batch()
	require.NoError(t, err)
	require.Len(t, b.States, 4)
	require.Len(t, b.Actions, 4)
	require.Len(t, b.Policy, 4)
	require.Len(t, b.Value, 4)
	require.Len(t, b.Reward, 4)
	for i := 0; i < 4; i++ {
		require.Len(t, b.States[i], 2)
		require.Len(t, b.Actions[i], 3)
	}
}

func TestBatchPropagatesEmptyBuffer(t *testing.T) {
	g := NewGenerator(NewSampler(NewBuffer(4), testParams(), 7), 4, 16)
	_, err := g.Batch()
	require.ErrorIs(t, err, ErrEmptyBuffer)
}

func TestBatchesPerEpoch(t *testing.T) {
	g := testGenerator(t, 2, 10)
	require.Equal(t, 5, g.BatchesPerEpoch())
}

func TestStreamDeliversEpochs(t *testing.T) {
	g := testGenerator(t, 2, 4)

	out := make(chan *Batch)
	errc := make(chan error, 1)
	go func() { errc <- g.Stream(context.Background(), 2, out) }()

	got := 0
	for range out {
		got++
	}
	require.NoError(t, <-errc)
	// 2 epochs of epoch_size/batch = 2 batches each.
	require.Equal(t, 4, got)
}

func TestStreamStopsOnCancel(t *testing.T) {
	g := testGenerator(t, 2, 4)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan *Batch)
	errc := make(chan error, 1)
	go func() { errc <- g.Stream(ctx, 0, out) }()

	// Take a few batches from the infinite stream, then cancel.
	for i := 0; i < 3; i++ {
		select {
		case <-out:
		case <-time.After(5 * time.Second):
			t.Fatal("no batch produced")
		}
	}
	cancel()

	require.ErrorIs(t, <-errc, context.Canceled)
}

func TestStreamPropagatesSamplingError(t *testing.T) {
	g := NewGenerator(NewSampler(NewBuffer(4), testParams(), 7), 2, 4)

	out := make(chan *Batch)
	err := g.Stream(context.Background(), 1, out)
	require.ErrorIs(t, err, ErrEmptyBuffer)
}
