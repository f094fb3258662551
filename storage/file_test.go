package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheLortex/rust-mcts/replay"
)

func testSnapshot(games int) *replay.Snapshot {
	b := replay.NewBuffer(8)
	for i := 0; i < games; i++ {
		b.Insert(&replay.GameRecord{
			State:  [][]float64{{float64(i)}},
			Policy: [][]float64{{1}},
			Value:  []float64{float64(i)},
			Action: [][]float64{{1}},
			Reward: []float64{0},
			Turn:   []int{0},
		})
	}
	return b.Snapshot()
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := NewFileStore(t.TempDir())

	snap := testSnapshot(3)
	require.NoError(t, s.Save(snap))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, snap, got)
}

func TestFileStoreLoadMissing(t *testing.T) {
	s := NewFileStore(t.TempDir())
	_, err := s.Load()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreOverwrites(t *testing.T) {
	s := NewFileStore(t.TempDir())

	require.NoError(t, s.Save(testSnapshot(1)))
	require.NoError(t, s.Save(testSnapshot(5)))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, 5, got.Filled)
}

func TestFileStoreCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "training_data")
	s := NewFileStore(dir)

	require.NoError(t, s.Save(testSnapshot(1)))
	_, err := os.Stat(s.Path())
	require.NoError(t, err)
}

func TestFileStoreRejectsCorruptCheckpoint(t *testing.T) {
	s := NewFileStore(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte("not snappy"), 0o644))

	_, err := s.Load()
	require.ErrorIs(t, err, ErrCheckpointIO)
}
