package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/TheLortex/rust-mcts/replay"
)

// snapshotFile is the checkpoint name under the training data
// directory.
const snapshotFile = "replay_buffer.snap"

// FileStore checkpoints the buffer to a snappy-compressed JSON file.
// Saves go through a temp file and rename, so a crash mid-write leaves
// the previous checkpoint intact.
type FileStore struct {
	dir  string
	path string
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:  dir,
		path: filepath.Join(dir, snapshotFile),
	}
}

// Path returns the checkpoint file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(snap *replay.Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrapf(ErrCheckpointIO, "create %s: %v", s.dir, err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrapf(ErrCheckpointIO, "encode snapshot: %v", err)
	}
	compressed := snappy.Encode(nil, data)

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return errors.Wrapf(ErrCheckpointIO, "write %s: %v", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrapf(ErrCheckpointIO, "rename %s: %v", s.path, err)
	}
	return nil
}

func (s *FileStore) Load() (*replay.Snapshot, error) {
	compressed, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(ErrCheckpointIO, "read %s: %v", s.path, err)
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.Wrapf(ErrCheckpointIO, "decompress %s: %v", s.path, err)
	}

	var snap replay.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrapf(ErrCheckpointIO, "decode %s: %v", s.path, err)
	}
	return &snap, nil
}
