package storage

import (
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/pkg/errors"

	"github.com/TheLortex/rust-mcts/replay"
)

// checkpointKey is the single document the buffer snapshot lives
// under; each save replaces it wholesale.
const checkpointKey = "replay_buffer"

// CouchbaseConfig locates the cluster holding checkpoint documents.
type CouchbaseConfig struct {
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Bucket   string `yaml:"bucket"`
}

// CouchbaseStore checkpoints the buffer as a single document in a
// Couchbase bucket. Useful when several training hosts share a
// cluster and local disk is ephemeral.
type CouchbaseStore struct {
	collection *gocb.Collection
}

// NewCouchbaseStore connects to the cluster and waits for the bucket
// to come up.
func NewCouchbaseStore(cfg CouchbaseConfig) (*CouchbaseStore, error) {
	cluster, err := gocb.Connect(
		cfg.Host,
		gocb.ClusterOptions{
			Username:             cfg.Username,
			Password:             cfg.Password,
			CircuitBreakerConfig: gocb.CircuitBreakerConfig{Disabled: true},
		})
	if err != nil {
		return nil, errors.Wrapf(err, "connect to couchbase at %s", cfg.Host)
	}

	bucket := cluster.Bucket(cfg.Bucket)
	if err := bucket.WaitUntilReady(5*time.Second, nil); err != nil {
		return nil, errors.Wrapf(err, "bucket %s not ready", cfg.Bucket)
	}

	return &CouchbaseStore{
		collection: bucket.DefaultCollection(),
	}, nil
}

func (s *CouchbaseStore) Save(snap *replay.Snapshot) error {
	if _, err := s.collection.Upsert(checkpointKey, snap, nil); err != nil {
		return errors.Wrapf(ErrCheckpointIO, "upsert %s: %v", checkpointKey, err)
	}
	return nil
}

func (s *CouchbaseStore) Load() (*replay.Snapshot, error) {
	r, err := s.collection.Get(checkpointKey, nil)
	if errors.Is(err, gocb.ErrDocumentNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(ErrCheckpointIO, "get %s: %v", checkpointKey, err)
	}

	var snap replay.Snapshot
	if err := r.Content(&snap); err != nil {
		return nil, errors.Wrapf(ErrCheckpointIO, "parse %s: %v", checkpointKey, err)
	}
	return &snap, nil
}
