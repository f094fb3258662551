// Package config loads the immutable configuration read by the replay
// buffer subsystem. The tree mirrors the generator's settings file so
// that a single config describes both processes; every field is
// read-only after Load.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration tree.
type Config struct {
	Game     Game           `yaml:"game"`
	Training Training       `yaml:"training"`
	Mu       Mu             `yaml:"mu"`
	Storage  StorageBackend `yaml:"storage"`
}

// Game fixes the tensor shapes all records are validated against.
// Policy and action targets share the action shape.
type Game struct {
	BoardShape  []int `yaml:"board_shape"`
	ActionShape []int `yaml:"action_shape"`
}

// Training configures the buffer and the batch side.
type Training struct {
	// ReplayBufferSize is the buffer capacity in games.
	ReplayBufferSize int `yaml:"replay_buffer"`
	// SaveReplayFreq checkpoints the buffer every N inserted games.
	SaveReplayFreq int `yaml:"save_replay_freq"`
	// Batch is the mini-batch size; EpochSize the number of samples
	// per epoch.
	Batch     int `yaml:"batch"`
	EpochSize int `yaml:"epoch_size"`
	// Preload blocks startup until this many games are buffered.
	Preload int `yaml:"preload"`
	// DataDir holds the checkpoint; FifoPath is the generator's pipe.
	DataDir  string `yaml:"data_dir"`
	FifoPath string `yaml:"fifo_path"`
}

// Mu configures target construction.
type Mu struct {
	UnrollSteps   int  `yaml:"unroll_steps"`
	TDSteps       int  `yaml:"td_steps"`
	RewardSupport int  `yaml:"reward_support"`
	Puct          Puct `yaml:"puct"`
}

// Puct carries the search-side constants the sampler shares with the
// generator.
type Puct struct {
	Discount     float64 `yaml:"discount"`
	ValueSupport int     `yaml:"value_support"`
}

// StorageBackend selects where checkpoints go.
type StorageBackend struct {
	// Backend is "file" (default) or "couchbase".
	Backend   string    `yaml:"backend"`
	Couchbase Couchbase `yaml:"couchbase"`
}

// Couchbase locates the cluster for the couchbase backend.
type Couchbase struct {
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Bucket   string `yaml:"bucket"`
}

// BoardSize returns the flattened board tensor size.
func (g Game) BoardSize() int {
	return product(g.BoardShape)
}

// ActionSize returns the flattened action tensor size.
func (g Game) ActionSize() int {
	return product(g.ActionShape)
}

// Load reads and validates a yaml config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Training: Training{
			SaveReplayFreq: 64,
			DataDir:        "./training_data",
			FifoPath:       "./fifo",
		},
		Mu: Mu{
			Puct: Puct{Discount: 1},
		},
		Storage: StorageBackend{
			Backend: "file",
		},
	}
}

// Validate checks the invariants the subsystem relies on.
func (c *Config) Validate() error {
	switch {
	case c.Training.ReplayBufferSize <= 0:
		return errors.New("training.replay_buffer must be positive")
	case c.Training.SaveReplayFreq < 0:
		return errors.New("training.save_replay_freq must not be negative")
	case c.Training.Batch <= 0:
		return errors.New("training.batch must be positive")
	case c.Training.EpochSize < c.Training.Batch:
		return errors.New("training.epoch_size must be at least one batch")
	case c.Training.Preload < 0:
		return errors.New("training.preload must not be negative")
	case c.Game.BoardSize() <= 0:
		return errors.New("game.board_shape must have positive dimensions")
	case c.Game.ActionSize() <= 0:
		return errors.New("game.action_shape must have positive dimensions")
	case c.Mu.UnrollSteps <= 0:
		return errors.New("mu.unroll_steps must be positive")
	case c.Mu.TDSteps <= 0:
		return errors.New("mu.td_steps must be positive")
	case c.Mu.RewardSupport < 0:
		return errors.New("mu.reward_support must not be negative")
	case c.Mu.Puct.ValueSupport < 0:
		return errors.New("mu.puct.value_support must not be negative")
	case c.Mu.Puct.Discount <= 0 || c.Mu.Puct.Discount > 1:
		return errors.New("mu.puct.discount must be in (0, 1]")
	}

	switch c.Storage.Backend {
	case "file":
	case "couchbase":
		if c.Storage.Couchbase.Host == "" || c.Storage.Couchbase.Bucket == "" {
			return errors.New("storage.couchbase needs host and bucket")
		}
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

func product(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
