package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/TheLortex/rust-mcts/config"
	"github.com/TheLortex/rust-mcts/replay"
	"github.com/TheLortex/rust-mcts/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open checkpoint store")
	}

	buffer, err := openBuffer(cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to restore replay buffer")
	}

	ingestor := replay.NewIngestor(buffer, store, replay.IngestorConfig{
		FifoPath:   cfg.Training.FifoPath,
		BoardSize:  cfg.Game.BoardSize(),
		ActionSize: cfg.Game.ActionSize(),
		SavePeriod: cfg.Training.SaveReplayFreq,
	})

	if cfg.Training.Preload > 0 {
		log.Info().Int("limit", cfg.Training.Preload).Msg("booting up first games")
		if err := ingestor.Preload(cfg.Training.Preload); err != nil {
			log.Fatal().Err(err).Msg("preload failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := ingestor.Run()
		return errors.Wrap(err, "ingestor")
	})

	sampler := replay.NewSampler(buffer, samplerParams(cfg), time.Now().UnixNano())
	generator := replay.NewGenerator(sampler, cfg.Training.Batch, cfg.Training.EpochSize)

	batches := make(chan *replay.Batch)
	g.Go(func() error {
		err := generator.Stream(ctx, 0, batches)
		return errors.Wrap(err, "batch generator")
	})

	// Stand-in for the training loop: drain batches and report
	// throughput.
	g.Go(func() error {
		n := 0
		for range batches {
			n++
			if n%generator.BatchesPerEpoch() == 0 {
				stats := buffer.Stats()
				log.Info().
					Int("batches", n).
					Int("filled", stats.Filled).
					Uint64("lifetime", stats.Lifetime).
					Msg("epoch served")
			}
		}
		return nil
	})

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-termChan:
		log.Info().Msg("shutting down")
	case <-ctx.Done():
		// A worker died (truncated stream, malformed record, failed
		// checkpoint). Restarting the process is the recovery path.
		log.Error().Msg("worker failed, shutting down")
	}
	ingestor.Stop()
	cancel()

	// Give the workers a moment to wind down; the ingestor may be
	// blocked on the pipe forever, so don't wait unconditionally.
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("worker error")
		}
	case <-time.After(2 * time.Second):
		log.Warn().Msg("ingestor still blocked on the game stream, leaving anyway")
	}

	// Checkpoint what we have and leave. Records are immutable, so
	// the snapshot is consistent even with a read in flight.
	if err := store.Save(buffer.Snapshot()); err != nil {
		log.Error().Err(err).Msg("final checkpoint failed")
	} else {
		log.Info().Msg("final checkpoint written")
	}
}

func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Storage.Backend == "couchbase" {
		return storage.NewCouchbaseStore(storage.CouchbaseConfig{
			Host:     cfg.Storage.Couchbase.Host,
			Username: cfg.Storage.Couchbase.Username,
			Password: cfg.Storage.Couchbase.Password,
			Bucket:   cfg.Storage.Couchbase.Bucket,
		})
	}
	return storage.NewFileStore(cfg.Training.DataDir), nil
}

func openBuffer(cfg *config.Config, store storage.Store) (*replay.Buffer, error) {
	snap, err := store.Load()
	if errors.Is(err, storage.ErrNotFound) {
		log.Info().Int("capacity", cfg.Training.ReplayBufferSize).Msg("starting replay buffer from scratch")
		return replay.NewBuffer(cfg.Training.ReplayBufferSize), nil
	}
	if err != nil {
		return nil, err
	}

	buffer, err := replay.NewBufferFromSnapshot(snap, cfg.Training.ReplayBufferSize)
	if err != nil {
		return nil, err
	}
	stats := buffer.Stats()
	log.Info().
		Int("filled", stats.Filled).
		Uint64("lifetime", stats.Lifetime).
		Int("capacity", stats.Capacity).
		Msg("restored replay buffer")
	return buffer, nil
}

func samplerParams(cfg *config.Config) replay.SamplerParams {
	return replay.SamplerParams{
		UnrollSteps:   cfg.Mu.UnrollSteps,
		TDSteps:       cfg.Mu.TDSteps,
		Discount:      cfg.Mu.Puct.Discount,
		ValueSupport:  cfg.Mu.Puct.ValueSupport,
		RewardSupport: cfg.Mu.RewardSupport,
		BoardSize:     cfg.Game.BoardSize(),
		ActionSize:    cfg.Game.ActionSize(),
	}
}
