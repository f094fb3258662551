// Command feeder stands in for the game-generation process: it frames
// synthetic games onto the named pipe in the buffer's wire format.
// Useful for exercising ingestion and training end to end without a
// real game generator.
package main

import (
	"flag"
	"math/rand"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
	"gonum.org/v1/gonum/floats"

	"github.com/TheLortex/rust-mcts/config"
	"github.com/TheLortex/rust-mcts/replay"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	games := flag.Int("games", 1000, "number of games to generate (0 = forever)")
	maxMoves := flag.Int("max-moves", 60, "maximum moves per game")
	seed := flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	f, err := openFifo(cfg.Training.FifoPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open fifo")
	}
	defer f.Close()

	rng := rand.New(rand.NewSource(*seed))
	boardSize := cfg.Game.BoardSize()
	actionSize := cfg.Game.ActionSize()

	sent := 0
	for *games <= 0 || sent < *games {
		game := syntheticGame(rng, 1+rng.Intn(*maxMoves), boardSize, actionSize)
		payload, err := replay.EncodeRecord(game)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to encode game")
		}
		if err := replay.WriteFrame(f, payload); err != nil {
			log.Fatal().Err(err).Msg("failed to write frame")
		}
		sent++
		if sent%100 == 0 {
			log.Info().Int("games", sent).Msg("fed games")
		}
	}
	log.Info().Int("games", sent).Msg("done")
}

// openFifo creates the pipe if missing and blocks until the buffer
// side opens it for reading.
func openFifo(path string) (*os.File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := unix.Mkfifo(path, 0o644); err != nil && !errors.Is(err, unix.EEXIST) {
			return nil, errors.Wrapf(err, "mkfifo %s", path)
		}
	}
	log.Info().Str("fifo", path).Msg("waiting for replay buffer")
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open fifo %s", path)
	}
	log.Info().Str("fifo", path).Msg("replay buffer connected")
	return f, nil
}

// syntheticGame builds a random but well-formed game: normalized
// policies, one-hot actions, alternating turns, and a terminal reward
// on the last move.
func syntheticGame(rng *rand.Rand, moves, boardSize, actionSize int) *replay.GameRecord {
	g := &replay.GameRecord{
		State:  make([][]float64, moves),
		Policy: make([][]float64, moves),
		Value:  make([]float64, moves),
		Action: make([][]float64, moves),
		Reward: make([]float64, moves),
		Turn:   make([]int, moves),
	}
	for m := 0; m < moves; m++ {
		state := make([]float64, boardSize)
		for i := range state {
			state[i] = rng.Float64()
		}
		g.State[m] = state

		policy := make([]float64, actionSize)
		for i := range policy {
			policy[i] = rng.Float64()
		}
		floats.Scale(1/floats.Sum(policy), policy)
		g.Policy[m] = policy

		action := make([]float64, actionSize)
		action[rng.Intn(actionSize)] = 1
		g.Action[m] = action

		g.Value[m] = 2*rng.Float64() - 1
		g.Turn[m] = m % 2
	}
	// Zero-sum terminal reward for the last mover.
	g.Reward[moves-1] = float64(2*rng.Intn(2) - 1)
	return g
}
