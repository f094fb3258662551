package replay

import (
	"math"
	"math/rand"

	"github.com/TheLortex/rust-mcts/support"
)

// SamplerParams are the read-only settings of target construction.
type SamplerParams struct {
	UnrollSteps   int
	TDSteps       int
	Discount      float64
	ValueSupport  int // radius of the value support
	RewardSupport int // radius of the reward support
	BoardSize     int
	ActionSize    int
}

// Target is one training example: the board at the sampled position
// plus UnrollSteps of actions and per-step policy/value/reward
// targets. All fields have fixed shape regardless of how close the
// sampled position was to the end of the game.
type Target struct {
	State   []float64
	Actions [][]float64
	Policy  [][]float64
	Value   [][]float64
	Reward  [][]float64
}

// OutcomeTarget is a flat single-position example: the board, the
// search policy, and the terminal outcome from the mover's
// perspective encoded on the value support.
type OutcomeTarget struct {
	State  []float64
	Policy []float64
	Value  []float64
}

// Sampler draws random positions from a buffer and builds training
// targets. Each sampler owns its rng, so one per goroutine; the buffer
// itself is safe for concurrent sampling.
type Sampler struct {
	buf *Buffer
	p   SamplerParams
	rng *rand.Rand
}

// NewSampler creates a sampler over buf with its own seeded rng.
func NewSampler(buf *Buffer, p SamplerParams, seed int64) *Sampler {
	return &Sampler{
		buf: buf,
		p:   p,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Sample draws a uniformly random game and move and builds the
// unrolled target for it. Fails with ErrEmptyBuffer before the first
// insert.
func (s *Sampler) Sample() (*Target, error) {
	game, err := s.buf.SampleGame(s.rng)
	if err != nil {
		return nil, err
	}
	move := s.rng.Intn(game.Length())
	return s.buildTarget(game, move), nil
}

// buildTarget computes the n-step returns and support encodings for
// one (game, move) pair.
func (s *Sampler) buildTarget(game *GameRecord, move int) *Target {
	n := game.Length()
	t := &Target{
		State:   append([]float64(nil), game.State[move]...),
		Actions: make([][]float64, s.p.UnrollSteps),
		Policy:  make([][]float64, s.p.UnrollSteps),
		Value:   make([][]float64, s.p.UnrollSteps),
		Reward:  make([][]float64, s.p.UnrollSteps),
	}

	for step := 0; step < s.p.UnrollSteps; step++ {
		i := move + step

		// Bootstrap from the stored value estimate once the reward
		// horizon extends past the observed tail.
		var value float64
		if i+s.p.TDSteps < n {
			value = game.Value[i+s.p.TDSteps] * math.Pow(s.p.Discount, float64(s.p.TDSteps))
		}

		// Accumulate discounted rewards over the horizon. Rewards
		// earned while the opponent was to move count against this
		// player's return (zero-sum convention).
		for j := 0; j < s.p.TDSteps && i+j < n; j++ {
			r := game.Reward[i+j] * math.Pow(s.p.Discount, float64(j))
			if game.Turn[i+j] == game.Turn[i] {
				value += r
			} else {
				value -= r
			}
		}

		if i < n {
			t.Reward[step] = support.Encode(game.Reward[i], s.p.RewardSupport)
			t.Value[step] = support.Encode(value, s.p.ValueSupport)
			t.Actions[step] = append([]float64(nil), game.Action[i]...)
			t.Policy[step] = append([]float64(nil), game.Policy[i]...)
		} else {
			// Unrolled past the end of the game: absorbing state with
			// zero reward and value, a random placeholder action, and
			// a uniform policy.
			t.Reward[step] = support.Encode(0, s.p.RewardSupport)
			t.Value[step] = support.Encode(0, s.p.ValueSupport)

			action := make([]float64, s.p.ActionSize)
			action[s.rng.Intn(s.p.ActionSize)] = 1
			t.Actions[step] = action

			policy := make([]float64, s.p.ActionSize)
			for k := range policy {
				policy[k] = 1 / float64(s.p.ActionSize)
			}
			t.Policy[step] = policy
		}
	}
	return t
}

// SampleOutcome draws a random position and builds a flat target whose
// value is 1 when the player to move also made the final move of the
// game, 0 otherwise.
func (s *Sampler) SampleOutcome() (*OutcomeTarget, error) {
	game, err := s.buf.SampleGame(s.rng)
	if err != nil {
		return nil, err
	}
	n := game.Length()
	move := s.rng.Intn(n)

	var value float64
	if game.Turn[move] == game.Turn[n-1] {
		value = 1
	}

	return &OutcomeTarget{
		State:  append([]float64(nil), game.State[move]...),
		Policy: append([]float64(nil), game.Policy[move]...),
		Value:  support.Encode(value, s.p.ValueSupport),
	}, nil
}
