package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLortex/rust-mcts/support"
)

func testParams() SamplerParams {
	return SamplerParams{
		UnrollSteps:   3,
		TDSteps:       2,
		Discount:      1,
		ValueSupport:  10,
		RewardSupport: 1,
		BoardSize:     2,
		ActionSize:    3,
	}
}

// fourMoveGame alternates turns and ends with a terminal reward for
// the second player.
func fourMoveGame() *GameRecord {
	return &GameRecord{
		State:  [][]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}},
		Policy: [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {0.5, 0.5, 0}},
		Value:  []float64{0.5, 0.5, 0.5, 0.5},
		Action: [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 0, 0}},
		Reward: []float64{0, 0, 0, 1},
		Turn:   []int{0, 1, 0, 1},
	}
}

func TestBuildTargetValueSignsFollowTurns(t *testing.T) {
	buf := NewBuffer(4)
	s := NewSampler(buf, testParams(), 7)
	game := fourMoveGame()

	target := s.buildTarget(game, 2)

	// Position 2 (player 0 to move): no bootstrap (2+2 past the end),
	// reward horizon covers moves 2 and 3; move 3 belongs to the
	// opponent, so its reward counts against player 0.
	require.Equal(t, support.Encode(-1, 10), target.Value[0])
	// Position 3 (player 1 to move): its own terminal reward.
	require.Equal(t, support.Encode(1, 10), target.Value[1])
	// Past the end of the game.
	require.Equal(t, support.Encode(0, 10), target.Value[2])

	require.Equal(t, support.Encode(0, 1), target.Reward[0])
	require.Equal(t, support.Encode(1, 1), target.Reward[1])
	require.Equal(t, support.Encode(0, 1), target.Reward[2])

	require.Equal(t, game.State[2], target.State)
	require.Equal(t, game.Action[2], target.Actions[0])
	require.Equal(t, game.Policy[3], target.Policy[1])
}

func TestBuildTargetBootstrapsStoredValue(t *testing.T) {
	buf := NewBuffer(4)
	p := testParams()
	p.UnrollSteps = 1
	p.TDSteps = 1
	p.Discount = 0.5
	s := NewSampler(buf, p, 7)

	game := &GameRecord{
		State:  [][]float64{{0, 0}, {1, 1}, {2, 2}},
		Policy: [][]float64{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}},
		Value:  []float64{0.2, 0.4, 0.8},
		Action: [][]float64{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}},
		Reward: []float64{0, 0, 0},
		Turn:   []int{0, 0, 0},
	}

	// value[1] discounted one step: 0.4 * 0.5.
	target := s.buildTarget(game, 0)
	require.Equal(t, support.Encode(0.2, 10), target.Value[0])
}

func TestBuildTargetFixedShapeNearGameEnd(t *testing.T) {
	buf := NewBuffer(4)
	s := NewSampler(buf, testParams(), 7)
	game := fourMoveGame()

	// Sampling the final move still yields UnrollSteps of everything.
	target := s.buildTarget(game, 3)
	require.Len(t, target.Actions, 3)
	require.Len(t, target.Policy, 3)
	require.Len(t, target.Value, 3)
	require.Len(t, target.Reward, 3)
	require.Len(t, target.State, 2)

	for step := 1; step < 3; step++ {
		// Uniform policy over the action cells.
		var policySum float64
		for _, p := range target.Policy[step] {
			assert.InDelta(t, 1.0/3, p, 1e-9)
			policySum += p
		}
		assert.InDelta(t, 1, policySum, 1e-9)

		// Placeholder action: exactly one set cell.
		ones := 0
		for _, a := range target.Actions[step] {
			if a == 1 {
				ones++
			} else {
				require.Zero(t, a)
			}
		}
		require.Equal(t, 1, ones)
	}
}

func TestSampleFromEmptyBuffer(t *testing.T) {
	s := NewSampler(NewBuffer(4), testParams(), 7)
	_, err := s.Sample()
	require.ErrorIs(t, err, ErrEmptyBuffer)

	_, err = s.SampleOutcome()
	require.ErrorIs(t, err, ErrEmptyBuffer)
}

func TestSampleReturnsFixedShapes(t *testing.T) {
	buf := NewBuffer(4)
	buf.Insert(fourMoveGame())
	s := NewSampler(buf, testParams(), 7)

	for i := 0; i < 50; i++ {
		target, err := s.Sample()
		require.NoError(t, err)
		require.Len(t, target.State, 2)
		require.Len(t, target.Actions, 3)
		for step := 0; step < 3; step++ {
			require.Len(t, target.Actions[step], 3)
			require.Len(t, target.Policy[step], 3)
			require.Len(t, target.Value[step], support.Width(10))
			require.Len(t, target.Reward[step], support.Width(1))
		}
	}
}

func TestSampleOutcomeWinnerPerspective(t *testing.T) {
	// All moves by the same player as the final move: outcome 1.
	won := &GameRecord{
		State:  [][]float64{{0, 0}, {1, 1}},
		Policy: [][]float64{{1, 0, 0}, {0, 1, 0}},
		Value:  []float64{0, 0},
		Action: [][]float64{{1, 0, 0}, {0, 1, 0}},
		Reward: []float64{0, 1},
		Turn:   []int{1, 1},
	}

	buf := NewBuffer(4)
	buf.Insert(won)
	s := NewSampler(buf, testParams(), 7)

	for i := 0; i < 20; i++ {
		target, err := s.SampleOutcome()
		require.NoError(t, err)
		require.Equal(t, support.Encode(1, 10), target.Value)
		require.Len(t, target.State, 2)
		require.Len(t, target.Policy, 3)
	}
}

func TestSampleOutcomeSingleMoveGame(t *testing.T) {
	buf := NewBuffer(4)
	buf.Insert(testGame(3))
	s := NewSampler(buf, testParams(), 7)

	target, err := s.SampleOutcome()
	require.NoError(t, err)
	// The only mover made the final move.
	require.Equal(t, support.Encode(1, 10), target.Value)
}
