package replay

import "github.com/google/uuid"

// GameRecord holds one completed game's per-move arrays. All per-move
// slices have the same length, the game's move count. State rows are
// flattened board tensors and policy/action rows are flattened action
// tensors; the shapes themselves live in the configuration.
//
// Records are immutable once inserted into a buffer. Slots hold
// pointers that are swapped whole, never mutated in place, so readers
// can never observe a record mid-overwrite.
type GameRecord struct {
	ID     uuid.UUID   `json:"id"`
	State  [][]float64 `json:"state"`
	Policy [][]float64 `json:"policy"`
	Value  []float64   `json:"value"`
	Action [][]float64 `json:"action"`
	Reward []float64   `json:"reward"`
	Turn   []int       `json:"turn"`
}

// Length returns the game's move count.
func (g *GameRecord) Length() int {
	return len(g.Value)
}
