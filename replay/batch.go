package replay

import "context"

// Batch is a mini-batch of training targets, one leading batch
// dimension over the Target fields. It is the shape consumed by the
// training loop.
type Batch struct {
	States  [][]float64
	Actions [][][]float64
	Policy  [][][]float64
	Value   [][][]float64
	Reward  [][][]float64
}

// Generator assembles mini-batches by sampling targets repeatedly. It
// is the external-facing iterator handed to the training loop.
type Generator struct {
	sampler   *Sampler
	batchSize int
	epochSize int
}

// NewGenerator creates a batch generator. epochSize is the number of
// samples that make up one epoch; it only affects BatchesPerEpoch and
// the per-epoch bound of Stream.
func NewGenerator(sampler *Sampler, batchSize, epochSize int) *Generator {
	return &Generator{
		sampler:   sampler,
		batchSize: batchSize,
		epochSize: epochSize,
	}
}

// BatchesPerEpoch returns how many batches make up one epoch.
func (g *Generator) BatchesPerEpoch() int {
	return g.epochSize / g.batchSize
}

// Batch assembles one mini-batch. Sampling errors propagate
// synchronously to the caller.
func (g *Generator) Batch() (*Batch, error) {
	b := &Batch{
		States:  make([][]float64, g.batchSize),
		Actions: make([][][]float64, g.batchSize),
		Policy:  make([][][]float64, g.batchSize),
		Value:   make([][][]float64, g.batchSize),
		Reward:  make([][][]float64, g.batchSize),
	}
	for i := 0; i < g.batchSize; i++ {
		t, err := g.sampler.Sample()
		if err != nil {
			return nil, err
		}
		b.States[i] = t.State
		b.Actions[i] = t.Actions
		b.Policy[i] = t.Policy
		b.Value[i] = t.Value
		b.Reward[i] = t.Reward
	}
	return b, nil
}

// Stream delivers a lazy sequence of batches on out until ctx is done,
// a sampling error occurs, or the epoch bound is reached. epochs <= 0
// streams forever. The channel is closed on return.
func (g *Generator) Stream(ctx context.Context, epochs int, out chan<- *Batch) error {
	defer close(out)

	remaining := -1
	if epochs > 0 {
		remaining = epochs * g.BatchesPerEpoch()
	}

	for remaining != 0 {
		b, err := g.Batch()
		if err != nil {
			return err
		}
		select {
		case out <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
		if remaining > 0 {
			remaining--
		}
	}
	return nil
}
