package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/piczak/internal/tensor"
)

// Dropout randomly zeroes input elements during training.
//
// Uses inverted dropout: surviving elements are scaled by 1/keepProb at
// training time, so evaluation is a plain identity and no rescaling is
// needed at inference.
//
// The layer starts in evaluation mode. Call SetTraining(true) before a
// training step.
type Dropout[B tensor.Backend] struct {
	keepProb float64
	rng      *rand.Rand
	training bool
}

// NewDropout creates a Dropout layer that keeps elements with probability
// keepProb. The rng drives mask sampling; pass the model's seeded source
// for reproducible training runs.
func NewDropout[B tensor.Backend](keepProb float64, rng *rand.Rand) *Dropout[B] {
	if keepProb <= 0 || keepProb > 1 {
		panic(fmt.Sprintf("dropout: keep probability %v outside (0, 1]", keepProb))
	}
	return &Dropout[B]{
		keepProb: keepProb,
		rng:      rng,
	}
}

// SetTraining switches between training (masking) and evaluation
// (identity) behavior.
func (d *Dropout[B]) SetTraining(training bool) {
	d.training = training
}

// Training reports whether the layer is in training mode.
func (d *Dropout[B]) Training() bool {
	return d.training
}

// KeepProb returns the keep probability.
func (d *Dropout[B]) KeepProb() float64 {
	return d.keepProb
}

// Forward applies the dropout mask in training mode and is the identity
// otherwise.
//
// The mask multiply goes through the backend, so the same zeroing applies
// to gradients on the way back.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.keepProb == 1 {
		return input
	}

	backend := input.Backend()
	mask := tensor.Zeros[float32](input.Shape(), backend)
	maskData := mask.Data()
	scale := float32(1.0 / d.keepProb)
	for i := range maskData {
		if d.rng.Float64() < d.keepProb {
			maskData[i] = scale
		}
	}

	return input.Mul(mask)
}

// Parameters returns nil; Dropout has no trainable parameters.
func (d *Dropout[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty map.
func (d *Dropout[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op for parameterless layers.
func (d *Dropout[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return nil
}
