package nn

import (
	"github.com/born-ml/piczak/internal/tensor"
)

// Regularizer computes a scalar penalty for a parameter tensor. The
// penalty is added to the data loss; building it from backend operations
// keeps it differentiable, so weight decay flows into the parameter
// gradients like any other term.
type Regularizer[B tensor.Backend] interface {
	// Penalty returns a single-element tensor.
	Penalty(param *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
}

// L2 penalizes lambda * sum(w²).
type L2[B tensor.Backend] struct {
	lambda float32
}

// NewL2 creates an L2 regularizer with the given strength.
func NewL2[B tensor.Backend](lambda float32) *L2[B] {
	return &L2[B]{lambda: lambda}
}

// Penalty returns lambda * sum(param²) as a single-element tensor.
func (r *L2[B]) Penalty(param *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	// Pin the parameter buffer so the squaring cannot run in place over
	// the live weights.
	defer param.Raw().ForceNonUnique()()
	return param.Mul(param).Sum().MulScalar(r.lambda)
}

// Lambda returns the regularization strength.
func (r *L2[B]) Lambda() float32 {
	return r.lambda
}
