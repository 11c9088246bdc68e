// Package ops implements the differentiable operations recorded on the
// gradient tape. Each operation keeps references to its forward tensors
// and knows how to turn an output gradient into input gradients.
package ops

import "github.com/born-ml/piczak/internal/tensor"

// Operation is one node of the recorded computation graph.
type Operation interface {
	// Backward computes gradients for the inputs given the output
	// gradient, in the same order as Inputs().
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the forward input tensors.
	Inputs() []*tensor.RawTensor

	// Output returns the forward output tensor.
	Output() *tensor.RawTensor
}
