package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/piczak/internal/tensor"
)

// Linear implements a fully connected layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [batch, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//
// Example:
//
//	layer := nn.NewLinear(800, 5000, nil, nil, rng, backend)
//	output := layer.Forward(input) // [batch, 5000]
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features]
	backend     B
}

// NewLinear creates a Linear layer. A nil weightInit defaults to
// XavierUniform; a nil biasInit defaults to zeros.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, weightInit, biasInit Initializer, rng *rand.Rand, backend B) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("linear: invalid features in=%d, out=%d", inFeatures, outFeatures))
	}
	if weightInit == nil {
		weightInit = XavierUniform
	}
	if biasInit == nil {
		biasInit = ZeroInit
	}

	weightShape := tensor.Shape{outFeatures, inFeatures}
	weight := newInitialized(weightShape, weightInit, inFeatures, outFeatures, rng, backend)

	biasShape := tensor.Shape{outFeatures}
	bias := newInitialized(biasShape, biasInit, inFeatures, outFeatures, rng, backend)

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", weight),
		bias:        NewParameter("bias", bias),
		backend:     backend,
	}
}

// Forward computes y = x @ W.T + b.
//
// Input shape: [batch, in_features]
// Output shape: [batch, out_features].
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, inputShape[1]))
	}

	// The transpose must go through the backend so the gradient reaches
	// the original weight parameter, not the transposed copy.
	wT := l.weight.Tensor().Transpose() // [in_features, out_features]
	output := input.MatMul(wT)

	bReshaped := l.bias.Tensor().Reshape(1, l.outFeatures)
	return output.Add(bReshaped)
}

// Parameters returns [weight, bias].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}

// StateDict returns the layer parameters keyed "weight" and "bias".
func (l *Linear[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight": l.weight.Tensor().Raw(),
		"bias":   l.bias.Tensor().Raw(),
	}
}

// LoadStateDict copies "weight" and "bias" values into the layer.
func (l *Linear[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := loadParam(stateDict, "weight", l.weight, tensor.Shape{l.outFeatures, l.inFeatures}); err != nil {
		return err
	}
	return loadParam(stateDict, "bias", l.bias, tensor.Shape{l.outFeatures})
}

// loadParam validates shape and dtype, then copies values into a parameter.
func loadParam[B tensor.Backend](stateDict map[string]*tensor.RawTensor, name string, p *Parameter[B], want tensor.Shape) error {
	raw, ok := stateDict[name]
	if !ok {
		return fmt.Errorf("missing %s in state dict", name)
	}
	if !raw.Shape().Equal(want) {
		return fmt.Errorf("%s shape mismatch: expected %v, got %v", name, want, raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		return fmt.Errorf("%s dtype mismatch: expected float32, got %v", name, raw.DType())
	}
	copy(p.Tensor().Data(), raw.AsFloat32())
	return nil
}
