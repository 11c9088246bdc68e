package ops

import (
	"fmt"

	"github.com/born-ml/piczak/internal/tensor"
)

// SumOp records output = sum(input) over all elements.
// Every input element contributed with weight 1, so the scalar output
// gradient is broadcast to the full input shape.
type SumOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{inputs: []*tensor.RawTensor{input}, output: output}
}

// Backward fills the input gradient with the scalar output gradient.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	input := op.inputs[0]

	grad, err := tensor.NewRaw(input.Shape(), input.DType(), input.Device())
	if err != nil {
		panic(fmt.Sprintf("SumOp.Backward: %v", err))
	}

	g := outputGrad.AsFloat32()[0]
	data := grad.AsFloat32()
	for i := range data {
		data[i] = g
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns [input].
func (op *SumOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the scalar sum.
func (op *SumOp) Output() *tensor.RawTensor { return op.output }
