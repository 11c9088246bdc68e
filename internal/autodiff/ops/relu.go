package ops

import (
	"fmt"

	"github.com/born-ml/piczak/internal/tensor"
)

// ReLUOp records output = max(input, 0).
// The gradient passes through where the input was positive and is zero
// elsewhere.
type ReLUOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{inputs: []*tensor.RawTensor{input}, output: output}
}

// Backward masks the output gradient by the input sign.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	input := op.inputs[0]

	grad, err := tensor.NewRaw(input.Shape(), input.DType(), input.Device())
	if err != nil {
		panic(fmt.Sprintf("ReLUOp.Backward: %v", err))
	}

	inputData := input.AsFloat32()
	gradData := outputGrad.AsFloat32()
	outData := grad.AsFloat32()
	for i, x := range inputData {
		if x > 0 {
			outData[i] = gradData[i]
		}
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns [input].
func (op *ReLUOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns max(input, 0).
func (op *ReLUOp) Output() *tensor.RawTensor { return op.output }
