package ops

import "github.com/born-ml/piczak/internal/tensor"

// AddScalarOp records output = input + s (or input - s). The shift does not
// affect the gradient, which passes through unchanged.
type AddScalarOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewAddScalarOp creates an AddScalarOp.
func NewAddScalarOp(input, output *tensor.RawTensor) *AddScalarOp {
	return &AddScalarOp{inputs: []*tensor.RawTensor{input}, output: output}
}

// Backward passes the output gradient through.
func (op *AddScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad.Clone()}
}

// Inputs returns [input].
func (op *AddScalarOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the shifted tensor.
func (op *AddScalarOp) Output() *tensor.RawTensor { return op.output }

// MulScalarOp records output = input * s. Division by a scalar is recorded
// as multiplication by its reciprocal.
type MulScalarOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	scale  float32
}

// NewMulScalarOp creates a MulScalarOp.
func NewMulScalarOp(input, output *tensor.RawTensor, scale float32) *MulScalarOp {
	return &MulScalarOp{
		inputs: []*tensor.RawTensor{input},
		output: output,
		scale:  scale,
	}
}

// Backward scales the output gradient by the recorded factor.
func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.scale)}
}

// Inputs returns [input].
func (op *MulScalarOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the scaled tensor.
func (op *MulScalarOp) Output() *tensor.RawTensor { return op.output }
