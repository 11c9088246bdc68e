package ops

import "github.com/born-ml/piczak/internal/tensor"

// Conv2DOp records output = conv2d(input, kernel) with per-axis stride and
// padding. The backward pass delegates to the backend's convolution
// gradient kernels.
type Conv2DOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor

	strideH, strideW int
	padH, padW       int
}

// NewConv2DOp creates a Conv2DOp.
func NewConv2DOp(input, kernel, output *tensor.RawTensor, strideH, strideW, padH, padW int) *Conv2DOp {
	return &Conv2DOp{
		inputs:  []*tensor.RawTensor{input, kernel},
		output:  output,
		strideH: strideH,
		strideW: strideW,
		padH:    padH,
		padW:    padW,
	}
}

// Backward computes gradients for the input and the kernel.
func (op *Conv2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	input, kernel := op.inputs[0], op.inputs[1]

	gradInput := backend.Conv2DInputBackward(input, kernel, outputGrad,
		op.strideH, op.strideW, op.padH, op.padW)
	gradKernel := backend.Conv2DKernelBackward(input, kernel, outputGrad,
		op.strideH, op.strideW, op.padH, op.padW)

	return []*tensor.RawTensor{gradInput, gradKernel}
}

// Inputs returns [input, kernel].
func (op *Conv2DOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the convolution result.
func (op *Conv2DOp) Output() *tensor.RawTensor { return op.output }
