package ops

import (
	"math"

	"github.com/born-ml/piczak/internal/tensor"
)

// MaxPool2DOp records output = maxpool2d(input) with a rectangular window.
// The winning element position per window is recomputed at construction so
// the backward pass can route gradients without rerunning the comparison
// against a possibly mutated input.
type MaxPool2DOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor

	maxIndices []int
}

// NewMaxPool2DOp creates a MaxPool2DOp.
func NewMaxPool2DOp(input, output *tensor.RawTensor, kernelH, kernelW, strideH, strideW int) *MaxPool2DOp {
	return &MaxPool2DOp{
		inputs:     []*tensor.RawTensor{input},
		output:     output,
		maxIndices: computeMaxIndices(input, kernelH, kernelW, strideH, strideW),
	}
}

// Backward scatters the output gradient to the winning input positions.
func (op *MaxPool2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		backend.MaxPool2DBackward(op.inputs[0], outputGrad, op.maxIndices),
	}
}

// Inputs returns [input].
func (op *MaxPool2DOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the pooled tensor.
func (op *MaxPool2DOp) Output() *tensor.RawTensor { return op.output }

// computeMaxIndices finds, for every pooling window, the flat index of the
// maximum element in the input. Indices are ordered like the flattened
// NCHW output.
func computeMaxIndices(input *tensor.RawTensor, kernelH, kernelW, strideH, strideW int) []int {
	shape := input.Shape()
	n, c, h, w := shape[0], shape[1], shape[2], shape[3]

	hOut := (h-kernelH)/strideH + 1
	wOut := (w-kernelW)/strideW + 1

	data := input.AsFloat32()
	indices := make([]int, n*c*hOut*wOut)

	idx := 0
	for b := 0; b < n; b++ {
		for ch := 0; ch < c; ch++ {
			planeBase := (b*c + ch) * h * w
			for oh := 0; oh < hOut; oh++ {
				for ow := 0; ow < wOut; ow++ {
					maxVal := float32(math.Inf(-1))
					maxPos := -1
					for kh := 0; kh < kernelH; kh++ {
						rowBase := planeBase + (oh*strideH+kh)*w + ow*strideW
						for kw := 0; kw < kernelW; kw++ {
							if v := data[rowBase+kw]; v > maxVal {
								maxVal = v
								maxPos = rowBase + kw
							}
						}
					}
					indices[idx] = maxPos
					idx++
				}
			}
		}
	}
	return indices
}
