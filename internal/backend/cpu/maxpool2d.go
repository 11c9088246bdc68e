package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/piczak/internal/parallel"
	"github.com/born-ml/piczak/internal/tensor"
)

// PoolOutputSize computes one spatial output dimension of a pooling stage:
// (size - kernel)/stride + 1.
func PoolOutputSize(size, kernel, stride int) int {
	return (size-kernel)/stride + 1
}

// MaxPool2D performs max pooling over an NCHW input.
//
// Kernel and stride are independent per axis. Overlapping windows
// (stride < kernel) are allowed; pooling over the whole frequency axis
// with stride 1 is the usual configuration for spectrogram nets.
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelH, kernelW, strideH, strideW int) *tensor.RawTensor {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("maxpool2d: input must be 4D [N,C,H,W], got %dD", len(inputShape)))
	}
	if kernelH <= 0 || kernelW <= 0 {
		panic(fmt.Sprintf("maxpool2d: kernel must be positive, got (%d, %d)", kernelH, kernelW))
	}
	if strideH <= 0 || strideW <= 0 {
		panic(fmt.Sprintf("maxpool2d: stride must be positive, got (%d, %d)", strideH, strideW))
	}
	if input.DType() != tensor.Float32 {
		panic(fmt.Sprintf("maxpool2d: unsupported dtype %s", input.DType()))
	}

	n, c, h, w := inputShape[0], inputShape[1], inputShape[2], inputShape[3]

	hOut := PoolOutputSize(h, kernelH, strideH)
	wOut := PoolOutputSize(w, kernelW, strideW)
	if hOut <= 0 || wOut <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid output dimensions: out_h=%d, out_w=%d (input %dx%d, kernel %dx%d)",
			hOut, wOut, h, w, kernelH, kernelW))
	}

	output := mustNewRaw("maxpool2d", tensor.Shape{n, c, hOut, wOut}, input.DType(), cpu.device)

	inputData := input.AsFloat32()
	outputData := output.AsFloat32()

	parallel.ForBatch(n, c, func(batch, ch int) {
		inPlane := inputData[(batch*c+ch)*h*w : (batch*c+ch+1)*h*w]
		outPlane := outputData[(batch*c+ch)*hOut*wOut : (batch*c+ch+1)*hOut*wOut]

		for outH := 0; outH < hOut; outH++ {
			hStart := outH * strideH
			for outW := 0; outW < wOut; outW++ {
				wStart := outW * strideW

				maxVal := float32(math.Inf(-1))
				for i := 0; i < kernelH; i++ {
					row := inPlane[(hStart+i)*w+wStart : (hStart+i)*w+wStart+kernelW]
					for _, v := range row {
						if v > maxVal {
							maxVal = v
						}
					}
				}
				outPlane[outH*wOut+outW] = maxVal
			}
		}
	}, cpu.pcfg)

	return output
}

// MaxPool2DBackward routes output gradients back to the input positions
// that won the corresponding forward windows.
//
// maxIndices holds one flat input index per output element, recorded
// during the forward pass. Overlapping windows accumulate.
func (cpu *CPUBackend) MaxPool2DBackward(input, grad *tensor.RawTensor, maxIndices []int) *tensor.RawTensor {
	if grad.DType() != tensor.Float32 {
		panic(fmt.Sprintf("maxpool2d backward: unsupported dtype %s", grad.DType()))
	}
	if len(maxIndices) != grad.NumElements() {
		panic(fmt.Sprintf("maxpool2d backward: maxIndices length %d != output elements %d",
			len(maxIndices), grad.NumElements()))
	}

	inputGrad := mustNewRaw("maxpool2d backward", input.Shape(), grad.DType(), cpu.device)

	inputGradData := inputGrad.AsFloat32()
	gradData := grad.AsFloat32()

	for outIdx, maxPos := range maxIndices {
		inputGradData[maxPos] += gradData[outIdx]
	}

	return inputGrad
}
