package cpu

import (
	"fmt"

	"github.com/born-ml/piczak/internal/parallel"
	"github.com/born-ml/piczak/internal/tensor"
)

// Conv2DOutputSize computes one spatial output dimension of a convolution:
// (size + 2*pad - kernel)/stride + 1.
func Conv2DOutputSize(size, kernel, stride, pad int) int {
	return (size+2*pad-kernel)/stride + 1
}

// Conv2D performs 2D convolution using the im2col algorithm.
//
// Input shape:  [N, C_in, H, W]
// Kernel shape: [C_out, C_in, K_h, K_w]
// Output shape: [N, C_out, H_out, W_out]
//
// Kernel, stride and padding are independent per axis. Spectrogram
// convolutions use tall frequency kernels with short time extents, so the
// height/width parameters rarely agree.
//
// Im2col lowers each input patch into a row of a column matrix, reduces the
// convolution to a matrix product against the flattened kernel, and
// rearranges the product into NCHW.
//
// Reference: "High Performance Convolutional Neural Networks for Document
// Processing" (Chellapilla et al., 2006).
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, strideH, strideW, padH, padW int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()

	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N,C,H,W], got %dD", len(inputShape)))
	}
	if len(kernelShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", len(kernelShape)))
	}
	if strideH <= 0 || strideW <= 0 {
		panic(fmt.Sprintf("conv2d: strides must be positive, got (%d, %d)", strideH, strideW))
	}

	n, cIn, h, w := inputShape[0], inputShape[1], inputShape[2], inputShape[3]
	cOut, cInK, kh, kw := kernelShape[0], kernelShape[1], kernelShape[2], kernelShape[3]

	if cIn != cInK {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", cIn, cInK))
	}

	hOut := Conv2DOutputSize(h, kh, strideH, padH)
	wOut := Conv2DOutputSize(w, kw, strideW, padW)
	if hOut <= 0 || wOut <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output dimensions: out_h=%d, out_w=%d (input %dx%d, kernel %dx%d)",
			hOut, wOut, h, w, kh, kw))
	}
	if input.DType() != tensor.Float32 {
		panic(fmt.Sprintf("conv2d: unsupported dtype %s", input.DType()))
	}

	output := mustNewRaw("conv2d", tensor.Shape{n, cOut, hOut, wOut}, input.DType(), cpu.device)

	inputData := input.AsFloat32()
	kernelData := kernel.AsFloat32()
	outputData := output.AsFloat32()

	// Lower patches: colBuf is [N * H_out * W_out, C_in * K_h * K_w].
	colWidth := cIn * kh * kw
	colHeight := n * hOut * wOut
	colBuf := make([]float32, colHeight*colWidth)
	im2col(colBuf, inputData, n, cIn, h, w, kh, kw, hOut, wOut, strideH, strideW, padH, padW)

	// The flattened kernel is already [C_out, C_in * K_h * K_w] row-major.
	// product[c, j] = sum_k kernel[c, k] * colBuf[j, k]
	// Each j indexes an (n, out_h, out_w) position, so the product lands
	// directly at output[n, c, out_h, out_w].
	planeSize := hOut * wOut
	parallel.ForBatch(n, cOut, func(batch, c int) {
		kernelRow := kernelData[c*colWidth : (c+1)*colWidth]
		outPlane := outputData[(batch*cOut+c)*planeSize : (batch*cOut+c+1)*planeSize]
		for p := 0; p < planeSize; p++ {
			col := colBuf[(batch*planeSize+p)*colWidth : (batch*planeSize+p+1)*colWidth]
			sum := float32(0)
			for k := range kernelRow {
				sum += kernelRow[k] * col[k]
			}
			outPlane[p] = sum
		}
	}, cpu.pcfg)

	return output
}

// im2col lowers input patches into rows of colBuf.
//
// Each row corresponds to one (n, out_h, out_w) output position; each
// column to one kernel weight. Out-of-bounds reads produced by padding are
// zero-filled.
func im2col(colBuf, inputData []float32, n, c, h, w, kh, kw, hOut, wOut, strideH, strideW, padH, padW int) {
	colWidth := c * kh * kw
	colIdx := 0

	for batch := 0; batch < n; batch++ {
		for outH := 0; outH < hOut; outH++ {
			for outW := 0; outW < wOut; outW++ {
				hStart := outH*strideH - padH
				wStart := outW*strideW - padW
				bufIdx := colIdx * colWidth

				for ch := 0; ch < c; ch++ {
					for i := 0; i < kh; i++ {
						for j := 0; j < kw; j++ {
							hPos := hStart + i
							wPos := wStart + j
							if hPos >= 0 && hPos < h && wPos >= 0 && wPos < w {
								colBuf[bufIdx] = inputData[batch*c*h*w+ch*h*w+hPos*w+wPos]
							} else {
								colBuf[bufIdx] = 0
							}
							bufIdx++
						}
					}
				}
				colIdx++
			}
		}
	}
}
