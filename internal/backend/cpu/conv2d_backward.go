package cpu

import (
	"fmt"

	"github.com/born-ml/piczak/internal/tensor"
)

// Conv2DInputBackward computes the gradient w.r.t. the convolution input.
//
// Transposed convolution: every output gradient value is scattered back to
// the input positions its receptive field covered, weighted by the kernel.
//
// Reference: "A guide to convolution arithmetic for deep learning"
// (Dumoulin & Visin, 2016).
func (cpu *CPUBackend) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, strideH, strideW, padH, padW int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()
	gradShape := grad.Shape()

	n, cIn, h, w := inputShape[0], inputShape[1], inputShape[2], inputShape[3]
	cOut, kh, kw := kernelShape[0], kernelShape[2], kernelShape[3]
	hOut, wOut := gradShape[2], gradShape[3]

	if grad.DType() != tensor.Float32 {
		panic(fmt.Sprintf("conv2d input backward: unsupported dtype %s", grad.DType()))
	}

	inputGrad := mustNewRaw("conv2d input backward", tensor.Shape{n, cIn, h, w}, grad.DType(), cpu.device)

	inputGradData := inputGrad.AsFloat32()
	gradData := grad.AsFloat32()
	kernelData := kernel.AsFloat32()

	for batch := 0; batch < n; batch++ {
		inputGradBatch := inputGradData[batch*cIn*h*w : (batch+1)*cIn*h*w]
		gradBatch := gradData[batch*cOut*hOut*wOut : (batch+1)*cOut*hOut*wOut]

		for outH := 0; outH < hOut; outH++ {
			for outW := 0; outW < wOut; outW++ {
				for oc := 0; oc < cOut; oc++ {
					gradVal := gradBatch[oc*hOut*wOut+outH*wOut+outW]
					kernelOC := kernelData[oc*cIn*kh*kw : (oc+1)*cIn*kh*kw]

					for ic := 0; ic < cIn; ic++ {
						inputGradIC := inputGradBatch[ic*h*w : (ic+1)*h*w]
						kernelIC := kernelOC[ic*kh*kw : (ic+1)*kh*kw]

						for i := 0; i < kh; i++ {
							for j := 0; j < kw; j++ {
								hPos := outH*strideH - padH + i
								wPos := outW*strideW - padW + j
								if hPos >= 0 && hPos < h && wPos >= 0 && wPos < w {
									inputGradIC[hPos*w+wPos] += gradVal * kernelIC[i*kw+j]
								}
							}
						}
					}
				}
			}
		}
	}

	return inputGrad
}

// Conv2DKernelBackward computes the gradient w.r.t. the convolution kernel.
//
// For each kernel weight, accumulates input * outputGrad over all batch
// samples and output positions that used that weight.
func (cpu *CPUBackend) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, strideH, strideW, padH, padW int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()
	gradShape := grad.Shape()

	n, cIn, h, w := inputShape[0], inputShape[1], inputShape[2], inputShape[3]
	cOut, kh, kw := kernelShape[0], kernelShape[2], kernelShape[3]
	hOut, wOut := gradShape[2], gradShape[3]

	if grad.DType() != tensor.Float32 {
		panic(fmt.Sprintf("conv2d kernel backward: unsupported dtype %s", grad.DType()))
	}

	kernelGrad := mustNewRaw("conv2d kernel backward", tensor.Shape{cOut, cIn, kh, kw}, grad.DType(), cpu.device)

	kernelGradData := kernelGrad.AsFloat32()
	gradData := grad.AsFloat32()
	inputData := input.AsFloat32()

	for oc := 0; oc < cOut; oc++ {
		for ic := 0; ic < cIn; ic++ {
			for i := 0; i < kh; i++ {
				for j := 0; j < kw; j++ {
					sum := float32(0)

					for batch := 0; batch < n; batch++ {
						for outH := 0; outH < hOut; outH++ {
							for outW := 0; outW < wOut; outW++ {
								hPos := outH*strideH - padH + i
								wPos := outW*strideW - padW + j
								if hPos >= 0 && hPos < h && wPos >= 0 && wPos < w {
									inputIdx := batch*cIn*h*w + ic*h*w + hPos*w + wPos
									gradIdx := batch*cOut*hOut*wOut + oc*hOut*wOut + outH*wOut + outW
									sum += inputData[inputIdx] * gradData[gradIdx]
								}
							}
						}
					}

					kernelGradData[oc*cIn*kh*kw+ic*kh*kw+i*kw+j] = sum
				}
			}
		}
	}

	return kernelGrad
}
