package cpu

import (
	"github.com/born-ml/piczak/internal/tensor"
)

// applyInplace runs a binary kernel in place: a[i] = f(a[i], b[i]).
// Requires equal shapes and a unique left-hand buffer.
func applyInplace[T tensor.DType](a, b []T, f func(x, y T) T) {
	for i := range a {
		a[i] = f(a[i], b[i])
	}
}

// applyVectorized runs a binary kernel over equal-shape operands.
func applyVectorized[T tensor.DType](dst, a, b []T, f func(x, y T) T) {
	for i := range dst {
		dst[i] = f(a[i], b[i])
	}
}

// applyBroadcast runs a binary kernel with NumPy-style broadcasting.
// Operands are addressed through broadcast strides: stretched dimensions
// get stride 0 so every output element reads the right source value.
func applyBroadcast[T tensor.DType](dst, a, b []T, aShape, bShape, outShape tensor.Shape, f func(x, y T) T) {
	outStrides := outShape.ComputeStrides()
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)

	for i := range dst {
		dst[i] = f(a[flatIndex(i, outStrides, aStrides)], b[flatIndex(i, outStrides, bStrides)])
	}
}

// broadcastStrides computes source strides for reading inShape as outShape.
// Dimensions of size 1 and left-padded dimensions read with stride 0.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	outDim := len(outShape)
	strides := make([]int, outDim)

	inDim := len(inShape)
	offset := outDim - inDim
	origStrides := inShape.ComputeStrides()

	for i := 0; i < outDim; i++ {
		inIdx := i - offset
		switch {
		case inIdx < 0:
			strides[i] = 0
		case inShape[inIdx] == 1:
			strides[i] = 0
		default:
			strides[i] = origStrides[inIdx]
		}
	}
	return strides
}

// flatIndex maps an output flat index to the source flat index given the
// output strides and broadcast-adjusted source strides.
func flatIndex(outIdx int, outStrides, inStrides []int) int {
	flatIdx := 0
	for i := range outStrides {
		coord := outIdx / outStrides[i]
		outIdx %= outStrides[i]
		flatIdx += coord * inStrides[i]
	}
	return flatIdx
}

// transposeData copies src into dst following the axis permutation.
func transposeData[T tensor.DType](dst, src []T, srcShape tensor.Shape, axes []int) {
	ndim := len(srcShape)
	srcStrides := srcShape.ComputeStrides()

	dstShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		dstShape[i] = srcShape[ax]
	}
	dstStrides := dstShape.ComputeStrides()

	coords := make([]int, ndim)
	for dstIdx := range dst {
		rem := dstIdx
		for i := 0; i < ndim; i++ {
			coords[i] = rem / dstStrides[i]
			rem %= dstStrides[i]
		}
		srcIdx := 0
		for i, ax := range axes {
			srcIdx += coords[i] * srcStrides[ax]
		}
		dst[dstIdx] = src[srcIdx]
	}
}
