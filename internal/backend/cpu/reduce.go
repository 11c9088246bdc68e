package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/piczak/internal/tensor"
)

// Sum reduces the tensor to a single-element total.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}

	result := mustNewRaw("sum", tensor.Shape{1}, x.DType(), cpu.device)
	var total float32
	for _, v := range x.AsFloat32() {
		total += v
	}
	result.AsFloat32()[0] = total
	return result
}

// SumDim sums elements along a dimension. With keepDim the reduced
// dimension stays with size 1, otherwise it is removed. Negative dims
// index from the back.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("sumdim: dimension %d out of range for %dD tensor", dim, ndim))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("sumdim: unsupported dtype %s", x.DType()))
	}

	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[dim] = 1
	} else {
		outShape = make(tensor.Shape, 0, ndim-1)
		for i := 0; i < ndim; i++ {
			if i != dim {
				outShape = append(outShape, shape[i])
			}
		}
		if len(outShape) == 0 {
			outShape = tensor.Shape{1}
		}
	}

	result := mustNewRaw("sumdim", outShape, x.DType(), cpu.device)

	src := x.AsFloat32()
	dst := result.AsFloat32()
	strides := shape.ComputeStrides()
	dimSize := shape[dim]
	dimStride := strides[dim]

	outIdx := 0
	numRows := len(src) / dimSize
	for row := 0; row < numRows; row++ {
		baseIdx := 0
		remaining := row
		for i := ndim - 1; i >= 0; i-- {
			if i == dim {
				continue
			}
			baseIdx += (remaining % shape[i]) * strides[i]
			remaining /= shape[i]
		}

		var sum float32
		for i := 0; i < dimSize; i++ {
			sum += src[baseIdx+i*dimStride]
		}
		dst[outIdx] = sum
		outIdx++
	}

	return result
}

// MeanDim computes the mean along a dimension.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := cpu.SumDim(x, dim, keepDim)

	shape := x.Shape()
	if dim < 0 {
		dim = len(shape) + dim
	}
	divisor := float32(shape[dim])

	data := result.AsFloat32()
	for i := range data {
		data[i] /= divisor
	}
	return result
}

// Argmax returns the index of the maximum value along a dimension as an
// Int32 tensor with that dimension removed.
func (cpu *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("argmax: dimension %d out of range for %dD tensor", dim, ndim))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("argmax: unsupported dtype %s", x.DType()))
	}

	outShape := make(tensor.Shape, 0, ndim-1)
	for i := 0; i < ndim; i++ {
		if i != dim {
			outShape = append(outShape, shape[i])
		}
	}
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}

	result := mustNewRaw("argmax", outShape, tensor.Int32, cpu.device)

	src := x.AsFloat32()
	dst := result.AsInt32()
	strides := shape.ComputeStrides()
	dimSize := shape[dim]
	dimStride := strides[dim]

	outIdx := 0
	numRows := len(src) / dimSize
	for row := 0; row < numRows; row++ {
		baseIdx := 0
		remaining := row
		for i := ndim - 1; i >= 0; i-- {
			if i == dim {
				continue
			}
			baseIdx += (remaining % shape[i]) * strides[i]
			remaining /= shape[i]
		}

		maxVal := float32(math.Inf(-1))
		maxIdx := 0
		for i := 0; i < dimSize; i++ {
			if v := src[baseIdx+i*dimStride]; v > maxVal {
				maxVal = v
				maxIdx = i
			}
		}
		dst[outIdx] = int32(maxIdx)
		outIdx++
	}

	return result
}
