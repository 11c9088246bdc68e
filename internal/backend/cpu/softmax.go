package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/piczak/internal/tensor"
)

// Softmax computes softmax along the given dimension with max-shifting for
// numerical stability. Negative dims index from the back.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("softmax: dimension %d out of range for tensor of rank %d", dim, ndim))
	}
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("softmax: unsupported dtype %s", x.DType()))
	}

	result := mustNewRaw("softmax", shape, x.DType(), cpu.device)

	src := x.AsFloat32()
	dst := result.AsFloat32()
	strides := shape.ComputeStrides()
	dimSize := shape[dim]
	dimStride := strides[dim]

	numRows := 1
	for i := range shape {
		if i != dim {
			numRows *= shape[i]
		}
	}

	for row := 0; row < numRows; row++ {
		// Decode the non-dim coordinates of this row into a base offset.
		baseIdx := 0
		remaining := row
		for i := 0; i < ndim; i++ {
			if i == dim {
				continue
			}
			baseIdx += (remaining % shape[i]) * strides[i]
			remaining /= shape[i]
		}

		maxVal := float32(math.Inf(-1))
		for i := 0; i < dimSize; i++ {
			if v := src[baseIdx+i*dimStride]; v > maxVal {
				maxVal = v
			}
		}

		var sum float32
		for i := 0; i < dimSize; i++ {
			idx := baseIdx + i*dimStride
			e := float32(math.Exp(float64(src[idx] - maxVal)))
			dst[idx] = e
			sum += e
		}

		for i := 0; i < dimSize; i++ {
			dst[baseIdx+i*dimStride] /= sum
		}
	}

	return result
}
