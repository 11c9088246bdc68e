package ops

import (
	"fmt"

	"github.com/born-ml/piczak/internal/tensor"
)

// reduceBroadcast folds a gradient back to the shape of a forward operand
// that was broadcast. Stretched dimensions are summed out; the result is
// reshaped to the target shape.
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// Clone on the match path so later in-place ops cannot alias a shared
	// gradient buffer.
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	result := grad

	// Leading dimensions the operand never had are summed away first.
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	// Then dimensions the operand held with size 1.
	resShape := result.Shape()
	for i := range targetShape {
		if targetShape[i] == 1 && resShape[i] > 1 {
			result = backend.SumDim(result, i, true)
			resShape = result.Shape()
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}

// onesLike allocates a gradient seed tensor filled with ones.
func onesLike(t *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	result, err := tensor.NewRaw(t.Shape(), t.DType(), device)
	if err != nil {
		panic(fmt.Sprintf("onesLike: %v", err))
	}
	data := result.AsFloat32()
	for i := range data {
		data[i] = 1.0
	}
	return result
}

// negate returns -grad.
func negate(grad *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	return backend.MulScalar(grad, float32(-1))
}
