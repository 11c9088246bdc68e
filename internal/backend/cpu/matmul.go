package cpu

import (
	"fmt"

	"github.com/born-ml/piczak/internal/parallel"
	"github.com/born-ml/piczak/internal/tensor"
)

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
// Rows of the result are computed in parallel.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: requires 2D tensors, got %v and %v", aShape, bShape))
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("matmul: inner dimensions must match: %v @ %v", aShape, bShape))
	}
	if a.DType() != tensor.Float32 || b.DType() != tensor.Float32 {
		panic(fmt.Sprintf("matmul: unsupported dtypes %s @ %s", a.DType(), b.DType()))
	}

	m, k, n := aShape[0], aShape[1], bShape[1]
	result := mustNewRaw("matmul", tensor.Shape{m, n}, tensor.Float32, cpu.device)

	aData := a.AsFloat32()
	bData := b.AsFloat32()
	outData := result.AsFloat32()

	parallel.For(m, func(i int) {
		aRow := aData[i*k : (i+1)*k]
		outRow := outData[i*n : (i+1)*n]
		for kk := 0; kk < k; kk++ {
			av := aRow[kk]
			if av == 0 {
				continue
			}
			bRow := bData[kk*n : (kk+1)*n]
			for j := range outRow {
				outRow[j] += av * bRow[j]
			}
		}
	}, cpu.pcfg)

	return result
}
