package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/piczak/internal/tensor"
)

// unaryFloat applies f element-wise to a float32 tensor.
func (cpu *CPUBackend) unaryFloat(name string, x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}

	result := mustNewRaw(name, x.Shape(), x.DType(), cpu.device)
	src := x.AsFloat32()
	dst := result.AsFloat32()
	for i, v := range src {
		dst[i] = float32(f(float64(v)))
	}
	return result
}

// Exp computes the element-wise exponential.
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryFloat("exp", x, math.Exp)
}

// Log computes the element-wise natural logarithm.
func (cpu *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryFloat("log", x, math.Log)
}

// Sqrt computes the element-wise square root.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unaryFloat("sqrt", x, math.Sqrt)
}

// ReLU computes max(x, 0) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("relu: unsupported dtype %s", x.DType()))
	}

	result := mustNewRaw("relu", x.Shape(), x.DType(), cpu.device)
	src := x.AsFloat32()
	dst := result.AsFloat32()
	for i, v := range src {
		if v > 0 {
			dst[i] = v
		}
	}
	return result
}

// scalarOp applies f(x, s) element-wise with a scalar right operand.
func (cpu *CPUBackend) scalarOp(name string, x *tensor.RawTensor, scalar any, f func(x, s float32) float32) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}

	s, ok := toFloat32(scalar)
	if !ok {
		panic(fmt.Sprintf("%s: unsupported scalar type %T", name, scalar))
	}

	result := mustNewRaw(name, x.Shape(), x.DType(), cpu.device)
	src := x.AsFloat32()
	dst := result.AsFloat32()
	for i, v := range src {
		dst[i] = f(v, s)
	}
	return result
}

// AddScalar adds a scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("addscalar", x, scalar, func(v, s float32) float32 { return v + s })
}

// SubScalar subtracts a scalar from every element.
func (cpu *CPUBackend) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("subscalar", x, scalar, func(v, s float32) float32 { return v - s })
}

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("mulscalar", x, scalar, func(v, s float32) float32 { return v * s })
}

// DivScalar divides every element by a scalar.
func (cpu *CPUBackend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("divscalar", x, scalar, func(v, s float32) float32 { return v / s })
}

func toFloat32(scalar any) (float32, bool) {
	switch s := scalar.(type) {
	case float32:
		return s, true
	case float64:
		return float32(s), true
	case int:
		return float32(s), true
	case int32:
		return float32(s), true
	default:
		return 0, false
	}
}
