package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err)
	}
	// Allocation already zero-fills.
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, T(1), b)
}

// Full creates a tensor filled with the given value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a float tensor with samples from the standard normal
// distribution, generated with the Box-Muller transform.
//
// Uses math/rand: reproducibility under a fixed seed matters more here
// than cryptographic quality.
func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)

	var dummy T
	if _, ok := any(dummy).(float32); !ok {
		panic("Randn only supports float32")
	}

	data := any(t.Data()).([]float32)
	for i := 0; i < len(data); i += 2 {
		u1 := rand.Float64()
		u2 := rand.Float64()
		r := math.Sqrt(-2.0 * math.Log(u1))
		data[i] = float32(r * math.Cos(2.0*math.Pi*u2))
		if i+1 < len(data) {
			data[i+1] = float32(r * math.Sin(2.0*math.Pi*u2))
		}
	}
	return t
}

// Rand creates a float tensor with samples uniform in [0, 1).
func Rand[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)

	var dummy T
	if _, ok := any(dummy).(float32); !ok {
		panic("Rand only supports float32")
	}

	data := any(t.Data()).([]float32)
	for i := range data {
		data[i] = rand.Float32()
	}
	return t
}

// Arange creates a 1D tensor with consecutive values from start to end
// (exclusive).
func Arange[T DType, B Backend](start, end T, b B) *Tensor[T, B] {
	numElements := int(end - start)
	if numElements <= 0 {
		panic("end must be greater than start")
	}

	t := Zeros[T, B](Shape{numElements}, b)
	data := t.Data()
	for i := range data {
		data[i] = start + T(i)
	}
	return t
}
