package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/piczak/internal/tensor"
)

// Initializer fills a freshly allocated parameter tensor. fanIn and fanOut
// describe the layer the parameter belongs to; rng is the model's seeded
// source, so the same seed always produces the same parameters.
type Initializer func(data []float32, fanIn, fanOut int, rng *rand.Rand)

// XavierUniform initializes from U(-b, b) with b = sqrt(6 / (fanIn + fanOut)).
// Keeps activation variance roughly constant across layers.
func XavierUniform(data []float32, fanIn, fanOut int, rng *rand.Rand) {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	for i := range data {
		data[i] = float32((rng.Float64()*2.0 - 1.0) * bound)
	}
}

// NormalInit returns an initializer drawing from N(0, stddev²).
func NormalInit(stddev float64) Initializer {
	return func(data []float32, fanIn, fanOut int, rng *rand.Rand) {
		for i := range data {
			data[i] = float32(rng.NormFloat64() * stddev)
		}
	}
}

// ZeroInit fills with zeros. The usual choice for biases.
func ZeroInit(data []float32, fanIn, fanOut int, rng *rand.Rand) {
	for i := range data {
		data[i] = 0
	}
}

// ConstantInit returns an initializer filling with a fixed value.
func ConstantInit(value float32) Initializer {
	return func(data []float32, fanIn, fanOut int, rng *rand.Rand) {
		for i := range data {
			data[i] = value
		}
	}
}

// newInitialized allocates a float32 tensor and runs the initializer over it.
func newInitialized[B tensor.Backend](shape tensor.Shape, init Initializer, fanIn, fanOut int, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	t := tensor.Zeros[float32](shape, backend)
	init(t.Data(), fanIn, fanOut, rng)
	return t
}
