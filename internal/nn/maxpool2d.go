package nn

import (
	"fmt"

	"github.com/born-ml/piczak/internal/tensor"
)

// MaxPool2D is a 2D max pooling layer.
//
// Reduces spatial dimensions by taking the maximum value in each window.
// No learnable parameters. Kernel and stride are [height, width] pairs,
// so windows like 4x3 with stride 1x3 are expressible directly.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, out_height, out_width]
//
// Where:
//
//	out_height = (height - kernel_h) / stride_h + 1
//	out_width = (width - kernel_w) / stride_w + 1
type MaxPool2D[B tensor.Backend] struct {
	kernelSize [2]int
	stride     [2]int
	backend    B
}

// NewMaxPool2D creates a 2D max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernel, stride [2]int, backend B) *MaxPool2D[B] {
	if kernel[0] <= 0 || kernel[1] <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size h=%d, w=%d", kernel[0], kernel[1]))
	}
	if stride[0] <= 0 || stride[1] <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride h=%d, w=%d", stride[0], stride[1]))
	}

	return &MaxPool2D[B]{
		kernelSize: kernel,
		stride:     stride,
		backend:    backend,
	}
}

// Forward performs the forward pass.
//
// Input: [batch, channels, height, width]
// Output: [batch, channels, out_height, out_width].
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("maxpool2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}

	outputRaw := m.backend.MaxPool2D(
		input.Raw(),
		m.kernelSize[0], m.kernelSize[1],
		m.stride[0], m.stride[1],
	)
	return tensor.New[float32, B](outputRaw, m.backend)
}

// Parameters returns nil; MaxPool2D has no learnable parameters.
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] {
	return nil
}

// String returns a short description of the layer.
func (m *MaxPool2D[B]) String() string {
	return fmt.Sprintf("MaxPool2D(kernel_size=(%d, %d), stride=(%d, %d))",
		m.kernelSize[0], m.kernelSize[1], m.stride[0], m.stride[1])
}

// KernelSize returns the pooling window size [height, width].
func (m *MaxPool2D[B]) KernelSize() [2]int {
	return m.kernelSize
}

// Stride returns the stride [height, width].
func (m *MaxPool2D[B]) Stride() [2]int {
	return m.stride
}

// ComputeOutputSize computes output spatial dimensions for an input size.
//
// Returns: [out_height, out_width].
func (m *MaxPool2D[B]) ComputeOutputSize(inputH, inputW int) [2]int {
	outH := (inputH-m.kernelSize[0])/m.stride[0] + 1
	outW := (inputW-m.kernelSize[1])/m.stride[1] + 1
	return [2]int{outH, outW}
}

// StateDict returns an empty map.
func (m *MaxPool2D[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict is a no-op for parameterless layers.
func (m *MaxPool2D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return nil
}
