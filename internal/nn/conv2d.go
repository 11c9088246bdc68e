package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/piczak/internal/tensor"
)

// Conv2D is a 2D convolutional layer.
//
// Performs: output = Conv2D(input, weight) + bias
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [out_channels, in_channels, kernel_h, kernel_w]
// Bias shape:   [out_channels]
// Output shape: [batch, out_channels, out_h, out_w]
//
// Where:
//
//	out_h = (height + 2*pad_h - kernel_h) / stride_h + 1
//	out_w = (width + 2*pad_w - kernel_w) / stride_w + 1
//
// Kernel, stride and padding are [height, width] pairs. Tall narrow
// kernels such as 57x6 over a spectrogram are the expected case, not an
// exception.
//
// Example:
//
//	conv := nn.NewConv2D(1, 80, [2]int{57, 6}, [2]int{1, 1}, [2]int{0, 0}, true, nil, nil, rng, backend)
//	output := conv.Forward(input) // [batch, 80, h-56, w-5]
type Conv2D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	kernelSize  [2]int
	stride      [2]int
	padding     [2]int
	useBias     bool

	weight *Parameter[B] // [out_channels, in_channels, kernel_h, kernel_w]
	bias   *Parameter[B] // [out_channels] or nil

	backend B
}

// NewConv2D creates a Conv2D layer. A nil weightInit defaults to
// XavierUniform with fan_in = in_channels*kh*kw and fan_out =
// out_channels*kh*kw; a nil biasInit defaults to zeros.
func NewConv2D[B tensor.Backend](
	inChannels, outChannels int,
	kernel, stride, padding [2]int,
	useBias bool,
	weightInit, biasInit Initializer,
	rng *rand.Rand,
	backend B,
) *Conv2D[B] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	if kernel[0] <= 0 || kernel[1] <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size h=%d, w=%d", kernel[0], kernel[1]))
	}
	if stride[0] <= 0 || stride[1] <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride h=%d, w=%d", stride[0], stride[1]))
	}
	if padding[0] < 0 || padding[1] < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding h=%d, w=%d", padding[0], padding[1]))
	}
	if weightInit == nil {
		weightInit = XavierUniform
	}
	if biasInit == nil {
		biasInit = ZeroInit
	}

	weightShape := tensor.Shape{outChannels, inChannels, kernel[0], kernel[1]}
	fanIn := inChannels * kernel[0] * kernel[1]
	fanOut := outChannels * kernel[0] * kernel[1]
	weight := newInitialized(weightShape, weightInit, fanIn, fanOut, rng, backend)
	weightParam := NewParameter("weight", weight)

	var biasParam *Parameter[B]
	if useBias {
		bias := newInitialized(tensor.Shape{outChannels}, biasInit, fanIn, fanOut, rng, backend)
		biasParam = NewParameter("bias", bias)
	}

	return &Conv2D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernel,
		stride:      stride,
		padding:     padding,
		useBias:     useBias,
		weight:      weightParam,
		bias:        biasParam,
		backend:     backend,
	}
}

// Forward performs the forward pass.
//
// Input: [batch, in_channels, height, width]
// Output: [batch, out_channels, out_h, out_w].
func (c *Conv2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}
	if inputShape[1] != c.inChannels {
		panic(fmt.Sprintf("conv2d: input channels %d != expected %d", inputShape[1], c.inChannels))
	}

	outputRaw := c.backend.Conv2D(
		input.Raw(),
		c.weight.Tensor().Raw(),
		c.stride[0], c.stride[1],
		c.padding[0], c.padding[1],
	)
	output := tensor.New[float32, B](outputRaw, c.backend)

	if c.useBias {
		// Reshape to [1, out_channels, 1, 1] through the backend so the
		// broadcast add is differentiable back to the bias vector.
		biasReshaped := c.bias.Tensor().Reshape(1, c.outChannels, 1, 1)
		output = output.Add(biasReshaped)
	}

	return output
}

// Parameters returns all trainable parameters.
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	if c.useBias {
		return []*Parameter[B]{c.weight, c.bias}
	}
	return []*Parameter[B]{c.weight}
}

// String returns a short description of the layer.
func (c *Conv2D[B]) String() string {
	return fmt.Sprintf("Conv2D(in_channels=%d, out_channels=%d, kernel_size=(%d, %d), stride=(%d, %d), padding=(%d, %d), bias=%v)",
		c.inChannels, c.outChannels,
		c.kernelSize[0], c.kernelSize[1],
		c.stride[0], c.stride[1],
		c.padding[0], c.padding[1],
		c.useBias)
}

// OutChannels returns the number of output channels.
func (c *Conv2D[B]) OutChannels() int {
	return c.outChannels
}

// InChannels returns the number of input channels.
func (c *Conv2D[B]) InChannels() int {
	return c.inChannels
}

// KernelSize returns the kernel size [height, width].
func (c *Conv2D[B]) KernelSize() [2]int {
	return c.kernelSize
}

// Stride returns the stride [height, width].
func (c *Conv2D[B]) Stride() [2]int {
	return c.stride
}

// Padding returns the padding [height, width].
func (c *Conv2D[B]) Padding() [2]int {
	return c.padding
}

// Weight returns the weight parameter.
func (c *Conv2D[B]) Weight() *Parameter[B] {
	return c.weight
}

// Bias returns the bias parameter, or nil when the layer has none.
func (c *Conv2D[B]) Bias() *Parameter[B] {
	return c.bias
}

// ComputeOutputSize computes output spatial dimensions for an input size.
//
// Returns: [out_height, out_width].
func (c *Conv2D[B]) ComputeOutputSize(inputH, inputW int) [2]int {
	outH := (inputH+2*c.padding[0]-c.kernelSize[0])/c.stride[0] + 1
	outW := (inputW+2*c.padding[1]-c.kernelSize[1])/c.stride[1] + 1
	return [2]int{outH, outW}
}

// StateDict returns the layer parameters keyed "weight" and "bias".
func (c *Conv2D[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := map[string]*tensor.RawTensor{
		"weight": c.weight.Tensor().Raw(),
	}
	if c.useBias {
		stateDict["bias"] = c.bias.Tensor().Raw()
	}
	return stateDict
}

// LoadStateDict copies "weight" and "bias" values into the layer.
func (c *Conv2D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	weightShape := tensor.Shape{c.outChannels, c.inChannels, c.kernelSize[0], c.kernelSize[1]}
	if err := loadParam(stateDict, "weight", c.weight, weightShape); err != nil {
		return err
	}
	if c.useBias {
		return loadParam(stateDict, "bias", c.bias, tensor.Shape{c.outChannels})
	}
	return nil
}
