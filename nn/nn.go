// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for neural network modules.
//
// The building blocks for convolutional classifiers: Conv2D, MaxPool2D,
// Linear, ReLU, Dropout, CrossEntropyLoss, and the Sequential container,
// plus parameter initializers, regularizers, and model/checkpoint
// serialization in the .born format.
package nn

import (
	"math/rand"

	"github.com/born-ml/piczak/internal/nn"
	"github.com/born-ml/piczak/internal/serialization"
	"github.com/born-ml/piczak/internal/tensor"
)

// Module is the base interface for all neural network components.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter is a named trainable tensor with gradient tracking.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a named parameter from a tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Initializer fills a parameter buffer in place, using fan-in/fan-out for
// scaled schemes. Deterministic given the rng.
type Initializer = nn.Initializer

// XavierUniform is the Xavier/Glorot uniform initializer.
func XavierUniform(data []float32, fanIn, fanOut int, rng *rand.Rand) {
	nn.XavierUniform(data, fanIn, fanOut, rng)
}

// NormalInit returns an initializer drawing from N(0, stddev²).
func NormalInit(stddev float64) Initializer {
	return nn.NormalInit(stddev)
}

// ZeroInit fills a parameter buffer with zeros.
func ZeroInit(data []float32, fanIn, fanOut int, rng *rand.Rand) {
	nn.ZeroInit(data, fanIn, fanOut, rng)
}

// ConstantInit returns an initializer filling with a constant value.
func ConstantInit(value float32) Initializer {
	return nn.ConstantInit(value)
}

// Regularizer computes a differentiable penalty over a parameter.
type Regularizer[B tensor.Backend] = nn.Regularizer[B]

// L2 is the L2 weight-decay regularizer.
type L2[B tensor.Backend] = nn.L2[B]

// NewL2 creates an L2 regularizer with the given strength.
func NewL2[B tensor.Backend](lambda float32) *L2[B] {
	return nn.NewL2[B](lambda)
}

// Linear is a fully connected layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a fully connected layer. Nil initializers default to
// Xavier uniform weights and zero biases.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, weightInit, biasInit Initializer, rng *rand.Rand, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, weightInit, biasInit, rng, backend)
}

// Conv2D is a 2D convolution layer with rectangular kernel, stride, and
// padding.
type Conv2D[B tensor.Backend] = nn.Conv2D[B]

// NewConv2D creates a convolution layer. Geometry pairs are {height, width}.
func NewConv2D[B tensor.Backend](
	inChannels, outChannels int,
	kernel, stride, padding [2]int,
	useBias bool,
	weightInit, biasInit Initializer,
	rng *rand.Rand,
	backend B,
) *Conv2D[B] {
	return nn.NewConv2D(inChannels, outChannels, kernel, stride, padding, useBias, weightInit, biasInit, rng, backend)
}

// MaxPool2D is a 2D max pooling layer with rectangular kernel and stride.
type MaxPool2D[B tensor.Backend] = nn.MaxPool2D[B]

// NewMaxPool2D creates a max pooling layer. Geometry pairs are
// {height, width}.
func NewMaxPool2D[B tensor.Backend](kernel, stride [2]int, backend B) *MaxPool2D[B] {
	return nn.NewMaxPool2D(kernel, stride, backend)
}

// ReLU is the rectified linear activation module.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a ReLU activation module.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// Dropout is the inverted dropout layer. Identity when not training.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a dropout layer that keeps activations with
// probability keepProb during training.
func NewDropout[B tensor.Backend](keepProb float64, rng *rand.Rand) *Dropout[B] {
	return nn.NewDropout[B](keepProb, rng)
}

// CrossEntropyLoss is sparse softmax cross-entropy, averaged over the batch.
type CrossEntropyLoss[B tensor.Backend] = nn.CrossEntropyLoss[B]

// NewCrossEntropyLoss creates a cross-entropy loss module.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return nn.NewCrossEntropyLoss(backend)
}

// Accuracy computes the fraction of rows whose argmax matches the label.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) float32 {
	return nn.Accuracy(logits, targets)
}

// Sequential chains modules, feeding each output into the next module.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a sequential container from the given modules.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// Save writes a module's state dictionary to a .born file.
func Save[B tensor.Backend](module Module[B], path, modelType string, metadata map[string]string) error {
	return nn.Save(module, path, modelType, metadata)
}

// Load reads a .born file into a pre-constructed module of the same
// architecture.
func Load[B tensor.Backend](path string, backend B, module Module[B]) (serialization.Header, error) {
	return nn.Load(path, backend, module)
}

// OptimizerState is the slice of an optimizer that checkpoints need.
type OptimizerState = nn.OptimizerState

// StateProvider is the model surface checkpoints work with.
type StateProvider = nn.StateProvider

// Checkpoint is a complete training snapshot.
type Checkpoint = nn.Checkpoint

// LoadCheckpoint restores a checkpoint into a pre-constructed model and
// optimizer.
func LoadCheckpoint[B tensor.Backend](path string, backend B, model StateProvider, optimizer OptimizerState) (*Checkpoint, error) {
	return nn.LoadCheckpoint(path, backend, model, optimizer)
}

// SaveCheckpoint saves a checkpoint with just an epoch number.
func SaveCheckpoint(path string, model StateProvider, optimizer OptimizerState, epoch int) error {
	return nn.SaveCheckpoint(path, model, optimizer, epoch)
}
