// Package nn implements neural network modules.
//
// Building blocks for constructing convolutional classifiers:
//   - Module interface: base interface for all components
//   - Parameter: trainable parameters with gradient tracking
//   - Conv2D, MaxPool2D, Linear: the layer set
//   - ReLU, Dropout: activation and regularization
//   - CrossEntropyLoss: classification loss
//   - Sequential: container for stacking layers
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"fmt"

	"github.com/born-ml/piczak/internal/serialization"
	"github.com/born-ml/piczak/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules compose into larger architectures:
//
//	features := nn.NewSequential(
//	    nn.NewConv2D(1, 80, [2]int{57, 6}, [2]int{1, 1}, [2]int{0, 0}, true, nil, nil, rng, backend),
//	    nn.NewReLU[B](),
//	    nn.NewMaxPool2D([2]int{4, 3}, [2]int{1, 3}, backend),
//	)
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the module output. Input shape requirements depend
	// on the module type; Linear expects [batch, features], convolutional
	// modules expect [batch, channels, height, width].
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters, including those of
	// nested modules. Modules without parameters return nil.
	Parameters() []*Parameter[B]

	// StateDict returns a map of parameter names to raw tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies parameter values from a state dictionary.
	// Shapes and dtypes must match the module exactly.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// Save writes a module's state dictionary to a .born file.
func Save[B tensor.Backend](module Module[B], path, modelType string, metadata map[string]string) error {
	writer, err := serialization.NewWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer writer.Close()

	if err := writer.WriteStateDict(module.StateDict(), modelType, metadata); err != nil {
		return fmt.Errorf("failed to write state dict: %w", err)
	}
	return writer.Close()
}

// Load reads a .born file into a pre-constructed module of the same
// architecture. Returns the file header for access to metadata.
func Load[B tensor.Backend](path string, backend B, module Module[B]) (serialization.Header, error) {
	reader, err := serialization.NewReader(path)
	if err != nil {
		return serialization.Header{}, fmt.Errorf("failed to open model file: %w", err)
	}
	defer reader.Close()

	stateDict, err := reader.ReadStateDict(backend)
	if err != nil {
		return serialization.Header{}, fmt.Errorf("failed to read state dict: %w", err)
	}
	if err := module.LoadStateDict(stateDict); err != nil {
		return serialization.Header{}, fmt.Errorf("failed to load state dict: %w", err)
	}
	return reader.Header(), nil
}
