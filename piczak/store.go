package piczak

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/born-ml/piczak/internal/serialization"
	"github.com/born-ml/piczak/tensor"
)

// ModelType identifies piczak checkpoints in the .born header.
const ModelType = "PiczakCNN"

const paramPrefix = "piczak."

// StateDict returns the model's 10 tensors keyed by their namespace
// names, e.g. "piczak.cnn_1.weight".
func (m *Model[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for _, layer := range m.layers() {
		for name, raw := range layer.module.StateDict() {
			stateDict[paramPrefix+layer.label+"."+name] = raw
		}
	}
	return stateDict
}

// LoadStateDict copies values into the model. The complete set is
// structurally verified (names, dtypes, shapes) before any in-memory value
// is overwritten, so a mismatch leaves the model untouched.
func (m *Model[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	current := m.StateDict()
	if len(stateDict) != len(current) {
		return fmt.Errorf("expected %d tensors, got %d", len(current), len(stateDict))
	}
	for name, want := range current {
		raw, ok := stateDict[name]
		if !ok {
			return fmt.Errorf("missing tensor %s", name)
		}
		if raw.DType() != tensor.Float32 {
			return fmt.Errorf("tensor %s: expected float32, got %v", name, raw.DType())
		}
		if !raw.Shape().Equal(want.Shape()) {
			return fmt.Errorf("tensor %s: expected shape %v, got %v", name, want.Shape(), raw.Shape())
		}
	}

	for name, want := range current {
		copy(want.AsFloat32(), stateDict[name].AsFloat32())
	}
	return nil
}

// Save writes the model parameters to a .born file at path.
func (m *Model[B]) Save(path string) error {
	writer, err := serialization.NewWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	defer writer.Close()

	metadata := map[string]string{
		"bands":   fmt.Sprintf("%d", m.cfg.Bands),
		"frames":  fmt.Sprintf("%d", m.cfg.Frames),
		"classes": fmt.Sprintf("%d", m.cfg.NumClasses),
	}
	if err := writer.WriteStateDict(m.StateDict(), ModelType, metadata); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	return writer.Close()
}

// Load restores model parameters from a .born file. All-or-nothing: on any
// error the in-memory parameters are left unchanged.
func (m *Model[B]) Load(path string) error {
	reader, err := serialization.NewReader(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("model file %s not found: %w", path, err)
		}
		return fmt.Errorf("failed to open model file: %w", err)
	}
	defer reader.Close()

	stateDict, err := reader.ReadStateDict(m.backend)
	if err != nil {
		return fmt.Errorf("failed to read model tensors: %w", err)
	}
	if err := m.LoadStateDict(stateDict); err != nil {
		return fmt.Errorf("failed to load model state: %w", err)
	}
	return nil
}
