package nn_test

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/piczak/internal/backend/cpu"
	"github.com/born-ml/piczak/internal/nn"
	"github.com/born-ml/piczak/internal/optim"
	"github.com/born-ml/piczak/internal/tensor"
)

func buildModel(seed int64, backend *cpu.CPUBackend) *nn.Sequential[*cpu.CPUBackend] {
	rng := rand.New(rand.NewSource(seed))
	return nn.NewSequential[*cpu.CPUBackend](
		nn.NewLinear(4, 3, nil, nil, rng, backend),
		nn.NewReLU[*cpu.CPUBackend](),
		nn.NewLinear(3, 2, nil, nil, rng, backend),
	)
}

func TestCheckpoint_SaveLoadRoundTrip(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "checkpoint.born")

	model := buildModel(7, backend)
	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.01, Momentum: 0.9}, backend)

	// One momentum step so the optimizer has state worth saving.
	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	for _, param := range model.Parameters() {
		grad := param.Tensor().Raw().Clone()
		for i := range grad.AsFloat32() {
			grad.AsFloat32()[i] = 0.5
		}
		grads[param.Tensor().Raw()] = grad
	}
	optimizer.Step(grads)

	checkpoint := &nn.Checkpoint{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     12,
		Step:      4800,
		Loss:      0.321,
		Metadata:  map[string]any{"batch_size": 32.0},
	}
	require.NoError(t, checkpoint.Save(path))

	// Restore into a model built from a different seed, then verify the
	// weights match the saved model exactly.
	restoredModel := buildModel(99, backend)
	restoredOpt := optim.NewSGD(restoredModel.Parameters(), optim.SGDConfig{LR: 0.01, Momentum: 0.9}, backend)

	restored, err := nn.LoadCheckpoint(path, backend, restoredModel, restoredOpt)
	require.NoError(t, err)

	assert.Equal(t, 12, restored.Epoch)
	assert.Equal(t, int64(4800), restored.Step)
	assert.InDelta(t, 0.321, restored.Loss, 1e-9)
	assert.Equal(t, 32.0, restored.Metadata["batch_size"])

	want := model.StateDict()
	got := restoredModel.StateDict()
	require.Len(t, got, len(want))
	for name, raw := range want {
		assert.Equal(t, raw.AsFloat32(), got[name].AsFloat32(), "parameter %s", name)
	}
}

func TestCheckpoint_AdamStepCounterSurvives(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "adam.born")

	model := buildModel(7, backend)
	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.001}, backend)

	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	for _, param := range model.Parameters() {
		grad := param.Tensor().Raw().Clone()
		for i := range grad.AsFloat32() {
			grad.AsFloat32()[i] = 0.1
		}
		grads[param.Tensor().Raw()] = grad
	}
	optimizer.Step(grads)
	optimizer.Step(grads)
	require.Equal(t, 2, optimizer.GetTimestep())

	require.NoError(t, nn.SaveCheckpoint(path, model, optimizer, 3))

	restoredModel := buildModel(7, backend)
	restoredOpt := optim.NewAdam(restoredModel.Parameters(), optim.AdamConfig{LR: 0.001}, backend)

	_, err := nn.LoadCheckpoint(path, backend, restoredModel, restoredOpt)
	require.NoError(t, err)
	assert.Equal(t, 2, restoredOpt.GetTimestep())
}

func TestLoadCheckpoint_RejectsPlainModelFile(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "plain.born")

	model := buildModel(7, backend)
	require.NoError(t, nn.Save(model, path, "Sequential", nil))

	_, err := nn.LoadCheckpoint(path, backend, buildModel(7, backend), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a checkpoint")
}
