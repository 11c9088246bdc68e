package piczak_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/piczak/autodiff"
	"github.com/born-ml/piczak/backend/cpu"
	"github.com/born-ml/piczak/nn"
	"github.com/born-ml/piczak/optim"
	"github.com/born-ml/piczak/piczak"
	"github.com/born-ml/piczak/tensor"
)

type cpuB = *cpu.Backend

func newModel(t *testing.T, cfg piczak.Config[cpuB]) *piczak.Model[cpuB] {
	t.Helper()
	model, err := piczak.New(cfg, cpu.New())
	require.NoError(t, err)
	return model
}

// smallConfig is the smallest framing every stage survives, keeping the
// convolution stack cheap in tests.
func smallConfig() piczak.Config[cpuB] {
	return piczak.Config[cpuB]{Bands: 60, Frames: 20, NumClasses: 10}
}

func TestNew_FlattenFeatureCounts(t *testing.T) {
	model := newModel(t, piczak.DefaultConfig[cpuB]())
	assert.Equal(t, 800, model.FlatFeatures())

	short := newModel(t, piczak.Config[cpuB]{Bands: 60, Frames: 41})
	assert.Equal(t, 240, short.FlatFeatures())
}

func TestNew_RejectsCollapsedStages(t *testing.T) {
	_, err := piczak.New(piczak.Config[cpuB]{Bands: 30, Frames: 101}, cpu.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too small")

	_, err = piczak.New(piczak.Config[cpuB]{Bands: 60, Frames: 10}, cpu.New())
	require.Error(t, err)

	_, err = piczak.New(piczak.Config[cpuB]{NumClasses: 1}, cpu.New())
	require.Error(t, err)
}

func TestNew_SeedDeterminism(t *testing.T) {
	a := newModel(t, smallConfig())
	b := newModel(t, smallConfig())

	stateA, stateB := a.StateDict(), b.StateDict()
	require.Len(t, stateA, 10)
	for name, raw := range stateA {
		assert.Equal(t, raw.AsFloat32(), stateB[name].AsFloat32(), "tensor %s", name)
	}

	other := smallConfig()
	other.Seed = 7
	c := newModel(t, other)
	assert.NotEqual(t,
		stateA["piczak.cnn_1.weight"].AsFloat32(),
		c.StateDict()["piczak.cnn_1.weight"].AsFloat32())
}

func TestForward_LogitShape(t *testing.T) {
	cfg := smallConfig()
	model := newModel(t, cfg)

	input := tensor.Rand[float32](tensor.Shape{3, cfg.Bands, cfg.Frames, 1}, model.Backend())
	logits := model.Forward(input, false)

	assert.True(t, logits.Shape().Equal(tensor.Shape{3, cfg.NumClasses}))
}

func TestForward_EvalIsDeterministicTrainIsNot(t *testing.T) {
	cfg := smallConfig()
	model := newModel(t, cfg)
	input := tensor.Rand[float32](tensor.Shape{1, cfg.Bands, cfg.Frames, 1}, model.Backend())

	evalA := model.Forward(input, false)
	evalB := model.Forward(input, false)
	assert.Equal(t, evalA.Data(), evalB.Data())

	trainA := model.Forward(input, true)
	trainB := model.Forward(input, true)
	assert.NotEqual(t, trainA.Data(), trainB.Data())
}

func TestForward_RejectsWrongFraming(t *testing.T) {
	cfg := smallConfig()
	model := newModel(t, cfg)

	bad := tensor.Rand[float32](tensor.Shape{1, cfg.Bands, cfg.Frames + 1, 1}, model.Backend())
	assert.Panics(t, func() {
		model.Forward(bad, false)
	})
}

func TestLoss_UniformLogits(t *testing.T) {
	cfg := smallConfig()
	model := newModel(t, cfg)
	backend := model.Backend()

	logits := tensor.Zeros[float32](tensor.Shape{2, cfg.NumClasses}, backend)
	labels, err := tensor.FromSlice([]int32{0, 3}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	loss, err := model.Loss(logits, labels)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(float64(cfg.NumClasses)), float64(loss.Item()), 1e-5)
}

func TestLoss_ValidatesLabels(t *testing.T) {
	cfg := smallConfig()
	model := newModel(t, cfg)
	backend := model.Backend()

	logits := tensor.Zeros[float32](tensor.Shape{2, cfg.NumClasses}, backend)

	outOfRange, err := tensor.FromSlice([]int32{0, int32(cfg.NumClasses)}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	_, err = model.Loss(logits, outOfRange)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	wrongBatch, err := tensor.FromSlice([]int32{0}, tensor.Shape{1}, backend)
	require.NoError(t, err)
	_, err = model.Loss(logits, wrongBatch)
	require.Error(t, err)

	wrongClasses := tensor.Zeros[float32](tensor.Shape{2, cfg.NumClasses + 1}, backend)
	okLabels, err := tensor.FromSlice([]int32{0, 1}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	_, err = model.Loss(wrongClasses, okLabels)
	require.Error(t, err)
}

func TestLoss_RegularizerRaisesLoss(t *testing.T) {
	cfg := smallConfig()
	plain := newModel(t, cfg)

	regularized := smallConfig()
	regularized.WeightReg = nn.NewL2[cpuB](0.01)
	withReg := newModel(t, regularized)

	backend := plain.Backend()
	logits := tensor.Zeros[float32](tensor.Shape{1, cfg.NumClasses}, backend)
	labels, err := tensor.FromSlice([]int32{0}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	plainLoss, err := plain.Loss(logits, labels)
	require.NoError(t, err)
	regLoss, err := withReg.Loss(logits, labels)
	require.NoError(t, err)

	assert.Greater(t, regLoss.Item(), plainLoss.Item())
}

func TestPredict_ProbabilitiesSumToOne(t *testing.T) {
	cfg := smallConfig()
	model := newModel(t, cfg)

	input := tensor.Rand[float32](tensor.Shape{2, cfg.Bands, cfg.Frames, 1}, model.Backend())
	probs := model.Predict(input)

	require.True(t, probs.Shape().Equal(tensor.Shape{2, cfg.NumClasses}))
	data := probs.Data()
	for row := 0; row < 2; row++ {
		var sum float64
		for c := 0; c < cfg.NumClasses; c++ {
			v := data[row*cfg.NumClasses+c]
			assert.GreaterOrEqual(t, v, float32(0))
			sum += float64(v)
		}
		assert.InDelta(t, 1.0, sum, 1e-4)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	cfg := smallConfig()
	model := newModel(t, cfg)
	path := filepath.Join(t.TempDir(), "piczak.born")
	require.NoError(t, model.Save(path))

	other := smallConfig()
	other.Seed = 99
	restored := newModel(t, other)
	require.NoError(t, restored.Load(path))

	want, got := model.StateDict(), restored.StateDict()
	for name, raw := range want {
		assert.Equal(t, raw.AsFloat32(), got[name].AsFloat32(), "tensor %s", name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	model := newModel(t, smallConfig())
	err := model.Load(filepath.Join(t.TempDir(), "absent.born"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoad_ShapeMismatchLeavesModelUntouched(t *testing.T) {
	cfg := smallConfig()
	model := newModel(t, cfg)
	path := filepath.Join(t.TempDir(), "other.born")

	other := piczak.Config[cpuB]{Bands: 60, Frames: 41, NumClasses: 10}
	require.NoError(t, newModel(t, other).Save(path))

	before := model.StateDict()["piczak.dense_1.weight"].Clone()
	err := model.Load(path)
	require.Error(t, err)
	assert.Equal(t, before.AsFloat32(), model.StateDict()["piczak.dense_1.weight"].AsFloat32())
}

type adB = *autodiff.Backend[*cpu.Backend]

func TestTrainingStep_GradientsReachEveryParameter(t *testing.T) {
	backend := autodiff.New(cpu.New())
	cfg := piczak.Config[adB]{Bands: 60, Frames: 20, NumClasses: 10}
	model, err := piczak.New(cfg, backend)
	require.NoError(t, err)

	input := tensor.Rand[float32](tensor.Shape{2, cfg.Bands, cfg.Frames, 1}, backend)
	labels, err := tensor.FromSlice([]int32{1, 4}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	backend.Tape().StartRecording()
	logits := model.Forward(input, true)
	loss, err := model.Loss(logits, labels)
	require.NoError(t, err)
	require.False(t, math.IsNaN(float64(loss.Item())))

	grads := autodiff.Backward(loss, backend)
	backend.Tape().Clear()

	params := model.Parameters()
	require.Len(t, params, 10)
	for i, param := range params {
		grad, ok := grads[param.Tensor().Raw()]
		require.True(t, ok, "parameter %d has no gradient", i)
		require.True(t, grad.Shape().Equal(param.Tensor().Shape()))
	}

	optimizer := optim.NewSGD(params, optim.SGDConfig{LR: 0.01}, backend)
	optimizer.Step(grads)
}
