package optim

import (
	"math"
	"testing"

	"github.com/born-ml/piczak/internal/autodiff"
	"github.com/born-ml/piczak/internal/backend/cpu"
	"github.com/born-ml/piczak/internal/nn"
	"github.com/born-ml/piczak/internal/tensor"
)

func paramFromSlice[B tensor.Backend](t *testing.T, name string, data []float32, shape tensor.Shape, backend B) *nn.Parameter[B] {
	t.Helper()
	ten, err := tensor.FromSlice(data, shape, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return nn.NewParameter(name, ten)
}

func rawFromSlice(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	copy(raw.AsFloat32(), data)
	return raw
}

func TestSGD_SimpleStep(t *testing.T) {
	backend := cpu.New()
	param := paramFromSlice(t, "w", []float32{1.0, 2.0}, tensor.Shape{2}, backend)

	sgd := NewSGD([]*nn.Parameter[*cpu.CPUBackend]{param}, SGDConfig{LR: 0.1}, backend)

	grads := map[*tensor.RawTensor]*tensor.RawTensor{
		param.Tensor().Raw(): rawFromSlice(t, []float32{0.5, -1.0}, tensor.Shape{2}),
	}
	sgd.Step(grads)

	want := []float32{0.95, 2.1}
	for i, v := range param.Tensor().Data() {
		if math.Abs(float64(v-want[i])) > 1e-6 {
			t.Errorf("param[%d] = %f, want %f", i, v, want[i])
		}
	}
}

func TestSGD_MomentumAccumulates(t *testing.T) {
	backend := cpu.New()
	param := paramFromSlice(t, "w", []float32{0}, tensor.Shape{1}, backend)

	sgd := NewSGD([]*nn.Parameter[*cpu.CPUBackend]{param}, SGDConfig{LR: 1, Momentum: 0.9}, backend)

	grads := map[*tensor.RawTensor]*tensor.RawTensor{
		param.Tensor().Raw(): rawFromSlice(t, []float32{1}, tensor.Shape{1}),
	}

	// Step 1: velocity = 1, param = -1.
	// Step 2: velocity = 1.9, param = -2.9.
	sgd.Step(grads)
	sgd.Step(grads)

	got := param.Tensor().Data()[0]
	if math.Abs(float64(got+2.9)) > 1e-6 {
		t.Errorf("param = %f, want -2.9", got)
	}
}

func TestSGD_SkipsParamWithoutGradient(t *testing.T) {
	backend := cpu.New()
	param := paramFromSlice(t, "w", []float32{5}, tensor.Shape{1}, backend)

	sgd := NewSGD([]*nn.Parameter[*cpu.CPUBackend]{param}, SGDConfig{LR: 0.1}, backend)
	sgd.Step(map[*tensor.RawTensor]*tensor.RawTensor{})

	if got := param.Tensor().Data()[0]; got != 5 {
		t.Errorf("param = %f, want unchanged 5", got)
	}
}

func TestSGD_StateDictRoundTrip(t *testing.T) {
	backend := cpu.New()
	param := paramFromSlice(t, "w", []float32{0, 0}, tensor.Shape{2}, backend)

	src := NewSGD([]*nn.Parameter[*cpu.CPUBackend]{param}, SGDConfig{LR: 0.1, Momentum: 0.9}, backend)
	grads := map[*tensor.RawTensor]*tensor.RawTensor{
		param.Tensor().Raw(): rawFromSlice(t, []float32{1, -2}, tensor.Shape{2}),
	}
	src.Step(grads)

	state := src.StateDict()
	if len(state) != 1 {
		t.Fatalf("StateDict size = %d, want 1", len(state))
	}

	dst := NewSGD([]*nn.Parameter[*cpu.CPUBackend]{param}, SGDConfig{LR: 0.1, Momentum: 0.9}, backend)
	if err := dst.LoadStateDict(state); err != nil {
		t.Fatalf("LoadStateDict: %v", err)
	}

	srcVel := src.velocities[param].Data()
	dstVel := dst.velocities[param].Data()
	for i := range srcVel {
		if srcVel[i] != dstVel[i] {
			t.Errorf("velocity[%d] = %f, want %f", i, dstVel[i], srcVel[i])
		}
	}
}

func TestAdam_FirstStepSize(t *testing.T) {
	backend := cpu.New()
	param := paramFromSlice(t, "w", []float32{1}, tensor.Shape{1}, backend)

	adam := NewAdam([]*nn.Parameter[*cpu.CPUBackend]{param}, AdamConfig{LR: 0.001}, backend)

	grads := map[*tensor.RawTensor]*tensor.RawTensor{
		param.Tensor().Raw(): rawFromSlice(t, []float32{10}, tensor.Shape{1}),
	}
	adam.Step(grads)

	// After bias correction the first update is close to lr in the
	// gradient direction regardless of magnitude.
	got := param.Tensor().Data()[0]
	if math.Abs(float64(got-(1-0.001))) > 1e-5 {
		t.Errorf("param = %f, want about 0.999", got)
	}
	if adam.GetTimestep() != 1 {
		t.Errorf("timestep = %d, want 1", adam.GetTimestep())
	}
}

func TestSGD_ConvergesOnQuadratic(t *testing.T) {
	backend := autodiff.New(cpu.New())

	w, err := tensor.FromSlice([]float32{0}, tensor.Shape{1}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	param := nn.NewParameter("w", w)
	sgd := NewSGD([]*nn.Parameter[*autodiff.AutodiffBackend[*cpu.CPUBackend]]{param}, SGDConfig{LR: 0.1}, backend)

	target, err := tensor.FromSlice([]float32{3}, tensor.Shape{1}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	// Minimize (w - 3)².
	for i := 0; i < 100; i++ {
		backend.Tape().Clear()
		backend.Tape().StartRecording()

		diff := param.Tensor().Sub(target)
		loss := diff.Mul(diff).Sum()

		grads := autodiff.Backward(loss, backend)
		backend.Tape().StopRecording()

		sgd.Step(grads)
		sgd.ZeroGrad()
	}

	got := param.Tensor().Data()[0]
	if math.Abs(float64(got-3)) > 1e-3 {
		t.Errorf("w = %f, want 3", got)
	}
}
