package autodiff_test

import (
	"math"
	"testing"

	"github.com/born-ml/piczak/internal/autodiff"
	"github.com/born-ml/piczak/internal/backend/cpu"
	"github.com/born-ml/piczak/internal/tensor"
)

func newBackend() *autodiff.AutodiffBackend[*cpu.CPUBackend] {
	return autodiff.New(cpu.New())
}

func fromSlice(t *testing.T, backend *autodiff.AutodiffBackend[*cpu.CPUBackend], data []float32, shape tensor.Shape) *tensor.Tensor[float32, *autodiff.AutodiffBackend[*cpu.CPUBackend]] {
	t.Helper()
	out, err := tensor.FromSlice(data, shape, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return out
}

func almostEqual(a, b, eps float32) bool {
	return math.Abs(float64(a-b)) <= float64(eps)
}

func TestAutodiffBackend_Name(t *testing.T) {
	backend := newBackend()
	if got := backend.Name(); got != "Autodiff(CPU)" {
		t.Errorf("Name() = %s, want Autodiff(CPU)", got)
	}
}

func TestTape_Recording(t *testing.T) {
	backend := newBackend()
	tape := backend.Tape()

	if tape.IsRecording() {
		t.Error("new tape should not be recording")
	}

	x := fromSlice(t, backend, []float32{1, 2}, tensor.Shape{2})
	_ = x.Add(x)
	if tape.NumOps() != 0 {
		t.Errorf("ops recorded while not recording: %d", tape.NumOps())
	}

	tape.StartRecording()
	_ = x.Add(x)
	if tape.NumOps() != 1 {
		t.Errorf("NumOps() = %d, want 1", tape.NumOps())
	}

	tape.Clear()
	if tape.NumOps() != 0 {
		t.Errorf("NumOps() after Clear = %d, want 0", tape.NumOps())
	}
	if !tape.IsRecording() {
		t.Error("Clear must preserve recording state")
	}
}

func TestBackward_MulGradient(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{2, 3, -1}, tensor.Shape{3})
	y := x.Mul(x)

	grads := autodiff.Backward(y, backend)
	grad, ok := grads[x.Raw()]
	if !ok {
		t.Fatal("no gradient for x")
	}

	// d(x²)/dx = 2x
	want := []float32{4, 6, -2}
	got := grad.AsFloat32()
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-5) {
			t.Errorf("grad[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestBackward_AddBroadcastGradient(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	bias := fromSlice(t, backend, []float32{10, 20, 30}, tensor.Shape{3})
	y := x.Add(bias)

	grads := autodiff.Backward(y, backend)

	xGrad := grads[x.Raw()].AsFloat32()
	for i, g := range xGrad {
		if !almostEqual(g, 1, 1e-6) {
			t.Errorf("x grad[%d] = %f, want 1", i, g)
		}
	}

	biasGrad := grads[bias.Raw()]
	if !biasGrad.Shape().Equal(tensor.Shape{3}) {
		t.Fatalf("bias grad shape = %v, want [3]", biasGrad.Shape())
	}
	// Broadcast over 2 rows, so each bias element accumulates 2.
	for i, g := range biasGrad.AsFloat32() {
		if !almostEqual(g, 2, 1e-6) {
			t.Errorf("bias grad[%d] = %f, want 2", i, g)
		}
	}
}

func TestBackward_MatMulGradients(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	a := fromSlice(t, backend, []float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := fromSlice(t, backend, []float32{5, 6, 7, 8}, tensor.Shape{2, 2})
	y := a.MatMul(b)

	grads := autodiff.Backward(y, backend)

	// With outputGrad = ones: grad_a = ones @ bᵀ, grad_b = aᵀ @ ones.
	wantA := []float32{11, 15, 11, 15}
	wantB := []float32{4, 4, 6, 6}

	gotA := grads[a.Raw()].AsFloat32()
	gotB := grads[b.Raw()].AsFloat32()
	for i := range wantA {
		if !almostEqual(gotA[i], wantA[i], 1e-5) {
			t.Errorf("grad_a[%d] = %f, want %f", i, gotA[i], wantA[i])
		}
		if !almostEqual(gotB[i], wantB[i], 1e-5) {
			t.Errorf("grad_b[%d] = %f, want %f", i, gotB[i], wantB[i])
		}
	}
}

func TestBackward_ReLUGradient(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{-1, 0, 2, -3, 4}, tensor.Shape{5})
	y := tensor.New[float32](backend.ReLU(x.Raw()), backend)

	grads := autodiff.Backward(y, backend)
	got := grads[x.Raw()].AsFloat32()

	want := []float32{0, 0, 1, 0, 1}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-6) {
			t.Errorf("grad[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestBackward_SumChainGradient(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	// loss = 0.5 * sum(x * x), so dloss/dx = x.
	x := fromSlice(t, backend, []float32{1, -2, 3}, tensor.Shape{3})
	loss := x.Mul(x).Sum().MulScalar(0.5)

	grads := autodiff.Backward(loss, backend)
	got := grads[x.Raw()].AsFloat32()

	want := []float32{1, -2, 3}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-5) {
			t.Errorf("grad[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestBackward_ReshapeTransposeFlow(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	y := x.Transpose(1, 0).Reshape(6).Mul(fromSlice(t, backend, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{6}))

	grads := autodiff.Backward(y, backend)
	grad := grads[x.Raw()]
	if !grad.Shape().Equal(tensor.Shape{2, 3}) {
		t.Fatalf("grad shape = %v, want [2 3]", grad.Shape())
	}

	// Transposed order is {1, 4, 2, 5, 3, 6}; the multiplier indexes that
	// order, so grad in original layout is {1, 3, 5, 2, 4, 6}.
	want := []float32{1, 3, 5, 2, 4, 6}
	got := grad.AsFloat32()
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-5) {
			t.Errorf("grad[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestBackward_Conv2DGradientShapes(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	input := fromSlice(t, backend, make([]float32, 1*1*5*8), tensor.Shape{1, 1, 5, 8})
	for i := range input.Data() {
		input.Data()[i] = float32(i%7) - 3
	}
	kernel := fromSlice(t, backend, []float32{1, 0, -1, 2, 0, -2}, tensor.Shape{1, 1, 3, 2})

	out := tensor.New[float32](backend.Conv2D(input.Raw(), kernel.Raw(), 1, 2, 0, 0), backend)
	loss := out.Sum()

	grads := autodiff.Backward(loss, backend)

	if g := grads[input.Raw()]; !g.Shape().Equal(input.Shape()) {
		t.Errorf("input grad shape = %v, want %v", g.Shape(), input.Shape())
	}
	if g := grads[kernel.Raw()]; !g.Shape().Equal(kernel.Shape()) {
		t.Errorf("kernel grad shape = %v, want %v", g.Shape(), kernel.Shape())
	}
}

func TestBackward_MaxPool2DRouting(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	input := fromSlice(t, backend, []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
	}, tensor.Shape{1, 1, 2, 4})

	out := tensor.New[float32](backend.MaxPool2D(input.Raw(), 2, 2, 2, 2), backend)
	loss := out.Sum()

	grads := autodiff.Backward(loss, backend)
	got := grads[input.Raw()].AsFloat32()

	// Only the window maxima (6 and 8) receive gradient.
	want := []float32{
		0, 0, 0, 0,
		0, 1, 0, 1,
	}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-6) {
			t.Errorf("grad[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestCrossEntropy_UniformLogits(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	const numClasses = 50
	logits := fromSlice(t, backend, make([]float32, 2*numClasses), tensor.Shape{2, numClasses})
	targets, err := tensor.FromSlice([]int32{0, 7}, tensor.Shape{2}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	loss := tensor.New[float32](backend.CrossEntropy(logits.Raw(), targets.Raw()), backend)

	wantLoss := float32(math.Log(numClasses))
	if !almostEqual(loss.Item(), wantLoss, 1e-4) {
		t.Errorf("loss = %f, want ln(%d) = %f", loss.Item(), numClasses, wantLoss)
	}

	grads := autodiff.Backward(loss, backend)
	grad := grads[logits.Raw()].AsFloat32()

	// grad = (softmax - onehot) / batch; softmax is uniform here.
	uniform := float32(1.0/numClasses) / 2
	for i := 0; i < 2; i++ {
		target := []int{0, 7}[i]
		for j := 0; j < numClasses; j++ {
			want := uniform
			if j == target {
				want -= 0.5
			}
			got := grad[i*numClasses+j]
			if !almostEqual(got, want, 1e-5) {
				t.Errorf("grad[%d][%d] = %f, want %f", i, j, got, want)
			}
		}
	}
}

func TestCrossEntropy_OutOfRangeTargetPanics(t *testing.T) {
	backend := newBackend()

	logits := fromSlice(t, backend, make([]float32, 10), tensor.Shape{2, 5})
	targets, err := tensor.FromSlice([]int32{0, 5}, tensor.Shape{2}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for target index out of bounds")
		}
	}()
	backend.CrossEntropy(logits.Raw(), targets.Raw())
}

func TestBackward_GradientAccumulation(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	// y = x*x + x uses x twice; gradients must accumulate: 2x + 1.
	x := fromSlice(t, backend, []float32{3}, tensor.Shape{1})
	y := x.Mul(x).Add(x)

	grads := autodiff.Backward(y, backend)
	got := grads[x.Raw()].AsFloat32()[0]
	if !almostEqual(got, 7, 1e-5) {
		t.Errorf("grad = %f, want 7", got)
	}
}
