package tensor

import (
	"testing"
)

// mockBackend satisfies Backend for tests that never reach compute ops.
type mockBackend struct{}

func (mockBackend) Add(_, _ *RawTensor) *RawTensor { panic("not implemented") }
func (mockBackend) Sub(_, _ *RawTensor) *RawTensor { panic("not implemented") }
func (mockBackend) Mul(_, _ *RawTensor) *RawTensor { panic("not implemented") }
func (mockBackend) Div(_, _ *RawTensor) *RawTensor { panic("not implemented") }
func (mockBackend) MatMul(_, _ *RawTensor) *RawTensor {
	panic("not implemented")
}
func (mockBackend) Conv2D(_, _ *RawTensor, _, _, _, _ int) *RawTensor {
	panic("not implemented")
}
func (mockBackend) Conv2DInputBackward(_, _, _ *RawTensor, _, _, _, _ int) *RawTensor {
	panic("not implemented")
}
func (mockBackend) Conv2DKernelBackward(_, _, _ *RawTensor, _, _, _, _ int) *RawTensor {
	panic("not implemented")
}
func (mockBackend) MaxPool2D(_ *RawTensor, _, _, _, _ int) *RawTensor {
	panic("not implemented")
}
func (mockBackend) MaxPool2DBackward(_, _ *RawTensor, _ []int) *RawTensor {
	panic("not implemented")
}
func (mockBackend) Reshape(_ *RawTensor, _ Shape) *RawTensor      { panic("not implemented") }
func (mockBackend) Transpose(_ *RawTensor, _ ...int) *RawTensor   { panic("not implemented") }
func (mockBackend) AddScalar(_ *RawTensor, _ any) *RawTensor      { panic("not implemented") }
func (mockBackend) SubScalar(_ *RawTensor, _ any) *RawTensor      { panic("not implemented") }
func (mockBackend) MulScalar(_ *RawTensor, _ any) *RawTensor      { panic("not implemented") }
func (mockBackend) DivScalar(_ *RawTensor, _ any) *RawTensor      { panic("not implemented") }
func (mockBackend) Exp(_ *RawTensor) *RawTensor                   { panic("not implemented") }
func (mockBackend) Log(_ *RawTensor) *RawTensor                   { panic("not implemented") }
func (mockBackend) Sqrt(_ *RawTensor) *RawTensor                  { panic("not implemented") }
func (mockBackend) ReLU(_ *RawTensor) *RawTensor                  { panic("not implemented") }
func (mockBackend) Softmax(_ *RawTensor, _ int) *RawTensor        { panic("not implemented") }
func (mockBackend) Sum(_ *RawTensor) *RawTensor                   { panic("not implemented") }
func (mockBackend) SumDim(_ *RawTensor, _ int, _ bool) *RawTensor { panic("not implemented") }
func (mockBackend) MeanDim(_ *RawTensor, _ int, _ bool) *RawTensor {
	panic("not implemented")
}
func (mockBackend) Argmax(_ *RawTensor, _ int) *RawTensor { panic("not implemented") }
func (mockBackend) Name() string                          { return "Mock" }
func (mockBackend) Device() Device                        { return CPU }

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{3, 4}, 12},
		{Shape{2, 60, 101, 1}, 12120},
	}
	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("NumElements(%v) = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShapeValidate(t *testing.T) {
	if err := (Shape{3, 4}).Validate(); err != nil {
		t.Errorf("valid shape rejected: %v", err)
	}
	if err := (Shape{3, 0}).Validate(); err == nil {
		t.Error("expected error for zero dimension")
	}
	if err := (Shape{-1, 4}).Validate(); err == nil {
		t.Error("expected error for negative dimension")
	}
}

func TestShapeComputeStrides(t *testing.T) {
	strides := Shape{2, 3, 4}.ComputeStrides()
	want := []int{12, 4, 1}
	for i := range want {
		if strides[i] != want[i] {
			t.Errorf("strides = %v, want %v", strides, want)
			break
		}
	}
}

func TestBroadcastShapes(t *testing.T) {
	result, needed, err := BroadcastShapes(Shape{3, 1}, Shape{3, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Equal(Shape{3, 5}) || !needed {
		t.Errorf("got %v (broadcast=%v), want [3 5] (broadcast=true)", result, needed)
	}

	if _, _, err := BroadcastShapes(Shape{3, 4}, Shape{3, 5}); err == nil {
		t.Error("expected error for incompatible shapes")
	}
}

func TestFromSlice(t *testing.T) {
	b := mockBackend{}

	data := []float32{1, 2, 3, 4, 5, 6}
	tn, err := FromSlice(data, Shape{2, 3}, b)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	if got := tn.At(1, 2); got != 6 {
		t.Errorf("At(1, 2) = %v, want 6", got)
	}

	if _, err := FromSlice(data, Shape{2, 2}, b); err == nil {
		t.Error("expected error for element count mismatch")
	}
}

func TestSetAndAt(t *testing.T) {
	tn := Zeros[float32](Shape{3, 3}, mockBackend{})
	tn.Set(2.5, 1, 1)
	if got := tn.At(1, 1); got != 2.5 {
		t.Errorf("At(1, 1) = %v, want 2.5", got)
	}
	if got := tn.At(0, 0); got != 0 {
		t.Errorf("At(0, 0) = %v, want 0", got)
	}
}

func TestCloneSharesBuffer(t *testing.T) {
	a := Zeros[float32](Shape{4}, mockBackend{})
	if !a.Raw().IsUnique() {
		t.Fatal("fresh tensor should hold a unique buffer")
	}

	b := a.Clone()
	if a.Raw().IsUnique() || b.Raw().IsUnique() {
		t.Error("clone should share the buffer")
	}

	b.Raw().Release()
	if !a.Raw().IsUnique() {
		t.Error("releasing the clone should restore uniqueness")
	}
}

func TestForceNonUnique(t *testing.T) {
	a := Zeros[float32](Shape{4}, mockBackend{})
	restore := a.Raw().ForceNonUnique()
	if a.Raw().IsUnique() {
		t.Error("ForceNonUnique should pin the buffer")
	}
	restore()
	if !a.Raw().IsUnique() {
		t.Error("cleanup should restore uniqueness")
	}
}

func TestIntTensor(t *testing.T) {
	labels, err := FromSlice([]int32{4, 0, 17}, Shape{3}, mockBackend{})
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	if labels.DType() != Int32 {
		t.Errorf("dtype = %v, want int32", labels.DType())
	}
	if got := labels.At(2); got != 17 {
		t.Errorf("At(2) = %d, want 17", got)
	}
}

func TestArange(t *testing.T) {
	tn := Arange[int32](0, 5, mockBackend{})
	for i, want := range []int32{0, 1, 2, 3, 4} {
		if got := tn.At(i); got != want {
			t.Errorf("Arange[%d] = %d, want %d", i, got, want)
		}
	}
}
