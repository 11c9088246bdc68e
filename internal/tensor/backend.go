package tensor

// Backend is the interface compute backends implement. All operations work
// on RawTensor and return freshly derived tensors; implementations may
// reuse an operand's buffer when IsUnique reports it safe.
//
// Convolution and pooling take independent height/width kernel, stride and
// padding arguments. Audio spectrograms are strongly anisotropic (frequency
// and time axes carry different structure), so square-only kernels are not
// enough here.
type Backend interface {
	// Element-wise binary operations with broadcasting
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix multiplication for 2D tensors: (M, K) @ (K, N) -> (M, N)
	MatMul(a, b *RawTensor) *RawTensor

	// Convolution over NCHW input with OIHW kernel
	Conv2D(input, kernel *RawTensor, strideH, strideW, padH, padW int) *RawTensor
	Conv2DInputBackward(input, kernel, grad *RawTensor, strideH, strideW, padH, padW int) *RawTensor
	Conv2DKernelBackward(input, kernel, grad *RawTensor, strideH, strideW, padH, padW int) *RawTensor

	// Max pooling over NCHW input
	MaxPool2D(input *RawTensor, kernelH, kernelW, strideH, strideW int) *RawTensor
	MaxPool2DBackward(input, grad *RawTensor, maxIndices []int) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Scalar operations (element-wise with a scalar operand)
	AddScalar(x *RawTensor, scalar any) *RawTensor
	SubScalar(x *RawTensor, scalar any) *RawTensor
	MulScalar(x *RawTensor, scalar any) *RawTensor
	DivScalar(x *RawTensor, scalar any) *RawTensor

	// Element-wise math
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor

	// Activations
	ReLU(x *RawTensor) *RawTensor
	Softmax(x *RawTensor, dim int) *RawTensor

	// Reductions
	Sum(x *RawTensor) *RawTensor
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	Argmax(x *RawTensor, dim int) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
