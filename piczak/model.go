package piczak

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/piczak/nn"
	"github.com/born-ml/piczak/tensor"
)

// Fixed architecture constants from the original network.
const (
	convFilters  = 80
	denseFeature = 5000
	keepProb     = 0.5
)

// Geometry pairs are {height, width} with height on the mel band axis.
var (
	conv1Kernel = [2]int{57, 6}
	pool1Kernel = [2]int{4, 3}
	pool1Stride = [2]int{1, 3}
	conv2Kernel = [2]int{1, 3}
	pool2Kernel = [2]int{1, 3}
	pool2Stride = [2]int{1, 3}
	noStride    = [2]int{1, 1}
	noPadding   = [2]int{0, 0}
)

// Config describes the input framing, class count, and injected parameter
// strategies of a model.
type Config[B tensor.Backend] struct {
	Bands      int   // mel bands F (default: 60)
	Frames     int   // time frames T (default: 101)
	NumClasses int   // output classes C (default: 50)
	Seed       int64 // initialization seed (default: 0)

	// Initializers apply uniformly to every layer. Nil defaults to
	// Xavier uniform weights and zero biases.
	WeightInit nn.Initializer
	BiasInit   nn.Initializer

	// Optional regularizers, applied uniformly to every layer's weights
	// and biases when computing the loss. Nil means no penalty.
	WeightReg nn.Regularizer[B]
	BiasReg   nn.Regularizer[B]
}

// DefaultConfig returns the long-segment framing used for 5-second clips:
// 60 bands, 101 frames, 50 classes.
func DefaultConfig[B tensor.Backend]() Config[B] {
	return Config[B]{
		Bands:      60,
		Frames:     101,
		NumClasses: 50,
	}
}

// Model is the classifier with its layer stack and parameter namespace.
type Model[B tensor.Backend] struct {
	cfg     Config[B]
	backend B

	conv1 *nn.Conv2D[B]
	drop1 *nn.Dropout[B]
	pool1 *nn.MaxPool2D[B]
	conv2 *nn.Conv2D[B]
	pool2 *nn.MaxPool2D[B]

	dense1 *nn.Linear[B]
	drop2  *nn.Dropout[B]
	dense2 *nn.Linear[B]
	drop3  *nn.Dropout[B]
	output *nn.Linear[B]

	criterion *nn.CrossEntropyLoss[B]

	flatFeatures int
	convOutH     int
	convOutW     int
}

// New builds a model for the configured framing. All stage output sizes
// are derived from convolution and pooling arithmetic up front; a framing
// that collapses any stage to a non-positive size is rejected here rather
// than at first Forward.
func New[B tensor.Backend](cfg Config[B], backend B) (*Model[B], error) {
	def := DefaultConfig[B]()
	if cfg.Bands == 0 {
		cfg.Bands = def.Bands
	}
	if cfg.Frames == 0 {
		cfg.Frames = def.Frames
	}
	if cfg.NumClasses == 0 {
		cfg.NumClasses = def.NumClasses
	}
	if cfg.NumClasses < 2 {
		return nil, fmt.Errorf("need at least 2 classes, got %d", cfg.NumClasses)
	}

	h := cfg.Bands - conv1Kernel[0] + 1
	w := cfg.Frames - conv1Kernel[1] + 1
	if h <= 0 || w <= 0 {
		return nil, fmt.Errorf("input %dx%d too small for %dx%d convolution",
			cfg.Bands, cfg.Frames, conv1Kernel[0], conv1Kernel[1])
	}

	h = (h-pool1Kernel[0])/pool1Stride[0] + 1
	w = (w-pool1Kernel[1])/pool1Stride[1] + 1
	if h <= 0 || w <= 0 {
		return nil, fmt.Errorf("first pooling stage collapses to %dx%d for input %dx%d",
			h, w, cfg.Bands, cfg.Frames)
	}

	h = h - conv2Kernel[0] + 1
	w = w - conv2Kernel[1] + 1
	if h <= 0 || w <= 0 {
		return nil, fmt.Errorf("second convolution stage collapses for input %dx%d",
			cfg.Bands, cfg.Frames)
	}

	h = (h-pool2Kernel[0])/pool2Stride[0] + 1
	w = (w-pool2Kernel[1])/pool2Stride[1] + 1
	if h <= 0 || w <= 0 {
		return nil, fmt.Errorf("second pooling stage collapses for input %dx%d",
			cfg.Bands, cfg.Frames)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	m := &Model[B]{
		cfg:          cfg,
		backend:      backend,
		conv1:        nn.NewConv2D(1, convFilters, conv1Kernel, noStride, noPadding, true, cfg.WeightInit, cfg.BiasInit, rng, backend),
		drop1:        nn.NewDropout[B](keepProb, rng),
		pool1:        nn.NewMaxPool2D(pool1Kernel, pool1Stride, backend),
		conv2:        nn.NewConv2D(convFilters, convFilters, conv2Kernel, noStride, noPadding, true, cfg.WeightInit, cfg.BiasInit, rng, backend),
		pool2:        nn.NewMaxPool2D(pool2Kernel, pool2Stride, backend),
		criterion:    nn.NewCrossEntropyLoss(backend),
		flatFeatures: h * w * convFilters,
		convOutH:     h,
		convOutW:     w,
	}
	m.dense1 = nn.NewLinear(m.flatFeatures, denseFeature, cfg.WeightInit, cfg.BiasInit, rng, backend)
	m.drop2 = nn.NewDropout[B](keepProb, rng)
	m.dense2 = nn.NewLinear(denseFeature, denseFeature, cfg.WeightInit, cfg.BiasInit, rng, backend)
	m.drop3 = nn.NewDropout[B](keepProb, rng)
	m.output = nn.NewLinear(denseFeature, cfg.NumClasses, cfg.WeightInit, cfg.BiasInit, rng, backend)

	return m, nil
}

// Config returns the resolved model configuration.
func (m *Model[B]) Config() Config[B] {
	return m.cfg
}

// FlatFeatures returns the flattened feature count between the
// convolutional stages and the first dense layer.
func (m *Model[B]) FlatFeatures() int {
	return m.flatFeatures
}

// Backend returns the compute backend.
func (m *Model[B]) Backend() B {
	return m.backend
}

// Forward runs the network on a batch of spectrogram segments shaped
// (N, bands, frames, 1) and returns raw logits shaped (N, classes).
// Dropout is active only when training is true.
func (m *Model[B]) Forward(input *tensor.Tensor[float32, B], training bool) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 4 || shape[1] != m.cfg.Bands || shape[2] != m.cfg.Frames || shape[3] != 1 {
		panic(fmt.Sprintf("piczak: expected input (N, %d, %d, 1), got %v",
			m.cfg.Bands, m.cfg.Frames, shape))
	}

	m.drop1.SetTraining(training)
	m.drop2.SetTraining(training)
	m.drop3.SetTraining(training)

	batch := shape[0]

	// (N, F, T, 1) -> (N, 1, F, T) for the convolution stack.
	x := input.Transpose(0, 3, 1, 2)

	x = m.conv1.Forward(x)
	x = relu(x)
	x = m.drop1.Forward(x)
	x = m.pool1.Forward(x)

	x = m.conv2.Forward(x)
	x = relu(x)
	x = m.pool2.Forward(x)

	// Frames-major flattening: (N, C, H, W) -> (N, W, H, C) -> (N, W*H*C).
	x = x.Transpose(0, 3, 2, 1)
	x = x.Reshape(batch, m.flatFeatures)

	x = m.dense1.Forward(x)
	x = relu(x)
	x = m.drop2.Forward(x)

	x = m.dense2.Forward(x)
	x = relu(x)
	x = m.drop3.Forward(x)

	return m.output.Forward(x)
}

func relu[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return tensor.New[float32, B](x.Backend().ReLU(x.Raw()), x.Backend())
}

// Parameters returns all 10 trainable parameters for the optimizer.
func (m *Model[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, layer := range m.layers() {
		params = append(params, layer.module.Parameters()...)
	}
	return params
}

type namedLayer[B tensor.Backend] struct {
	label  string
	module nn.Module[B]
}

// layers returns the parametered layers in namespace order.
func (m *Model[B]) layers() []namedLayer[B] {
	return []namedLayer[B]{
		{"cnn_1", m.conv1},
		{"cnn_2", m.conv2},
		{"dense_1", m.dense1},
		{"dense_2", m.dense2},
		{"output", m.output},
	}
}
