package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/piczak/internal/tensor"
)

// CrossEntropyLoss computes mean sparse softmax cross-entropy for
// multi-class classification.
//
// Expects raw logits; the log-sum-exp trick keeps the computation stable
// for large positive or negative scores.
//
//	Loss = mean over batch of -log_softmax(logits)[target]
//
// Usage:
//
//	criterion := nn.NewCrossEntropyLoss(backend)
//	logits := model.Forward(input)            // [batch, classes]
//	loss := criterion.Forward(logits, targets) // targets: [batch]
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates a cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{backend: backend}
}

// Forward computes the scalar mean loss.
//
// When the backend records gradients (autodiff.AutodiffBackend), the loss
// goes on the tape; otherwise it is computed directly.
func (c *CrossEntropyLoss[B]) Forward(
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) *tensor.Tensor[float32, B] {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("CrossEntropyLoss: logits must be 2D [batch, classes], got shape %v", shape))
	}
	if len(targets.Shape()) != 1 || targets.Shape()[0] != shape[0] {
		panic(fmt.Sprintf("CrossEntropyLoss: targets shape %v does not match batch size %d", targets.Shape(), shape[0]))
	}

	type crossEntropyBackend interface {
		CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
	}
	if adBackend, ok := any(c.backend).(crossEntropyBackend); ok {
		resultRaw := adBackend.CrossEntropy(logits.Raw(), targets.Raw())
		return tensor.New[float32, B](resultRaw, c.backend)
	}

	batchSize, numClasses := shape[0], shape[1]
	logitsData := logits.Raw().AsFloat32()
	targetsData := targets.Raw().AsInt32()

	var totalLoss float64
	for b := 0; b < batchSize; b++ {
		target := int(targetsData[b])
		if target < 0 || target >= numClasses {
			panic(fmt.Sprintf("CrossEntropyLoss: target index %d out of bounds [0, %d)", target, numClasses))
		}
		logProbs := logSoftmax(logitsData[b*numClasses : (b+1)*numClasses])
		totalLoss -= float64(logProbs[target])
	}

	lossRaw, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, c.backend.Device())
	if err != nil {
		panic(err)
	}
	lossRaw.AsFloat32()[0] = float32(totalLoss / float64(batchSize))
	return tensor.New[float32, B](lossRaw, c.backend)
}

// Parameters returns nil; loss functions have no trainable parameters.
func (c *CrossEntropyLoss[B]) Parameters() []*Parameter[B] {
	return nil
}

// logSoftmax computes log(softmax(z)) via the log-sum-exp trick.
func logSoftmax(z []float32) []float32 {
	result := make([]float32, len(z))

	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}

	var sumExp float64
	for _, v := range z {
		sumExp += math.Exp(float64(v - maxZ))
	}
	logSumExp := float64(maxZ) + math.Log(sumExp)

	for i, v := range z {
		result[i] = float32(float64(v) - logSumExp)
	}
	return result
}

// Accuracy computes the fraction of rows whose argmax matches the target.
func Accuracy[B tensor.Backend](
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) float32 {
	shape := logits.Shape()
	batchSize, numClasses := shape[0], shape[1]

	logitsData := logits.Raw().AsFloat32()
	targetsData := targets.Raw().AsInt32()

	correct := 0
	for b := 0; b < batchSize; b++ {
		row := logitsData[b*numClasses : (b+1)*numClasses]
		maxIdx := 0
		for i, v := range row {
			if v > row[maxIdx] {
				maxIdx = i
			}
		}
		if maxIdx == int(targetsData[b]) {
			correct++
		}
	}
	return float32(correct) / float32(batchSize)
}
