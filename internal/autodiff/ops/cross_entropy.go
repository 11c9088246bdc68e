package ops

import (
	"fmt"
	"math"

	"github.com/born-ml/piczak/internal/tensor"
)

// CrossEntropyOp records output = mean sparse softmax cross-entropy between
// raw logits (N, C) and integer class targets (N,).
//
// Backward uses the closed form
//
//	grad_logits = (softmax(logits) - onehot(targets)) / N
//
// scaled by the scalar output gradient.
type CrossEntropyOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor

	targets *tensor.RawTensor
}

// NewCrossEntropyOp creates a CrossEntropyOp. Targets are not an input in
// the graph sense; no gradient flows to them.
func NewCrossEntropyOp(logits, targets, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{
		inputs:  []*tensor.RawTensor{logits},
		output:  output,
		targets: targets,
	}
}

// Backward computes the logits gradient.
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	logits := op.inputs[0]
	shape := logits.Shape()
	batchSize, numClasses := shape[0], shape[1]

	grad, err := tensor.NewRaw(shape, logits.DType(), logits.Device())
	if err != nil {
		panic(fmt.Sprintf("CrossEntropyOp.Backward: %v", err))
	}

	gradScale := outputGrad.AsFloat32()[0] / float32(batchSize)
	logitsData := logits.AsFloat32()
	targetsData := op.targets.AsInt32()
	gradData := grad.AsFloat32()

	probs := make([]float64, numClasses)
	for i := 0; i < batchSize; i++ {
		row := logitsData[i*numClasses : (i+1)*numClasses]
		softmaxRow(row, probs)
		target := int(targetsData[i])
		for j := 0; j < numClasses; j++ {
			p := float32(probs[j])
			if j == target {
				p -= 1.0
			}
			gradData[i*numClasses+j] = p * gradScale
		}
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns [logits].
func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the scalar mean loss.
func (op *CrossEntropyOp) Output() *tensor.RawTensor { return op.output }

// CrossEntropyForward computes the scalar mean loss for logits (N, C) and
// targets (N,). Targets must be Int32 class indices in [0, C).
func CrossEntropyForward(logits, targets *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	shape := logits.Shape()
	batchSize, numClasses := shape[0], shape[1]

	output, err := tensor.NewRaw(tensor.Shape{1}, logits.DType(), device)
	if err != nil {
		panic(fmt.Sprintf("CrossEntropyForward: %v", err))
	}

	logitsData := logits.AsFloat32()
	targetsData := targets.AsInt32()

	var totalLoss float64
	for i := 0; i < batchSize; i++ {
		target := int(targetsData[i])
		if target < 0 || target >= numClasses {
			panic(fmt.Sprintf("CrossEntropyForward: target index %d out of bounds [0, %d)", target, numClasses))
		}
		row := logitsData[i*numClasses : (i+1)*numClasses]
		totalLoss -= logSoftmaxAt(row, target)
	}

	output.AsFloat32()[0] = float32(totalLoss / float64(batchSize))
	return output
}

// logSoftmaxAt computes log softmax(row)[idx] with the max subtracted for
// numerical stability.
func logSoftmaxAt(row []float32, idx int) float64 {
	maxVal := row[0]
	for _, v := range row[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sumExp float64
	for _, v := range row {
		sumExp += math.Exp(float64(v - maxVal))
	}
	return float64(row[idx]-maxVal) - math.Log(sumExp)
}

// softmaxRow writes softmax(row) into out.
func softmaxRow(row []float32, out []float64) {
	maxVal := row[0]
	for _, v := range row[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sumExp float64
	for j, v := range row {
		e := math.Exp(float64(v - maxVal))
		out[j] = e
		sumExp += e
	}
	for j := range out {
		out[j] /= sumExp
	}
}
