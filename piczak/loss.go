package piczak

import (
	"fmt"

	"github.com/born-ml/piczak/nn"
	"github.com/born-ml/piczak/tensor"
)

// Loss computes mean sparse softmax cross-entropy over the batch, plus any
// configured regularizer penalties. Logits are (N, classes), labels are
// (N,) int32 class indices in [0, classes).
func (m *Model[B]) Loss(
	logits *tensor.Tensor[float32, B],
	labels *tensor.Tensor[int32, B],
) (*tensor.Tensor[float32, B], error) {
	logitsShape := logits.Shape()
	if len(logitsShape) != 2 || logitsShape[1] != m.cfg.NumClasses {
		return nil, fmt.Errorf("expected logits (N, %d), got %v", m.cfg.NumClasses, logitsShape)
	}
	labelsShape := labels.Shape()
	if len(labelsShape) != 1 || labelsShape[0] != logitsShape[0] {
		return nil, fmt.Errorf("expected labels (%d,), got %v", logitsShape[0], labelsShape)
	}
	for _, label := range labels.Data() {
		if label < 0 || int(label) >= m.cfg.NumClasses {
			return nil, fmt.Errorf("label %d out of range [0, %d)", label, m.cfg.NumClasses)
		}
	}

	loss := m.criterion.Forward(logits, labels)

	if m.cfg.WeightReg != nil || m.cfg.BiasReg != nil {
		for _, param := range m.Parameters() {
			reg := m.cfg.WeightReg
			if param.Name() == "bias" {
				reg = m.cfg.BiasReg
			}
			if reg != nil {
				loss = loss.Add(reg.Penalty(param.Tensor()))
			}
		}
	}

	return loss, nil
}

// Predict runs inference and returns per-class probabilities shaped
// (N, classes). Softmax here serves prediction only; training goes through
// Loss on the raw logits.
func (m *Model[B]) Predict(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	logits := m.Forward(input, false)
	probs := m.backend.Softmax(logits.Raw(), 1)
	return tensor.New[float32, B](probs, m.backend)
}

// Accuracy computes the fraction of segments whose top class matches the
// label.
func (m *Model[B]) Accuracy(
	logits *tensor.Tensor[float32, B],
	labels *tensor.Tensor[int32, B],
) float32 {
	return nn.Accuracy(logits, labels)
}
