package nn

import (
	"fmt"
	"strings"
	"time"

	"github.com/born-ml/piczak/internal/serialization"
	"github.com/born-ml/piczak/internal/tensor"
)

// OptimizerState is the slice of an optimizer that checkpoints need.
// Declared here rather than in optim to avoid an import cycle; the optim
// package optimizers satisfy it.
type OptimizerState interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
	GetLR() float32
}

// StateProvider is the model surface checkpoints work with. Every Module
// satisfies it, as do composite models whose Forward takes extra
// arguments.
type StateProvider interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// Checkpoint is a complete training snapshot: model parameters, optimizer
// buffers, and the training position (epoch, step, loss). Saving one lets
// an interrupted run resume where it left off.
type Checkpoint struct {
	Model     StateProvider
	Optimizer OptimizerState
	Epoch     int
	Step      int64
	Loss      float64
	Metadata  map[string]any
	CreatedAt time.Time
}

// optimizerPrefix namespaces optimizer tensors inside the combined state
// dict so they never collide with parameter names.
const optimizerPrefix = "optimizer."

// Save writes the checkpoint to a .born file at path.
func (c *Checkpoint) Save(path string) error {
	combined := make(map[string]*tensor.RawTensor)
	for name, raw := range c.Model.StateDict() {
		combined[name] = raw
	}
	if c.Optimizer != nil {
		for name, raw := range c.Optimizer.StateDict() {
			combined[optimizerPrefix+name] = raw
		}
	}

	header := serialization.Header{
		ModelType: "Checkpoint",
		CheckpointMeta: &serialization.CheckpointMeta{
			IsCheckpoint:    true,
			Epoch:           c.Epoch,
			Step:            c.Step,
			Loss:            c.Loss,
			OptimizerType:   fmt.Sprintf("%T", c.Optimizer),
			OptimizerConfig: optimizerConfig(c.Optimizer),
			TrainingMeta:    c.Metadata,
		},
	}

	writer, err := serialization.NewWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint writer: %w", err)
	}
	defer writer.Close()

	if err := writer.WriteStateDictWithHeader(combined, header); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return writer.Close()
}

// LoadCheckpoint restores a checkpoint saved with Save into a
// pre-constructed model and optimizer of the same architecture. The
// returned Checkpoint carries the saved training position.
func LoadCheckpoint[B tensor.Backend](
	path string,
	backend B,
	model StateProvider,
	optimizer OptimizerState,
) (*Checkpoint, error) {
	reader, err := serialization.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer reader.Close()

	header := reader.Header()
	if header.CheckpointMeta == nil || !header.CheckpointMeta.IsCheckpoint {
		return nil, fmt.Errorf("%s is not a checkpoint file", path)
	}

	stateDict, err := reader.ReadStateDict(backend)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint state: %w", err)
	}

	modelState := make(map[string]*tensor.RawTensor)
	optimizerState := make(map[string]*tensor.RawTensor)
	for name, raw := range stateDict {
		if rest, ok := strings.CutPrefix(name, optimizerPrefix); ok {
			optimizerState[rest] = raw
		} else {
			modelState[name] = raw
		}
	}

	if err := model.LoadStateDict(modelState); err != nil {
		return nil, fmt.Errorf("failed to load model state: %w", err)
	}
	if optimizer != nil {
		if err := optimizer.LoadStateDict(optimizerState); err != nil {
			return nil, fmt.Errorf("failed to load optimizer state: %w", err)
		}
	}

	return &Checkpoint{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     header.CheckpointMeta.Epoch,
		Step:      header.CheckpointMeta.Step,
		Loss:      header.CheckpointMeta.Loss,
		Metadata:  header.CheckpointMeta.TrainingMeta,
		CreatedAt: header.CreatedAt,
	}, nil
}

// SaveCheckpoint saves a checkpoint with just an epoch number, for the
// common end-of-epoch case.
func SaveCheckpoint(path string, model StateProvider, optimizer OptimizerState, epoch int) error {
	checkpoint := &Checkpoint{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     epoch,
		CreatedAt: time.Now().UTC(),
	}
	return checkpoint.Save(path)
}

func optimizerConfig(opt OptimizerState) map[string]any {
	if opt == nil {
		return nil
	}
	return map[string]any{"lr": opt.GetLR()}
}