package nn

import (
	"fmt"

	"github.com/scrawl-ml/scrawl/internal/serialization"
	"github.com/scrawl-ml/scrawl/internal/tensor"
)

// StateDict flattens a module's parameters into a name-keyed map. Keys are
// "<position>.<name>" over the flattened parameter list, so the mapping is
// stable for a fixed architecture.
func StateDict[B tensor.Backend](m Module[B]) map[string]*tensor.RawTensor {
	params := m.Parameters()
	dict := make(map[string]*tensor.RawTensor, len(params))
	for i, p := range params {
		dict[fmt.Sprintf("%d.%s", i, p.Name())] = p.Raw()
	}
	return dict
}

// LoadStateDict copies tensors from dict into the module's parameters.
// Every parameter must be present with a matching shape.
func LoadStateDict[B tensor.Backend](m Module[B], dict map[string]*tensor.RawTensor) error {
	for i, p := range m.Parameters() {
		key := fmt.Sprintf("%d.%s", i, p.Name())
		raw, ok := dict[key]
		if !ok {
			return fmt.Errorf("state dict missing parameter %q", key)
		}
		if !raw.Shape().Equal(p.Raw().Shape()) {
			return fmt.Errorf("parameter %q: shape %v does not match model shape %v",
				key, raw.Shape(), p.Raw().Shape())
		}
		copy(p.Raw().Data(), raw.Data())
	}
	return nil
}

// Checkpoint is a snapshot of model weights plus training progress.
type Checkpoint[B tensor.Backend] struct {
	Model     Module[B]
	RunID     string
	Epoch     int
	Step      int64
	Loss      float64
	Accuracy  float64
	Optimizer string
}

// Save writes the checkpoint to a .scrw file.
func (c *Checkpoint[B]) Save(path string) error {
	header := serialization.Header{
		ModelType: "Sequential",
		CheckpointMeta: &serialization.CheckpointMeta{
			RunID:     c.RunID,
			Epoch:     c.Epoch,
			Step:      c.Step,
			Loss:      c.Loss,
			Accuracy:  c.Accuracy,
			Optimizer: c.Optimizer,
		},
	}
	if err := serialization.Save(path, StateDict(c.Model), header); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint restores model weights from a .scrw file and returns the
// checkpoint metadata, if the file carries any.
func LoadCheckpoint[B tensor.Backend](path string, model Module[B]) (*serialization.CheckpointMeta, error) {
	file, err := serialization.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if err := LoadStateDict(model, file.Tensors()); err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return file.Header.CheckpointMeta, nil
}
