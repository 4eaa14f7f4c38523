package telemetry

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// View selects which inputs/labels an ExampleSet exposes.
type View int

const (
	// MovementView: (lat, lon, sst, chl, hour, month) -> (lat_next, lon_next).
	MovementView View = iota
	// EnvironmentView: (lat_next, lon_next, hour, month) -> (sst_next, chl_next).
	EnvironmentView
)

func (v View) String() string {
	switch v {
	case MovementView:
		return "movement"
	case EnvironmentView:
		return "environment"
	default:
		return fmt.Sprintf("View(%d)", int(v))
	}
}

// InputDim is the number of features the view produces.
func (v View) InputDim() int {
	if v == EnvironmentView {
		return 4
	}
	return 6
}

// LabelDim is the number of targets the view produces.
func (v View) LabelDim() int { return 2 }

// ExampleSet is an in-memory dataset over a slice of examples. The slice is
// not copied; callers must not modify it while the set is in use.
type ExampleSet struct {
	Examples []Example
	View     View
}

// NewExampleSet wraps examples with the given view.
func NewExampleSet(examples []Example, view View) *ExampleSet {
	return &ExampleSet{Examples: examples, View: view}
}

// Len returns the number of examples.
func (s *ExampleSet) Len() int { return len(s.Examples) }

// Example returns the inputs and labels for the example at idx.
func (s *ExampleSet) Example(idx int) (inputs []float64, labels []float64, err error) {
	if idx < 0 || idx >= len(s.Examples) {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, len(s.Examples))
	}
	ex := s.Examples[idx]
	if s.View == EnvironmentView {
		return ex.EnvironmentInputs(), ex.EnvironmentLabels(), nil
	}
	return ex.MovementInputs(), ex.MovementLabels(), nil
}

// Batch reads multiple examples by their indices
func (s *ExampleSet) Batch(indices []int) ([][]float64, [][]float64, error) {
	inputs := make([][]float64, len(indices))
	labels := make([][]float64, len(indices))
	for i, idx := range indices {
		in, la, err := s.Example(idx)
		if err != nil {
			return nil, nil, err
		}
		inputs[i] = in
		labels[i] = la
	}
	return inputs, labels, nil
}

// All returns every example as a batch.
func (s *ExampleSet) All() ([][]float64, [][]float64, error) {
	indices := make([]int, len(s.Examples))
	for i := range indices {
		indices[i] = i
	}
	return s.Batch(indices)
}

// Split returns the first n examples and the remainder as two sets sharing
// the view.
func (s *ExampleSet) Split(n int) (*ExampleSet, *ExampleSet) {
	n = max(0, min(n, len(s.Examples)))
	return NewExampleSet(s.Examples[:n], s.View), NewExampleSet(s.Examples[n:], s.View)
}

// BatchFlat stores a batch in flat contiguous float32 buffers
type BatchFlat struct {
	Inputs    []float32
	Labels    []float32
	BatchSize int
	InputDim  int
	LabelDim  int
}

// MakeBatchFlat flattens a batch into contiguous buffers
func MakeBatchFlat(inputs, labels [][]float64) (*BatchFlat, error) {
	if len(inputs) != len(labels) {
		return nil, fmt.Errorf("inputs and labels batch sizes don't match: %d != %d", len(inputs), len(labels))
	}
	if len(inputs) == 0 {
		return &BatchFlat{}, nil
	}

	batchSize := len(inputs)
	inputDim := len(inputs[0])
	labelDim := len(labels[0])

	flatInputs := make([]float32, batchSize*inputDim)
	flatLabels := make([]float32, batchSize*labelDim)

	for i := range batchSize {
		if len(inputs[i]) != inputDim {
			return nil, fmt.Errorf("inconsistent input dimensions at example %d: expected %d, got %d",
				i, inputDim, len(inputs[i]))
		}
		if len(labels[i]) != labelDim {
			return nil, fmt.Errorf("inconsistent label dimensions at example %d: expected %d, got %d",
				i, labelDim, len(labels[i]))
		}
		for j, v := range inputs[i] {
			flatInputs[i*inputDim+j] = float32(v)
		}
		for j, v := range labels[i] {
			flatLabels[i*labelDim+j] = float32(v)
		}
	}

	return &BatchFlat{
		Inputs:    flatInputs,
		Labels:    flatLabels,
		BatchSize: batchSize,
		InputDim:  inputDim,
		LabelDim:  labelDim,
	}, nil
}

// ToGomlxTensors wraps the flat buffers as gomlx tensors of shape
// [batch, inputDim] and [batch, labelDim] without copying them.
func (b *BatchFlat) ToGomlxTensors() (*tensors.Tensor, *tensors.Tensor, error) {
	if b.BatchSize == 0 || b.InputDim == 0 || b.LabelDim == 0 {
		return nil, nil, fmt.Errorf("empty batch (%d x %d -> %d)", b.BatchSize, b.InputDim, b.LabelDim)
	}
	inputs := tensors.FromFlatDataAndDimensions(b.Inputs, b.BatchSize, b.InputDim)
	labels := tensors.FromFlatDataAndDimensions(b.Labels, b.BatchSize, b.LabelDim)
	return inputs, labels, nil
}
