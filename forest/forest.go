package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
)

var (
	// ErrEmptyDataset is returned by Fit when there is nothing to learn from.
	ErrEmptyDataset = errors.New("dataset has no examples")
	// ErrDimension is returned when an input or label has the wrong width.
	ErrDimension = errors.New("dimension mismatch")
	// ErrNotFitted is returned by PredictBatch before Fit succeeded.
	ErrNotFitted = errors.New("forest is not fitted")
	// ErrNonFinite is returned when training data contains NaN or Inf.
	ErrNonFinite = errors.New("non-finite value in training data")
)

// Config holds the hyperparameters of a random forest regressor.
type Config struct {
	// Trees is the number of trees in the ensemble. Default: 100.
	Trees int `json:"trees"`

	// MaxDepth caps the depth of each tree. Zero means unlimited.
	MaxDepth int `json:"max_depth"`

	// MinSamplesSplit is the minimum number of samples a node needs before it
	// is considered for splitting. Default: 2.
	MinSamplesSplit int `json:"min_samples_split"`

	// MinSamplesLeaf is the minimum number of samples on each side of a split.
	// Default: 1.
	MinSamplesLeaf int `json:"min_samples_leaf"`

	// MaxFeatures is the number of features examined at each split. Zero (or
	// a value >= the input width) examines all of them.
	MaxFeatures int `json:"max_features"`

	// Seed controls bootstrap sampling and feature selection. Trees draw their
	// own seeds from it, so a fixed seed gives identical forests regardless of
	// Workers.
	Seed int64 `json:"seed"`

	// Workers bounds the number of trees grown concurrently. Zero uses
	// runtime.NumCPU().
	Workers int `json:"workers"`

	// InputDim and OutputDim fix the expected widths. Zero infers them from
	// the first training example.
	InputDim  int `json:"-"`
	OutputDim int `json:"-"`
}

// SetDefaults fills zero fields with sensible defaults.
func (c *Config) SetDefaults() {
	if c.Trees <= 0 {
		c.Trees = 100
	}
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = 2
	}
	if c.MinSamplesLeaf < 1 {
		c.MinSamplesLeaf = 1
	}
}

// Validate rejects nonsensical settings.
func (c Config) Validate() error {
	if c.Trees < 0 {
		return fmt.Errorf("trees must be >= 0, got %d", c.Trees)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d", c.MaxDepth)
	}
	if c.MaxFeatures < 0 {
		return fmt.Errorf("max_features must be >= 0, got %d", c.MaxFeatures)
	}
	return nil
}

// Dataset is the minimal interface the forest requires from training data.
// telemetry.ExampleSet satisfies it.
type Dataset interface {
	Len() int
	// Batch returns inputs and labels for the provided indices.
	Batch(indices []int) ([][]float64, [][]float64, error)
}

// Forest is a bagged ensemble of multi-output CART regression trees. Each
// tree is grown on a bootstrap sample; predictions are the average of the
// trees' leaf means. A fitted Forest is read-only and safe for concurrent
// PredictBatch calls.
type Forest struct {
	Config Config

	trees     []*tree
	inputDim  int
	outputDim int
}

// New creates an unfitted forest. Zero config fields are defaulted.
func New(cfg Config) (*Forest, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Forest{Config: cfg}, nil
}

// Fitted reports whether Fit has completed successfully.
func (f *Forest) Fitted() bool { return len(f.trees) > 0 }

// Fit grows the ensemble on every example of ds. Calling Fit again replaces
// the previous trees.
func (f *Forest) Fit(ds Dataset) error {
	if ds == nil {
		return errors.New("dataset is nil")
	}
	n := ds.Len()
	if n == 0 {
		return ErrEmptyDataset
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	x, y, err := ds.Batch(indices)
	if err != nil {
		return fmt.Errorf("read training batch: %w", err)
	}
	if err := f.checkShapes(x, y); err != nil {
		return err
	}

	cfg := f.Config
	// Per-tree seeds are drawn serially so the result does not depend on
	// scheduling.
	rng := rand.New(rand.NewSource(cfg.Seed))
	seeds := make([]int64, cfg.Trees)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > cfg.Trees {
		workers = cfg.Trees
	}

	trees := make([]*tree, cfg.Trees)
	jobs := make(chan int, cfg.Trees)
	errCh := make(chan error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			// a panic while growing a tree must surface as an error from
			// Fit, not take down the caller from another goroutine
			defer func() {
				if r := recover(); r != nil {
					errCh <- fmt.Errorf("grow tree: panic: %v", r)
				}
			}()
			for t := range jobs {
				trees[t] = f.growTree(x, y, seeds[t])
			}
		}()
	}
	for t := 0; t < cfg.Trees; t++ {
		jobs <- t
	}
	close(jobs)
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return err
	}
	f.trees = trees
	return nil
}

func (f *Forest) growTree(x, y [][]float64, seed int64) *tree {
	rng := rand.New(rand.NewSource(seed))
	n := len(x)
	sample := make([]int, n)
	for i := range sample {
		sample[i] = rng.Intn(n)
	}
	g := &grower{x: x, y: y, cfg: f.Config, rng: rng, inputDim: f.inputDim, outputDim: f.outputDim}
	return g.grow(sample)
}

func (f *Forest) checkShapes(x, y [][]float64) error {
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d inputs vs %d labels", ErrDimension, len(x), len(y))
	}
	inDim, outDim := f.Config.InputDim, f.Config.OutputDim
	if inDim == 0 {
		inDim = len(x[0])
	}
	if outDim == 0 {
		outDim = len(y[0])
	}
	if inDim == 0 || outDim == 0 {
		return fmt.Errorf("%w: zero-width inputs or labels", ErrDimension)
	}
	for i := range x {
		if len(x[i]) != inDim {
			return fmt.Errorf("%w: input %d has width %d, expected %d", ErrDimension, i, len(x[i]), inDim)
		}
		if len(y[i]) != outDim {
			return fmt.Errorf("%w: label %d has width %d, expected %d", ErrDimension, i, len(y[i]), outDim)
		}
		for _, v := range x[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: input %d", ErrNonFinite, i)
			}
		}
		for _, v := range y[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: label %d", ErrNonFinite, i)
			}
		}
	}
	f.inputDim, f.outputDim = inDim, outDim
	return nil
}

// Predict returns the ensemble prediction for a single input.
func (f *Forest) Predict(input []float64) ([]float64, error) {
	out, err := f.PredictBatch([][]float64{input})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// PredictBatch returns one prediction per input, each of length OutputDim.
func (f *Forest) PredictBatch(inputs [][]float64) ([][]float64, error) {
	if !f.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(inputs))
	for i, in := range inputs {
		if len(in) != f.inputDim {
			return nil, fmt.Errorf("%w: input %d has width %d, expected %d", ErrDimension, i, len(in), f.inputDim)
		}
		pred := make([]float64, f.outputDim)
		for _, t := range f.trees {
			leaf := t.leaf(in)
			for k := range pred {
				pred[k] += leaf[k]
			}
		}
		inv := 1.0 / float64(len(f.trees))
		for k := range pred {
			pred[k] *= inv
		}
		out[i] = pred
	}
	return out, nil
}
