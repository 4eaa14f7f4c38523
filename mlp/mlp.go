// Package mlp is a small multilayer perceptron regressor trained with gomlx
// on the pure Go simplego backend. Inputs and labels are standardized per
// column before training and predictions are mapped back to label units.
package mlp

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/backends/simplego"
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"gonum.org/v1/gonum/stat"

	"github.com/Noofbiz/sharkcast/telemetry"
)

var (
	// ErrEmptyDataset is returned by Fit when there is nothing to learn from.
	ErrEmptyDataset = errors.New("dataset has no examples")
	// ErrNotFitted is returned by PredictBatch before Fit succeeded.
	ErrNotFitted = errors.New("model is not fitted")
	// ErrDimension is returned when an input row has the wrong width.
	ErrDimension = errors.New("dimension mismatch")
)

// Config holds the MLP hyperparameters.
type Config struct {
	// Hidden lists the widths of the hidden layers. Default: [32, 32].
	Hidden []int `json:"hidden"`

	// Steps is the number of full-batch Adam steps. Default: 400.
	Steps int `json:"steps"`

	// LearningRate for Adam. Default: 0.01.
	LearningRate float64 `json:"learning_rate"`

	// Seed initializes the weights. Default: 42.
	Seed int64 `json:"seed"`
}

// DefaultConfig returns the standard MLP configuration.
func DefaultConfig() Config {
	return Config{Hidden: []int{32, 32}, Steps: 400, LearningRate: 0.01, Seed: 42}
}

// SetDefaults fills zero fields from DefaultConfig.
func (c *Config) SetDefaults() {
	def := DefaultConfig()
	if len(c.Hidden) == 0 {
		c.Hidden = def.Hidden
	}
	if c.Steps <= 0 {
		c.Steps = def.Steps
	}
	if c.LearningRate <= 0 {
		c.LearningRate = def.LearningRate
	}
	if c.Seed == 0 {
		c.Seed = def.Seed
	}
}

// Validate rejects unusable layer widths.
func (c Config) Validate() error {
	for i, w := range c.Hidden {
		if w <= 0 {
			return fmt.Errorf("hidden layer %d has width %d", i, w)
		}
	}
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be > 0, got %d", c.Steps)
	}
	if c.LearningRate <= 0 || math.IsNaN(c.LearningRate) {
		return fmt.Errorf("learning_rate must be > 0, got %g", c.LearningRate)
	}
	return nil
}

// Dataset is the minimal interface Fit reads training data from.
type Dataset interface {
	Len() int
	Batch(indices []int) ([][]float64, [][]float64, error)
}

// Model is an MLP regressor. A fitted Model is safe for concurrent use.
type Model struct {
	Config Config

	mu       sync.Mutex
	exec     *context.Exec
	in, out  scaler
	inDim    int
	outDim   int
	lastLoss float64
}

// New returns an unfitted model with cfg defaulted and validated.
func New(cfg Config) (*Model, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Model{Config: cfg}, nil
}

// Fitted reports whether Fit has succeeded.
func (m *Model) Fitted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exec != nil
}

// Loss is the mean squared error, in standardized units, of the last
// training step.
func (m *Model) Loss() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLoss
}

func (m *Model) forward(ctx *context.Context, x *graph.Node) *graph.Node {
	for i, width := range m.Config.Hidden {
		x = layers.Dense(ctx.Inf("hidden_%d", i), x, true, width)
		x = activations.Relu(x)
	}
	return layers.Dense(ctx.In("output"), x, true, m.outDim)
}

// Fit trains on every example of ds with full-batch Adam steps.
func (m *Model) Fit(ds Dataset) (err error) {
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
		return fmt.Errorf("read dataset: %w", err)
	}
	if err := checkWidths(x, y); err != nil {
		return err
	}
	in, out := fitScaler(x), fitScaler(y)
	flat, err := telemetry.MakeBatchFlat(in.apply(x), out.apply(y))
	if err != nil {
		return err
	}
	inT, labT, err := flat.ToGomlxTensors()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.in, m.out = in, out
	m.inDim, m.outDim = flat.InputDim, flat.LabelDim

	// gomlx reports graph and execution errors by panicking.
	defer func() {
		if r := recover(); r != nil {
			m.exec = nil
			err = fmt.Errorf("gomlx: %v", r)
		}
	}()

	backend, err := simplego.New("")
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	ctx := context.New()
	ctx.SetParam(context.ParamInitialSeed, m.Config.Seed)

	modelFn := func(ctx *context.Context, _ any, inputs []*graph.Node) []*graph.Node {
		return []*graph.Node{m.forward(ctx, inputs[0])}
	}
	trainer := train.NewTrainer(backend, ctx, modelFn, losses.MeanSquaredError,
		optimizers.Adam().LearningRate(m.Config.LearningRate).Done(), nil, nil)

	var metrics []*tensors.Tensor
	for step := 0; step < m.Config.Steps; step++ {
		metrics = trainer.TrainStep(nil, []*tensors.Tensor{inT}, []*tensors.Tensor{labT})
	}
	if len(metrics) > 0 {
		if loss, ok := metrics[0].Value().(float32); ok {
			m.lastLoss = float64(loss)
		}
	}
	return m.compile(backend, ctx)
}

func (m *Model) compile(backend backends.Backend, ctx *context.Context) error {
	exec, err := context.NewExec(backend, ctx.Reuse(), func(ctx *context.Context, x *graph.Node) *graph.Node {
		return m.forward(ctx, x)
	})
	if err != nil {
		return fmt.Errorf("compile predictor: %w", err)
	}
	m.exec = exec
	return nil
}

// PredictBatch predicts one output row per input row.
func (m *Model) PredictBatch(inputs [][]float64) (out [][]float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exec == nil {
		return nil, ErrNotFitted
	}
	if len(inputs) == 0 {
		return [][]float64{}, nil
	}
	flat := make([]float32, 0, len(inputs)*m.inDim)
	for i, row := range inputs {
		if len(row) != m.inDim {
			return nil, fmt.Errorf("%w: input %d has %d features, expected %d", ErrDimension, i, len(row), m.inDim)
		}
		for j, v := range row {
			flat = append(flat, float32(m.in.forward(j, v)))
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gomlx: %v", r)
		}
	}()
	res, err := m.exec.Exec1(tensors.FromFlatDataAndDimensions(flat, len(inputs), m.inDim))
	if err != nil {
		return nil, err
	}
	rows, ok := res.Value().([][]float32)
	if !ok || len(rows) != len(inputs) {
		return nil, fmt.Errorf("unexpected prediction shape %s", res.Shape())
	}
	out = make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = m.out.inverse(j, float64(v))
		}
	}
	return out, nil
}

func checkWidths(x, y [][]float64) error {
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d inputs, %d labels", ErrDimension, len(x), len(y))
	}
	for i := range x {
		if len(x[i]) != len(x[0]) || len(y[i]) != len(y[0]) {
			return fmt.Errorf("%w: example %d", ErrDimension, i)
		}
	}
	return nil
}

// scaler standardizes columns to zero mean and unit variance.
type scaler struct {
	mean []float64
	std  []float64
}

func fitScaler(rows [][]float64) scaler {
	if len(rows) == 0 {
		return scaler{}
	}
	width := len(rows[0])
	s := scaler{mean: make([]float64, width), std: make([]float64, width)}
	col := make([]float64, len(rows))
	for j := 0; j < width; j++ {
		for i, row := range rows {
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.mean[j], s.std[j] = mean, std
	}
	return s
}

func (s scaler) forward(j int, v float64) float64 { return (v - s.mean[j]) / s.std[j] }

func (s scaler) inverse(j int, v float64) float64 { return v*s.std[j] + s.mean[j] }

func (s scaler) apply(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = s.forward(j, v)
		}
	}
	return out
}
