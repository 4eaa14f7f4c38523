package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Noofbiz/sharkcast/forest"
	"github.com/Noofbiz/sharkcast/logger"
	"github.com/Noofbiz/sharkcast/metrics"
	"github.com/Noofbiz/sharkcast/mlp"
	"github.com/Noofbiz/sharkcast/telemetry"
)

// KmPerDegree converts degree-space distance to kilometres.
const KmPerDegree = 111.0

// Skip reasons reported to the metrics recorder.
const (
	SkipInsufficientData = "insufficient_data"
	SkipFitError         = "fit_error"
)

// ErrInsufficientData is returned by TrainIndividual when an individual has
// too few examples.
var ErrInsufficientData = errors.New("insufficient examples")

// Config controls per-individual training.
type Config struct {
	// MinExamples is the smallest number of examples an individual needs to
	// get a model. Default: 10.
	MinExamples int `json:"min_examples" koanf:"min_examples"`

	// TrainFraction is the leading share of each individual's examples used
	// for fitting; the rest is held out. Default: 0.8.
	TrainFraction float64 `json:"train_fraction" koanf:"train_fraction"`

	// Workers is the number of individuals trained concurrently. Default: 1.
	Workers int `json:"workers" koanf:"workers"`

	// Model selects the regressor: "forest" (default) or "mlp".
	Model string `json:"model" koanf:"model"`

	Movement    forest.Config `json:"movement" koanf:"movement"`
	Environment forest.Config `json:"environment" koanf:"environment"`
	MLP         mlp.Config    `json:"mlp" koanf:"mlp"`
}

// DefaultConfig returns the standard training configuration.
func DefaultConfig() Config {
	return Config{
		MinExamples:   10,
		TrainFraction: 0.8,
		Workers:       1,
		Model:         ModelForest,
		Movement: forest.Config{
			Trees:           600,
			MaxDepth:        25,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  2,
			Seed:            42,
		},
		Environment: forest.Config{
			Trees:           300,
			MaxDepth:        20,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
			Seed:            42,
		},
		MLP: mlp.DefaultConfig(),
	}
}

// ForestConfig returns the forest settings of view.
func (c Config) ForestConfig(view telemetry.View) forest.Config {
	if view == telemetry.EnvironmentView {
		return c.Environment
	}
	return c.Movement
}

// SetDefaults fills zero fields from DefaultConfig.
func (c *Config) SetDefaults() {
	def := DefaultConfig()
	if c.MinExamples <= 0 {
		c.MinExamples = def.MinExamples
	}
	if c.TrainFraction == 0 {
		c.TrainFraction = def.TrainFraction
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.Movement.Trees == 0 {
		c.Movement = def.Movement
	}
	if c.Environment.Trees == 0 {
		c.Environment = def.Environment
	}
	if c.Model == "" {
		c.Model = def.Model
	}
	c.MLP.SetDefaults()
}

// Validate rejects settings that cannot produce a train/test split.
func (c Config) Validate() error {
	if c.MinExamples < 2 {
		return fmt.Errorf("min_examples must be >= 2, got %d", c.MinExamples)
	}
	if c.TrainFraction <= 0 || c.TrainFraction >= 1 {
		return fmt.Errorf("train_fraction must be in (0, 1), got %g", c.TrainFraction)
	}
	if _, err := FactoryFor(c.Model); err != nil {
		return err
	}
	if c.Model == ModelMLP {
		if err := c.MLP.Validate(); err != nil {
			return fmt.Errorf("mlp: %w", err)
		}
	}
	if err := c.Movement.Validate(); err != nil {
		return fmt.Errorf("movement: %w", err)
	}
	if err := c.Environment.Validate(); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

// HoldoutPoint is one held-out example with its true and predicted values.
type HoldoutPoint struct {
	Time    time.Time
	Lat     float64
	Lon     float64
	PredLat float64
	PredLon float64
	SST     float64
	PredSST float64
	Chl     float64
	PredChl float64
}

// Holdout is the held-out evaluation trace of one individual.
type Holdout struct {
	ID     string
	Points []HoldoutPoint
}

// TrainSummary counts the outcome of a training run.
type TrainSummary struct {
	Individuals int
	Trained     int
	Skipped     int
	Failed      int
	Duration    time.Duration
}

// TrainResult is everything a training run produced.
type TrainResult struct {
	Models   map[string]ModelPair
	Registry *Registry
	Holdouts map[string]Holdout
	Summary  TrainSummary
}

// Trainer fits a model pair per individual.
type Trainer struct {
	Config Config

	Logger   logger.Logger
	Recorder metrics.Recorder
	// NewModel builds each regressor. Default: FactoryFor(Config.Model).
	NewModel ModelFactory
}

// NewTrainer returns a Trainer with cfg defaulted and validated.
func NewTrainer(cfg Config) (*Trainer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	factory, err := FactoryFor(cfg.Model)
	if err != nil {
		return nil, err
	}
	return &Trainer{
		Config:   cfg,
		Logger:   logger.NopLogger{},
		Recorder: metrics.NopRecorder{},
		NewModel: factory,
	}, nil
}

// SplitIndex is the number of leading examples used for training when n
// examples are split with the given fraction.
func SplitIndex(n int, frac float64) int {
	return int(math.Floor(float64(n) * frac))
}

type outcome struct {
	id      string
	pair    ModelPair
	rec     ErrorRecord
	holdout Holdout
	skip    string
	err     error
}

// Train groups examples by individual and trains each one. A failure for one
// individual is logged and counted; it never aborts the others. Train only
// returns an error when ctx is cancelled.
func (t *Trainer) Train(ctx context.Context, examples []telemetry.Example) (*TrainResult, error) {
	start := time.Now()
	ids, groups := telemetry.GroupByID(examples)

	res := &TrainResult{
		Models:   make(map[string]ModelPair),
		Registry: NewRegistry(),
		Holdouts: make(map[string]Holdout),
	}
	res.Summary.Individuals = len(ids)

	workers := min(max(t.Config.Workers, 1), max(len(ids), 1))
	jobs := make(chan string)
	results := make(chan outcome)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for id := range jobs {
				results <- t.trainGuarded(id, groups[id])
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, id := range ids {
			select {
			case jobs <- id:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	for o := range results {
		switch {
		case o.skip == SkipInsufficientData:
			res.Summary.Skipped++
			t.Logger.Debugf("[Trainer] %s: skipped, %v", o.id, o.err)
			t.Recorder.IndividualSkipped(o.id, o.skip)
		case o.err != nil:
			res.Summary.Failed++
			t.Logger.Warnf("[Trainer] %s: training failed: %v", o.id, o.err)
			t.Recorder.IndividualSkipped(o.id, SkipFitError)
		default:
			res.Summary.Trained++
			res.Models[o.id] = o.pair
			res.Registry.Put(o.rec)
			res.Holdouts[o.id] = o.holdout
		}
	}
	res.Summary.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("training interrupted: %w", err)
	}
	t.Logger.Infof("[Trainer] %d individuals: %d trained, %d skipped, %d failed in %s",
		res.Summary.Individuals, res.Summary.Trained, res.Summary.Skipped, res.Summary.Failed,
		res.Summary.Duration.Round(time.Millisecond))
	return res, nil
}

// trainGuarded runs TrainIndividual and turns a panic into an error.
func (t *Trainer) trainGuarded(id string, examples []telemetry.Example) (o outcome) {
	o.id = id
	defer func() {
		if r := recover(); r != nil {
			o.err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	began := time.Now()
	pair, rec, holdout, err := t.TrainIndividual(id, examples)
	if errors.Is(err, ErrInsufficientData) {
		o.skip = SkipInsufficientData
	}
	if err != nil {
		o.err = err
		return o
	}
	o.pair, o.rec, o.holdout = pair, rec, holdout
	t.Recorder.IndividualTrained(id, time.Since(began), rec.PositionKm, rec.TempC, rec.Chl)
	t.Logger.Debugw("[Trainer] trained", map[string]any{
		"id":          id,
		"train":       rec.TrainSize,
		"test":        rec.TestSize,
		"position_km": rec.PositionKm,
		"temp_c":      rec.TempC,
		"chl":         rec.Chl,
	})
	return o
}

// TrainIndividual fits and evaluates the model pair of one individual. The
// examples are sorted by time; the leading TrainFraction share trains both
// models and the remainder is held out.
func (t *Trainer) TrainIndividual(id string, examples []telemetry.Example) (ModelPair, ErrorRecord, Holdout, error) {
	n := len(examples)
	if n < t.Config.MinExamples {
		return ModelPair{}, ErrorRecord{}, Holdout{}, fmt.Errorf("%w: %d < %d", ErrInsufficientData, n, t.Config.MinExamples)
	}
	sorted := make([]telemetry.Example, n)
	copy(sorted, examples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	split := SplitIndex(n, t.Config.TrainFraction)
	if split == 0 || split == n {
		return ModelPair{}, ErrorRecord{}, Holdout{}, fmt.Errorf("%w: split %d of %d leaves an empty side", ErrInsufficientData, split, n)
	}
	train, test := sorted[:split], sorted[split:]

	newModel := t.NewModel
	if newModel == nil {
		newModel = NewForestModel
	}
	movement, err := newModel(telemetry.MovementView, t.Config)
	if err != nil {
		return ModelPair{}, ErrorRecord{}, Holdout{}, fmt.Errorf("create movement model: %w", err)
	}
	if err := movement.Fit(telemetry.NewExampleSet(train, telemetry.MovementView)); err != nil {
		return ModelPair{}, ErrorRecord{}, Holdout{}, fmt.Errorf("fit movement model: %w", err)
	}
	environment, err := newModel(telemetry.EnvironmentView, t.Config)
	if err != nil {
		return ModelPair{}, ErrorRecord{}, Holdout{}, fmt.Errorf("create environment model: %w", err)
	}
	if err := environment.Fit(telemetry.NewExampleSet(train, telemetry.EnvironmentView)); err != nil {
		return ModelPair{}, ErrorRecord{}, Holdout{}, fmt.Errorf("fit environment model: %w", err)
	}

	pair := ModelPair{Movement: movement, Environment: environment}
	rec, holdout, err := Evaluate(pair, test)
	if err != nil {
		return ModelPair{}, ErrorRecord{}, Holdout{}, fmt.Errorf("evaluate: %w", err)
	}
	rec.ID = id
	rec.TrainSize = len(train)
	holdout.ID = id
	return pair, rec, holdout, nil
}

// Evaluate scores pair on held-out examples. The environment model is fed
// the true next position, so its error is independent of the movement error.
func Evaluate(pair ModelPair, test []telemetry.Example) (ErrorRecord, Holdout, error) {
	if len(test) == 0 {
		return ErrorRecord{}, Holdout{}, errors.New("no held-out examples")
	}
	movePred, err := pair.Movement.PredictBatch(inputs(test, telemetry.MovementView))
	if err != nil {
		return ErrorRecord{}, Holdout{}, fmt.Errorf("movement predict: %w", err)
	}
	envPred, err := pair.Environment.PredictBatch(inputs(test, telemetry.EnvironmentView))
	if err != nil {
		return ErrorRecord{}, Holdout{}, fmt.Errorf("environment predict: %w", err)
	}
	if len(movePred) != len(test) || len(envPred) != len(test) {
		return ErrorRecord{}, Holdout{}, fmt.Errorf("got %d/%d predictions for %d examples", len(movePred), len(envPred), len(test))
	}

	dist := make([]float64, len(test))
	sstErr := make([]float64, len(test))
	chlErr := make([]float64, len(test))
	points := make([]HoldoutPoint, len(test))
	for i, ex := range test {
		if len(movePred[i]) != 2 || len(envPred[i]) != 2 {
			return ErrorRecord{}, Holdout{}, fmt.Errorf("prediction %d has the wrong width", i)
		}
		dist[i] = PositionErrorKm(movePred[i], ex.MovementLabels())
		sstErr[i] = math.Abs(envPred[i][0] - ex.SSTNext)
		chlErr[i] = math.Abs(envPred[i][1] - ex.ChlNext)
		points[i] = HoldoutPoint{
			Time:    ex.Time.Add(telemetry.Step),
			Lat:     ex.LatNext,
			Lon:     ex.LonNext,
			PredLat: movePred[i][0],
			PredLon: movePred[i][1],
			SST:     ex.SSTNext,
			PredSST: envPred[i][0],
			Chl:     ex.ChlNext,
			PredChl: envPred[i][1],
		}
	}
	rec := ErrorRecord{
		PositionKm: stat.Mean(dist, nil),
		TempC:      stat.Mean(sstErr, nil),
		Chl:        stat.Mean(chlErr, nil),
		TestSize:   len(test),
	}
	return rec, Holdout{Points: points}, nil
}

// PositionErrorKm is the Euclidean distance between two (lat, lon) pairs in
// degree space, times KmPerDegree. Longitude is not scaled by latitude.
func PositionErrorKm(pred, truth []float64) float64 {
	return floats.Distance(pred, truth, 2) * KmPerDegree
}
