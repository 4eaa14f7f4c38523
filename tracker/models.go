// Package tracker trains one movement model and one environment model per
// tracked individual, keeps their held-out errors, and serves 6-hour-ahead
// forecasts from them.
package tracker

import (
	"fmt"

	"github.com/Noofbiz/sharkcast/forest"
	"github.com/Noofbiz/sharkcast/mlp"
	"github.com/Noofbiz/sharkcast/telemetry"
)

// Model kinds accepted by Config.Model.
const (
	ModelForest = "forest"
	ModelMLP    = "mlp"
)

// Regressor is the interface shared by the movement and environment models.
type Regressor interface {
	Fit(ds forest.Dataset) error
	PredictBatch(inputs [][]float64) ([][]float64, error)
}

// ModelFactory builds the unfitted regressor for one view of an individual.
type ModelFactory func(view telemetry.View, cfg Config) (Regressor, error)

// NewForestModel builds a random forest with the view's forest settings.
func NewForestModel(view telemetry.View, cfg Config) (Regressor, error) {
	return forest.New(cfg.ForestConfig(view))
}

// NewMLPModel builds a gomlx multilayer perceptron. Both views share
// cfg.MLP.
func NewMLPModel(_ telemetry.View, cfg Config) (Regressor, error) {
	m, err := mlp.New(cfg.MLP)
	if err != nil {
		return nil, err
	}
	return mlpRegressor{m}, nil
}

// mlpRegressor adapts mlp.Model to Regressor.
type mlpRegressor struct{ *mlp.Model }

func (r mlpRegressor) Fit(ds forest.Dataset) error { return r.Model.Fit(ds) }

// FactoryFor returns the ModelFactory for a Config.Model kind.
func FactoryFor(kind string) (ModelFactory, error) {
	switch kind {
	case "", ModelForest:
		return NewForestModel, nil
	case ModelMLP:
		return NewMLPModel, nil
	default:
		return nil, fmt.Errorf("unknown model %q (want %s or %s)", kind, ModelForest, ModelMLP)
	}
}

// ModelPair holds one individual's fitted models. It is created once at
// training time and never modified afterwards.
type ModelPair struct {
	// Movement maps (lat, lon, sst, chl, hour, month) to (lat_next, lon_next).
	Movement Regressor
	// Environment maps (lat_next, lon_next, hour, month) to (sst_next, chl_next).
	Environment Regressor
}

// predictOne runs a single-row prediction and checks the output width.
func predictOne(r Regressor, input []float64, width int) ([]float64, error) {
	out, err := r.PredictBatch([][]float64{input})
	if err != nil {
		return nil, err
	}
	if len(out) != 1 || len(out[0]) != width {
		return nil, fmt.Errorf("regressor returned %d rows, expected 1 row of width %d", len(out), width)
	}
	return out[0], nil
}

func inputs(examples []telemetry.Example, view telemetry.View) [][]float64 {
	out := make([][]float64, len(examples))
	for i, ex := range examples {
		if view == telemetry.EnvironmentView {
			out[i] = ex.EnvironmentInputs()
		} else {
			out[i] = ex.MovementInputs()
		}
	}
	return out
}
