package tracker

import (
	"errors"
	"fmt"
	"math"

	"github.com/Noofbiz/sharkcast/metrics"
	"github.com/Noofbiz/sharkcast/telemetry"
)

var (
	// ErrNoModel is returned by Predict when the id has no trained model pair.
	ErrNoModel = errors.New("no trained model for id")
	// ErrInvalidQuery is returned when a query field is out of range.
	ErrInvalidQuery = errors.New("invalid query")
)

// Query is one forecast request. Lat and Lon are the individual's current
// position; Hour and Month are calendar features of the current time.
type Query struct {
	ID    string
	Lat   float64
	Lon   float64
	Hour  int
	Month int
}

// Validate checks field ranges.
func (q Query) Validate() error {
	if math.IsNaN(q.Lat) || math.IsInf(q.Lat, 0) || math.IsNaN(q.Lon) || math.IsInf(q.Lon, 0) {
		return fmt.Errorf("%w: position must be finite", ErrInvalidQuery)
	}
	if q.Hour < 0 || q.Hour > 23 {
		return fmt.Errorf("%w: hour %d not in [0, 23]", ErrInvalidQuery, q.Hour)
	}
	if q.Month < 1 || q.Month > 12 {
		return fmt.Errorf("%w: month %d not in [1, 12]", ErrInvalidQuery, q.Month)
	}
	return nil
}

// Forecast is the 6-hour-ahead prediction for one individual.
type Forecast struct {
	ID      string
	LatNext float64
	LonNext float64
	SSTNext float64
	ChlNext float64

	// ProxySST and ProxyChl are the current-condition values borrowed from
	// the record nearest in latitude to the query.
	ProxySST float64
	ProxyChl float64

	// Errors is nil when no held-out error record exists for the id.
	Errors *ErrorRecord
}

// NearestLatitude returns the index of the point whose latitude is closest to
// lat. Ties go to the earliest point. It returns -1 for an empty slice.
func NearestLatitude(points []telemetry.Record, lat float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, p := range points {
		if d := math.Abs(p.Lat - lat); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Predictor serves forecasts from trained model pairs. It is read-only after
// construction and safe for concurrent use.
type Predictor struct {
	models   map[string]ModelPair
	series   map[string]telemetry.Series
	registry *Registry

	Recorder metrics.Recorder
}

// NewPredictor builds a predictor over models, the resampled series used for
// proxy lookup, and the error registry.
func NewPredictor(models map[string]ModelPair, series []telemetry.Series, registry *Registry) *Predictor {
	bySeries := make(map[string]telemetry.Series, len(series))
	for _, s := range series {
		bySeries[s.ID] = s
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Predictor{
		models:   models,
		series:   bySeries,
		registry: registry,
		Recorder: metrics.NopRecorder{},
	}
}

// Has reports whether id has a model pair.
func (p *Predictor) Has(id string) bool {
	_, ok := p.models[telemetry.NormalizeID(id)]
	return ok
}

// Predict forecasts the next position, then the environment at that
// position. An unknown id fails with ErrNoModel before the query is
// validated. Current SST and chlorophyll are unknown to the caller, so they
// are taken from the individual's resampled record nearest in latitude.
func (p *Predictor) Predict(q Query) (*Forecast, error) {
	id := telemetry.NormalizeID(q.ID)
	pair, ok := p.models[id]
	p.Recorder.PredictionServed(ok)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoModel, id)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s := p.series[id]
	i := NearestLatitude(s.Points, q.Lat)
	if i < 0 {
		return nil, fmt.Errorf("no resampled records for %q", id)
	}
	proxy := s.Points[i]

	move, err := predictOne(pair.Movement, []float64{
		q.Lat, q.Lon, proxy.SST, proxy.Chl, float64(q.Hour), float64(q.Month),
	}, 2)
	if err != nil {
		return nil, fmt.Errorf("movement predict: %w", err)
	}
	env, err := predictOne(pair.Environment, []float64{
		move[0], move[1], float64(q.Hour), float64(q.Month),
	}, 2)
	if err != nil {
		return nil, fmt.Errorf("environment predict: %w", err)
	}

	fc := &Forecast{
		ID:       id,
		LatNext:  move[0],
		LonNext:  move[1],
		SSTNext:  env[0],
		ChlNext:  env[1],
		ProxySST: proxy.SST,
		ProxyChl: proxy.Chl,
	}
	if rec, ok := p.registry.Get(id); ok {
		fc.Errors = &rec
	}
	return fc, nil
}
