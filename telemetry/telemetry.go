package telemetry

import (
	"time"
)

// This package turns raw shark tracking CSVs into supervised examples
// suitable for the per-individual regressors.
//
// Layout and intended usage:
//
// Load / LoadFile
//   - Reads a CSV with id, lat, lon, sst, chlorophyll and datetime columns
//   - Drops rows whose numeric or timestamp fields cannot be parsed
//   - Returns records sorted by individual, then time
//
// ResampleAll
//   - Interpolates each individual's irregular fixes onto a 6 hour grid
//
// BuildExamples
//   - Adds hour/month and the one-step-ahead targets (lat_next, lon_next,
//     sst_next, chl_next)
//
// ExampleSet
//   - Exposes the examples through Len/Example/Batch so the forest trainer can
//     consume them, either as movement inputs or environment inputs.

// Step is the fixed cadence of a resampled series.
const Step = 6 * time.Hour

// Record is one cleaned telemetry observation.
type Record struct {
	ID   string
	Time time.Time
	Lat  float64
	Lon  float64
	SST  float64
	Chl  float64
}

// Series is a single individual's track at a constant Step.
type Series struct {
	ID     string
	Points []Record
}

// Len returns the number of resampled points.
func (s Series) Len() int { return len(s.Points) }

// Example pairs the state at one grid point with the state one Step later.
type Example struct {
	ID    string
	Time  time.Time
	Lat   float64
	Lon   float64
	SST   float64
	Chl   float64
	Hour  int
	Month int

	LatNext float64
	LonNext float64
	SSTNext float64
	ChlNext float64
}

// MovementInputs returns (lat, lon, sst, chl, hour, month).
func (e Example) MovementInputs() []float64 {
	return []float64{e.Lat, e.Lon, e.SST, e.Chl, float64(e.Hour), float64(e.Month)}
}

// MovementLabels returns (lat_next, lon_next).
func (e Example) MovementLabels() []float64 {
	return []float64{e.LatNext, e.LonNext}
}

// EnvironmentInputs returns (lat_next, lon_next, hour, month).
func (e Example) EnvironmentInputs() []float64 {
	return []float64{e.LatNext, e.LonNext, float64(e.Hour), float64(e.Month)}
}

// EnvironmentLabels returns (sst_next, chl_next).
func (e Example) EnvironmentLabels() []float64 {
	return []float64{e.SSTNext, e.ChlNext}
}

// GroupByID splits examples into per-individual slices, keeping the order
// in which each individual first appears and the order of its examples.
func GroupByID(examples []Example) (ids []string, groups map[string][]Example) {
	groups = make(map[string][]Example)
	for _, ex := range examples {
		if _, ok := groups[ex.ID]; !ok {
			ids = append(ids, ex.ID)
		}
		groups[ex.ID] = append(groups[ex.ID], ex)
	}
	return ids, groups
}
