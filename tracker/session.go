package tracker

import (
	"context"
	"fmt"
	"sort"

	"github.com/Noofbiz/sharkcast/telemetry"
)

// Session is a trained in-memory state: the cleaned records, their 6-hour
// series, the examples built from them, and the models and errors trained on
// those examples. Nothing is persisted.
type Session struct {
	records  []telemetry.Record
	series   map[string]telemetry.Series
	ids      []string
	examples []telemetry.Example
	result   *TrainResult

	predictor *Predictor
}

// NewSession resamples records, builds examples, and trains every individual.
func NewSession(ctx context.Context, records []telemetry.Record, trainer *Trainer) (*Session, error) {
	if trainer == nil {
		return nil, fmt.Errorf("trainer is nil")
	}
	series := telemetry.ResampleAll(records, telemetry.Step)
	examples := telemetry.BuildExamples(series)
	trainer.Logger.Infof("[Session] %d records -> %d series, %d examples", len(records), len(series), len(examples))

	res, err := trainer.Train(ctx, examples)
	if err != nil {
		return nil, err
	}

	s := &Session{
		records:  records,
		series:   make(map[string]telemetry.Series, len(series)),
		examples: examples,
		result:   res,
	}
	for _, ser := range series {
		s.series[ser.ID] = ser
		s.ids = append(s.ids, ser.ID)
	}
	sort.Strings(s.ids)
	s.predictor = NewPredictor(res.Models, series, res.Registry)
	s.predictor.Recorder = trainer.Recorder
	return s, nil
}

// Predictor returns the session's forecaster.
func (s *Session) Predictor() *Predictor { return s.predictor }

// Registry returns the held-out error registry.
func (s *Session) Registry() *Registry { return s.result.Registry }

// Summary returns the training counts.
func (s *Session) Summary() TrainSummary { return s.result.Summary }

// Records returns the cleaned input records sorted by (id, time).
func (s *Session) Records() []telemetry.Record { return s.records }

// Examples returns every training example built from the series.
func (s *Session) Examples() []telemetry.Example { return s.examples }

// IDs returns the sorted ids of every individual with a resampled series,
// trained or not.
func (s *Session) IDs() []string { return s.ids }

// Series returns the resampled series of id.
func (s *Session) Series(id string) (telemetry.Series, bool) {
	ser, ok := s.series[telemetry.NormalizeID(id)]
	return ser, ok
}

// Holdout returns the held-out trace of a trained individual.
func (s *Session) Holdout(id string) (Holdout, bool) {
	h, ok := s.result.Holdouts[telemetry.NormalizeID(id)]
	return h, ok
}
