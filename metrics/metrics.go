// Package metrics records training and prediction activity.
package metrics

import "time"

// Recorder receives pipeline events. Implementations must be safe for
// concurrent use because individuals may train on parallel workers.
type Recorder interface {
	// IndividualTrained is called once a model pair and its held-out errors
	// exist for id.
	IndividualTrained(id string, took time.Duration, positionKm, tempC, chl float64)
	// IndividualSkipped is called when an individual gets no model. reason is
	// a short label such as "insufficient_data" or "fit_error".
	IndividualSkipped(id, reason string)
	// PredictionServed counts a forecast request and whether a model existed.
	PredictionServed(found bool)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) IndividualTrained(string, time.Duration, float64, float64, float64) {}
func (NopRecorder) IndividualSkipped(string, string)                                   {}
func (NopRecorder) PredictionServed(bool)                                               {}
