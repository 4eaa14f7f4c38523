package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromRecorder exposes pipeline events as Prometheus metrics.
type PromRecorder struct {
	trained     prometheus.Counter
	skipped     *prometheus.CounterVec
	fitDuration prometheus.Histogram
	heldOut     *prometheus.GaugeVec
	predictions *prometheus.CounterVec
}

// register registers c on reg, reusing an already registered collector of the
// same description.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// NewPromRecorder registers the sharkcast collectors on reg. If reg is nil,
// the default registerer is used.
func NewPromRecorder(reg prometheus.Registerer) (*PromRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PromRecorder{}
	var err error
	if r.trained, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sharkcast_individuals_trained_total",
		Help: "Individuals with a trained movement/environment model pair",
	})); err != nil {
		return nil, err
	}
	if r.skipped, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sharkcast_individuals_skipped_total",
		Help: "Individuals left without a model, by reason",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if r.fitDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sharkcast_fit_duration_seconds",
		Help:    "Time to fit and evaluate one individual's model pair",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})); err != nil {
		return nil, err
	}
	if r.heldOut, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sharkcast_heldout_error",
		Help: "Mean held-out error per individual and metric (position_km, temp_c, chl)",
	}, []string{"individual", "metric"})); err != nil {
		return nil, err
	}
	if r.predictions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sharkcast_predictions_total",
		Help: "Forecast requests by whether a model was available",
	}, []string{"found"})); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *PromRecorder) IndividualTrained(id string, took time.Duration, positionKm, tempC, chl float64) {
	r.trained.Inc()
	r.fitDuration.Observe(took.Seconds())
	r.heldOut.WithLabelValues(id, "position_km").Set(positionKm)
	r.heldOut.WithLabelValues(id, "temp_c").Set(tempC)
	r.heldOut.WithLabelValues(id, "chl").Set(chl)
}

func (r *PromRecorder) IndividualSkipped(_ string, reason string) {
	r.skipped.WithLabelValues(reason).Inc()
}

func (r *PromRecorder) PredictionServed(found bool) {
	r.predictions.WithLabelValues(strconv.FormatBool(found)).Inc()
}

// Handler returns an HTTP handler exposing the metrics gathered by g. If g is
// nil, the default gatherer is used.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
