package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels predictions that returned a result.
	OutcomeSuccess = "success"
	// OutcomeError labels failed predictions (any error kind).
	OutcomeError = "error"
)

var (
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentiment",
			Name:      "predictions_total",
			Help:      "Total predictions issued through the gateway, partitioned by transport mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	predictionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sentiment",
			Name:      "prediction_seconds",
			Help:      "Prediction round-trip latency in seconds.",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	fallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentiment",
			Name:      "transport_fallbacks_total",
			Help:      "Times the gateway retried a request against the fallback route.",
		},
	)

	liveDiscardedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentiment",
			Name:      "live_results_discarded_total",
			Help:      "Live prediction outcomes dropped because a newer request superseded them.",
		},
	)
)

// Register attaches the client collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		predictionsTotal,
		predictionSeconds,
		fallbacksTotal,
		liveDiscardedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObservePrediction records one gateway prediction call.
func ObservePrediction(mode string, duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	predictionsTotal.WithLabelValues(mode, label).Inc()
	if duration < 0 {
		duration = 0
	}
	predictionSeconds.Observe(duration.Seconds())
}

// ObserveFallback records a fallback-route retry.
func ObserveFallback() {
	fallbacksTotal.Inc()
}

// ObserveLiveDiscard records a stale live outcome being dropped.
func ObserveLiveDiscard() {
	liveDiscardedTotal.Inc()
}
