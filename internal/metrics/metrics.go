package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Entities run through the choice pipeline, by model and outcome
	EntitiesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locchoice_entities_processed_total",
			Help: "Entities processed by the choice pipeline",
		},
		[]string{"model", "outcome"},
	)

	// Sampled zones with no positive-size unit that fell back to the entity origin
	DegenerateFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locchoice_degenerate_fallbacks_total",
			Help: "Draws that landed in a zone without positive size and used the fallback unit",
		},
		[]string{"purpose"},
	)

	// Unit distributions whose last cumulative value missed 1.0
	DriftWarnings = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locchoice_cumulative_drift_total",
		Help: "Zone unit distributions outside the cumulative tolerance",
	})

	// Wall time of a full batch
	BatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "locchoice_batch_duration_seconds",
		Help:    "Duration of a simulation batch",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"model"})
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			EntitiesProcessed,
			DegenerateFallbacks,
			DriftWarnings,
			BatchDuration,
		)
	})
}
