// Package observability holds the service-wide Prometheus instruments.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutsIngestedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swim_match",
		Subsystem: "ingest",
		Name:      "workouts_total",
		Help:      "Number of canonical workouts produced per platform.",
	}, []string{"platform"})

	heartRatesIngestedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swim_match",
		Subsystem: "ingest",
		Name:      "heart_rate_samples_total",
		Help:      "Number of heart-rate samples ingested per platform.",
	}, []string{"platform"})

	unidentifiableCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swim_match",
		Subsystem: "ingest",
		Name:      "unidentifiable_workouts_total",
		Help:      "Workouts excluded because no identifier source resolved.",
	}, []string{"platform"})

	streamErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swim_match",
		Subsystem: "ingest",
		Name:      "stream_errors_total",
		Help:      "Recovered per-stream fetch failures per platform.",
	}, []string{"platform", "stream"})

	matchPassCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "swim_match",
		Subsystem: "matching",
		Name:      "passes_total",
		Help:      "Number of matching passes executed.",
	})

	candidatesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "swim_match",
		Subsystem: "matching",
		Name:      "candidates_total",
		Help:      "Number of match candidates emitted across all passes.",
	})

	lastSyncGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "swim_match",
		Subsystem: "ingest",
		Name:      "last_sync_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful anchored fetch per platform.",
	}, []string{"platform"})
)

func init() {
	prometheus.MustRegister(
		workoutsIngestedCounter,
		heartRatesIngestedCounter,
		unidentifiableCounter,
		streamErrorCounter,
		matchPassCounter,
		candidatesCounter,
		lastSyncGauge,
	)
}

// RecordIngestion updates the per-platform ingestion counters and watermark.
func RecordIngestion(platform string, workouts, heartRates int) {
	workoutsIngestedCounter.WithLabelValues(platform).Add(float64(workouts))
	heartRatesIngestedCounter.WithLabelValues(platform).Add(float64(heartRates))
	lastSyncGauge.WithLabelValues(platform).Set(float64(time.Now().Unix()))
}

// RecordUnidentifiableWorkout counts a workout dropped for lacking an id.
// Debug visibility only; exclusion is a filtering decision, not a failure.
func RecordUnidentifiableWorkout(platform string) {
	unidentifiableCounter.WithLabelValues(platform).Inc()
}

// RecordStreamError counts a recovered per-stream fetch failure.
func RecordStreamError(platform, stream string) {
	streamErrorCounter.WithLabelValues(platform, stream).Inc()
}

// RecordMatchPass counts one matching pass and its emitted candidates.
func RecordMatchPass(candidates int) {
	matchPassCounter.Inc()
	candidatesCounter.Add(float64(candidates))
}
