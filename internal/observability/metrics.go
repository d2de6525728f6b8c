// Package observability exposes process-wide Prometheus metrics for the workout log.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapty",
		Subsystem: "store",
		Name:      "workouts",
		Help:      "Number of workouts currently held by the store.",
	})
	mutationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "store",
		Name:      "mutations_total",
		Help:      "Store mutations grouped by operation.",
	}, []string{"op"})
	rejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "store",
		Name:      "rejected_submissions_total",
		Help:      "Form submissions rejected, labeled by reason.",
	}, []string{"reason"})
	slotWriteCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "persistence",
		Name:      "slot_writes_total",
		Help:      "Durable slot writes labeled by driver and result.",
	}, []string{"driver", "result"})
	lastSavedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapty",
		Subsystem: "persistence",
		Name:      "last_saved_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful slot write.",
	})
)

func init() {
	prometheus.MustRegister(workoutsGauge, mutationCounter, rejectedCounter, slotWriteCounter, lastSavedGauge)
}

// SetWorkouts records the current store size.
func SetWorkouts(n int) {
	workoutsGauge.Set(float64(n))
}

// RecordMutation counts a successful store mutation.
func RecordMutation(op string) {
	mutationCounter.WithLabelValues(op).Inc()
}

// RecordRejected counts a rejected user action.
func RecordRejected(reason string) {
	rejectedCounter.WithLabelValues(reason).Inc()
}

// RecordSlotWrite counts a slot write attempt.
func RecordSlotWrite(driver string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	slotWriteCounter.WithLabelValues(driver, result).Inc()
}

// RecordSaved updates the persistence watermark gauge.
func RecordSaved(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSavedGauge.Set(float64(ts.Unix()))
}
