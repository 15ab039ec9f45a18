// Package metrics provides observability for the record store.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks append outcomes and backend health per collection.
type Metrics struct {
	// Records committed, by collection
	RecordsAppended *prometheus.CounterVec

	// Append failures by collection and reason ("load", "conflict", "write")
	AppendFailures *prometheus.CounterVec

	// Loads that could not produce the collection state
	LoadFailures *prometheus.CounterVec

	// Full append cycle latency including load and conditional write
	AppendDuration *prometheus.HistogramVec
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all record store metrics on the given registerer.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "evalvault_records_appended_total",
			Help: "Total records durably committed by collection",
		}, []string{"collection"}),

		AppendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "evalvault_append_failures_total",
			Help: "Total append attempts that did not commit, by collection and reason",
		}, []string{"collection", "reason"}),

		LoadFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "evalvault_load_failures_total",
			Help: "Total collection loads that failed (never substituted with empty state)",
		}, []string{"collection"}),

		AppendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evalvault_append_duration_seconds",
			Help:    "Duration of full append cycles including load and conditional write",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"collection"}),
	}
}

// IncrementAppended records a committed record.
func (m *Metrics) IncrementAppended(collection string) {
	if m != nil {
		m.RecordsAppended.WithLabelValues(collection).Inc()
	}
}

// IncrementAppendFailure records a failed append attempt.
func (m *Metrics) IncrementAppendFailure(collection, reason string) {
	if m != nil {
		m.AppendFailures.WithLabelValues(collection, reason).Inc()
	}
}

// IncrementLoadFailure records a collection load that could not complete.
func (m *Metrics) IncrementLoadFailure(collection string) {
	if m != nil {
		m.LoadFailures.WithLabelValues(collection).Inc()
	}
}

// ObserveAppend records the duration of one append cycle.
// Call with time.Now() captured at the start of the append.
func (m *Metrics) ObserveAppend(collection string, start time.Time) {
	if m != nil {
		m.AppendDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())
	}
}
