package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the series engine's operational counters.
type Metrics struct {
	QueryDuration       *prometheus.HistogramVec
	DatasetMerges       *prometheus.CounterVec
	ReferenceExpansions prometheus.Counter
	DegradedOutputs     prometheus.Counter
}

// MergeOutcome labels for DatasetMerges.
const (
	MergeCreated   = "created"
	MergeUpdated   = "updated"
	MergeUnchanged = "unchanged"
)

// New registers the series metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sensorweb_series_query_duration_seconds",
			Help:    "Duration of series data query operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		DatasetMerges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sensorweb_dataset_merges_total",
			Help: "Dataset metadata merge outcomes",
		}, []string{"outcome"}),
		ReferenceExpansions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sensorweb_reference_expansions_total",
			Help: "Reference series expanded to window boundaries",
		}),
		DegradedOutputs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sensorweb_degraded_expanded_outputs_total",
			Help: "Expanded dataset outputs degraded due to assembler lookup failures",
		}),
	}
}

// ObserveQuery records one query operation's duration.
func (m *Metrics) ObserveQuery(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(operation).Observe(seconds)
}

// CountMerge records one merge outcome.
func (m *Metrics) CountMerge(outcome string) {
	if m == nil {
		return
	}
	m.DatasetMerges.WithLabelValues(outcome).Inc()
}

// CountExpansion records one reference-series boundary expansion.
func (m *Metrics) CountExpansion() {
	if m == nil {
		return
	}
	m.ReferenceExpansions.Inc()
}

// CountDegraded records one degraded expanded output.
func (m *Metrics) CountDegraded() {
	if m == nil {
		return
	}
	m.DegradedOutputs.Inc()
}
