// Package metrics provides Prometheus instrumentation for a generation run.
//
// Every run gets its own registry. The pipeline updates the metrics while
// it runs; at the end they can be exported in the node_exporter textfile
// format so a batch job's results are picked up by an existing collector.
//
// Metrics exposed:
//   - telemetrygen_records_total: Counter of records written by partition
//   - telemetrygen_row_groups_total: Counter of row groups written by partition
//   - telemetrygen_row_group_write_seconds: Histogram of row-group write latency
//   - telemetrygen_queue_batches: Gauge of sealed batches waiting for the writer
//   - telemetrygen_queue_blocked_total: Counter of generator pushes that blocked
//   - telemetrygen_backpressure_level: Gauge of the current backpressure level
//   - telemetrygen_run_seconds: Gauge of wall-clock run duration
//   - telemetrygen_errors_total: Counter of failed runs by class
//
// All metrics carry the launch_id label.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of a run.
type Metrics struct {
	registry    *prometheus.Registry
	lastBlocked int64

	RecordsTotal         *prometheus.CounterVec
	RowGroupsTotal       *prometheus.CounterVec
	RowGroupWriteSeconds prometheus.Histogram
	QueueBatches         prometheus.Gauge
	QueueBlockedTotal    prometheus.Counter
	BackpressureLevel    prometheus.Gauge
	RunSeconds           prometheus.Gauge
	ErrorsTotal          *prometheus.CounterVec
}

// AllPartitions labels records of a run without partitioning.
const AllPartitions = "all"

func partitionLabel(p string) string {
	if p == "" {
		return AllPartitions
	}
	return p
}

// New creates all metrics on a fresh registry.
func New(launchID string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"launch_id": launchID}

	return &Metrics{
		registry: reg,

		RecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "telemetrygen_records_total",
			Help:        "Records written to output files",
			ConstLabels: labels,
		}, []string{"partition"}),

		RowGroupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "telemetrygen_row_groups_total",
			Help:        "Row groups written to output files",
			ConstLabels: labels,
		}, []string{"partition"}),

		RowGroupWriteSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "telemetrygen_row_group_write_seconds",
			Help:        "Time spent encoding and flushing one row group",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),

		QueueBatches: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "telemetrygen_queue_batches",
			Help:        "Sealed batches waiting for the writer",
			ConstLabels: labels,
		}),

		QueueBlockedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "telemetrygen_queue_blocked_total",
			Help:        "Batch pushes that waited for queue capacity",
			ConstLabels: labels,
		}),

		BackpressureLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "telemetrygen_backpressure_level",
			Help:        "Backpressure level (0 normal, 1 warning, 2 critical, 3 saturated)",
			ConstLabels: labels,
		}),

		RunSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "telemetrygen_run_seconds",
			Help:        "Wall-clock duration of the run",
			ConstLabels: labels,
		}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "telemetrygen_errors_total",
			Help:        "Failed runs by error class",
			ConstLabels: labels,
		}, []string{"class"}),
	}
}

// RecordRowGroup records one appended row group.
func (m *Metrics) RecordRowGroup(partition string, records int, seconds float64) {
	label := partitionLabel(partition)
	m.RecordsTotal.WithLabelValues(label).Add(float64(records))
	m.RowGroupsTotal.WithLabelValues(label).Inc()
	m.RowGroupWriteSeconds.Observe(seconds)
}

// SetQueue sets the queue depth and the cumulative blocked push count.
// It is called from a single goroutine.
func (m *Metrics) SetQueue(depth int, blocked int64) {
	m.QueueBatches.Set(float64(depth))
	// Counters only go up; add the delta since the last call.
	if blocked > m.lastBlocked {
		m.QueueBlockedTotal.Add(float64(blocked - m.lastBlocked))
		m.lastBlocked = blocked
	}
}

// SetBackpressureLevel records the current backpressure level.
func (m *Metrics) SetBackpressureLevel(level int) {
	m.BackpressureLevel.Set(float64(level))
}

// SetRunSeconds sets the run duration.
func (m *Metrics) SetRunSeconds(seconds float64) {
	m.RunSeconds.Set(seconds)
}

// RecordError counts a failed run.
func (m *Metrics) RecordError(class string) {
	m.ErrorsTotal.WithLabelValues(class).Inc()
}

// Registry returns the run's registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
