package batch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts batch outcomes on a private registry so each run can be
// written out as a node_exporter textfile.
type Metrics struct {
	Registry *prometheus.Registry

	files    *prometheus.CounterVec
	removed  prometheus.Counter
	passes   prometheus.Counter
	duration prometheus.Histogram
	fraction prometheus.Histogram
}

// NewMetrics registers the batch collectors on a new registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "multiplicity",
			Subsystem: "batch",
			Name:      "files_total",
			Help:      "Files processed, by outcome",
		}, []string{"status"}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "multiplicity",
			Subsystem: "batch",
			Name:      "spikes_removed_total",
			Help:      "Spike samples removed by cleaning",
		}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "multiplicity",
			Subsystem: "batch",
			Name:      "cleaning_passes_total",
			Help:      "Cleaning passes that removed at least one spike",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "multiplicity",
			Subsystem: "batch",
			Name:      "file_duration_seconds",
			Help:      "Time to load, extract and clean one file",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		fraction: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "multiplicity",
			Subsystem: "batch",
			Name:      "removed_fraction",
			Help:      "Fraction of samples removed per extracted file",
			Buckets:   []float64{0, 0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25},
		}),
	}
	m.Registry.MustRegister(m.files, m.removed, m.passes, m.duration, m.fraction)
	return m
}

// Observe records one file result.
func (m *Metrics) Observe(fr FileResult, took time.Duration) {
	m.files.WithLabelValues(string(fr.Status)).Inc()
	m.duration.Observe(took.Seconds())
	if fr.Status != StatusOK {
		return
	}
	m.removed.Add(float64(fr.Removed()))
	m.passes.Add(float64(len(fr.Result.Passes)))
	m.fraction.Observe(fr.RemovedFraction())
}

// WriteTextfile writes the registry in the Prometheus text format to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
