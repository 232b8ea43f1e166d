package simulation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/guimove/capsim/internal/model"
)

// Metrics records batch progress on a dedicated Prometheus registry. A nil
// *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	trials   *prometheus.CounterVec
	duration prometheus.Histogram
	nodes    prometheus.Histogram
	overflow *prometheus.HistogramVec
	partial  prometheus.Gauge
}

// NewMetrics creates and registers the simulation collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		trials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "capsim",
			Name:      "trials_total",
			Help:      "Trials run, by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "capsim",
			Name:      "trial_duration_seconds",
			Help:      "Wall-clock time of one packing trial.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		nodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "capsim",
			Name:      "trial_nodes",
			Help:      "Nodes used by one packing trial.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		}),
		overflow: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "capsim",
			Name:      "trial_overflow_nodes",
			Help:      "Nodes over capacity at the end of one trial, by resource.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 200, 500},
		}, []string{"resource"}),
		partial: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "capsim",
			Name:      "batch_partial",
			Help:      "1 when the last batch stopped at its deadline before all trials ran.",
		}),
	}
	m.Registry.MustRegister(m.trials, m.duration, m.nodes, m.overflow, m.partial)
	return m
}

func (m *Metrics) observeTrial(out model.TrialOutcome, d time.Duration) {
	if m == nil {
		return
	}
	m.trials.WithLabelValues("completed").Inc()
	m.duration.Observe(d.Seconds())
	m.nodes.Observe(float64(out.NodeCount))
	m.overflow.WithLabelValues("memory").Observe(float64(out.OverflowMemCount))
	m.overflow.WithLabelValues("cpu").Observe(float64(out.OverflowCPUCount))
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}
	m.trials.WithLabelValues("failed").Inc()
}

func (m *Metrics) setPartial(partial bool) {
	if m == nil {
		return
	}
	if partial {
		m.partial.Set(1)
	} else {
		m.partial.Set(0)
	}
}

// WriteTextfile writes the registry in the text exposition format, suitable
// for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
