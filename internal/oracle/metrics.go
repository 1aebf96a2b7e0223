package oracle

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the worker loop's Prometheus counters.
type Metrics struct {
	Sweeps        prometheus.Counter
	BoxesScanned  prometheus.Counter
	JobsCompleted prometheus.Counter
	ScanErrors    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "textoracle_worker_sweeps_total",
			Help: "Scan cycles run by the worker oracle loop.",
		}),
		BoxesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "textoracle_worker_boxes_scanned_total",
			Help: "Boxes read during scan cycles.",
		}),
		JobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "textoracle_worker_jobs_completed_total",
			Help: "Jobs classified and written back through the contract.",
		}),
		ScanErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "textoracle_worker_scan_errors_total",
			Help: "Per-job failures skipped during scan cycles.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Sweeps, m.BoxesScanned, m.JobsCompleted, m.ScanErrors)
	}
	return m
}
