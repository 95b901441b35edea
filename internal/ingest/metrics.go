package ingest

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	rowsTotal *prometheus.CounterVec
	runsTotal *prometheus.CounterVec

	runDuration      *prometheus.HistogramVec
	subBatchDuration *prometheus.HistogramVec

	activeRuns prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "rows_total",
			Help:      "Rows handled by import runs, by outcome.",
		}, []string{"kind", "outcome"}),
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "runs_total",
			Help:      "Import runs, by final status.",
		}, []string{"kind", "status"}),
		runDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ingest",
			Name:      "run_duration_seconds",
			Help:      "Wall time of import runs.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"kind"}),
		subBatchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ingest",
			Name:      "sub_batch_duration_seconds",
			Help:      "Wall time of one concurrent sub-batch of writes.",
			Buckets: []float64{
				0.005, 0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5,
			},
		}, []string{"kind"}),
		activeRuns: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "ingest",
			Name:      "active_runs",
			Help:      "Import runs currently executing.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

// Row outcome labels.
const (
	outcomeCreated   = "created"
	outcomeUpdated   = "updated"
	outcomeError     = "error"
	outcomeWarning   = "warning"
	outcomeDuplicate = "duplicate"
)

// Run status labels.
const (
	statusOK          = "ok"
	statusPartial     = "partial"
	statusStructural  = "structural"
	statusPersistence = "persistence"
	statusCancelled   = "cancelled"
)

func runStatus(report *Report, err error) string {
	switch {
	case IsStructural(err):
		return statusStructural
	case IsPersistence(err):
		return statusPersistence
	case err != nil || (report != nil && report.Cancelled):
		return statusCancelled
	case report != nil && report.HasIssues():
		return statusPartial
	default:
		return statusOK
	}
}
