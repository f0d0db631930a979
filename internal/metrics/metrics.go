package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Contest entries
	EntriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contest_entries_total",
			Help: "Total committed contest entries",
		},
	)
	EntriesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_entries_rejected_total",
			Help: "Total rejected contest entry submissions",
		},
		[]string{"reason"},
	)
	EntriesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contest_entries_failed_total",
			Help: "Total submissions that failed after deduction and were compensated",
		},
	)

	// Ledger compensation
	CompensationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_compensations_total",
			Help: "Total compensating credits issued",
		},
	)
	CompensationsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_compensations_failed_total",
			Help: "Compensating credits that exhausted retries and need manual reconciliation",
		},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(EntriesTotal)
	prometheus.MustRegister(EntriesRejected)
	prometheus.MustRegister(EntriesFailed)
	prometheus.MustRegister(CompensationsTotal)
	prometheus.MustRegister(CompensationsFailed)
	prometheus.MustRegister(WorkerQueueDepth)
}
