package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline and scanner counters, partitioned by lane or scanner name.

var (
	// Workers
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "missions",
		Subsystem: "worker",
		Name:      "jobs_processed_total",
		Help:      "Jobs handled per lane and outcome",
	}, []string{"lane", "outcome"})

	JobLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "missions",
		Subsystem: "worker",
		Name:      "job_duration_seconds",
		Help:      "Job handler duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"lane"})

	JobsDeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "missions",
		Subsystem: "worker",
		Name:      "jobs_dead_lettered_total",
		Help:      "Jobs archived after exhausting retries or failing fast",
	}, []string{"lane"})

	// Claims
	ClaimTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "missions",
		Subsystem: "claim",
		Name:      "transitions_total",
		Help:      "Claim status transitions applied",
	}, []string{"to"})

	PayoutsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "missions",
		Subsystem: "claim",
		Name:      "payouts_recorded_total",
		Help:      "Payout records written after ledger confirmation",
	}, []string{"kind"})

	// External calls
	MetricsFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "missions",
		Subsystem: "metrics_source",
		Name:      "fetch_errors_total",
		Help:      "Per-content metrics fetch failures",
	}, []string{"source"})

	LedgerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "missions",
		Subsystem: "ledger",
		Name:      "calls_total",
		Help:      "Ledger instructions sent per result (confirmed, already_processed, error)",
	}, []string{"instruction", "result"})

	// Scanners
	ScannerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "missions",
		Subsystem: "scanner",
		Name:      "runs_total",
		Help:      "Scanner runs per outcome",
	}, []string{"scanner", "outcome"})

	ScannerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "missions",
		Subsystem: "scanner",
		Name:      "run_duration_seconds",
		Help:      "Scanner run duration",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"scanner"})
)
