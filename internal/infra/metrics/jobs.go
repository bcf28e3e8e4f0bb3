package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobsProcessedTotal, jobStageDurationMs) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pipeline_jobs_processed_total",
		Help: "Total number of pipeline jobs processed, labeled by kind and status.",
	},
	[]string{"kind", "status"}, // 'completed', 'failed'
)

var jobStageDurationMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_ms",
		Help:    "Duration of individual pipeline stages in milliseconds.",
		Buckets: []float64{100, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
	},
	[]string{"kind", "stage"},
)

func IncJob(kind, status string) {
	jobsProcessedTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func ObserveStage(kind, stage string, ms int64) {
	jobStageDurationMs.WithLabelValues(norm(kind), norm(stage)).Observe(float64(ms))
}
