// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	// CacheRequests counts lookups per named cache, result is hit or miss.
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by cache name and result",
		},
		[]string{"cache", "result"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Entries evicted to stay within capacity",
		},
		[]string{"cache"},
	)

	// UpstreamFetchAttempts counts every attempt, outcome is success, retry, blocked or failed.
	UpstreamFetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_fetch_attempts_total",
			Help: "Upstream fetch attempts by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	UpstreamFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_fetch_duration_seconds",
			Help:    "Duration of a full upstream fetch including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"source"},
	)

	PipelineQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_queries_total",
			Help: "Queries answered by intent and language",
		},
		[]string{"intent", "language"},
	)

	GenerationFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_fallbacks_total",
			Help: "Answers served from the static fallback message",
		},
	)
)
