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

	MatchingCandidatesScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_candidates_scored_total",
			Help: "Salespeople scored across all matching passes",
		},
	)

	MatchingCandidatesExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_candidates_excluded_total",
			Help: "Salespeople excluded before scoring, by reason",
		},
		[]string{"reason"},
	)

	MatchingTopScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_top_score",
			Help:    "Score of the best-ranked salesperson per matching pass",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	MatchingPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "matching_pass_duration_seconds",
			Help: "Duration of a full matching pass including data fetches",
		},
	)

	MatchingAutoAssignDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_auto_assign_decisions_total",
			Help: "Auto-assignment decisions by outcome",
		},
		[]string{"outcome"},
	)
)
