package rpm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	trainingRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tsat_training_runs_total",
			Help: "Total number of parameter searches started.",
		},
	)
	evaluations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tsat_error_function_evaluations_total",
			Help: "Total number of parameter points evaluated.",
		},
	)
	failedEvaluations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tsat_error_function_failures_total",
			Help: "Number of parameter points that produced no classifier.",
		},
	)
	minedPatterns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tsat_mined_patterns_total",
			Help: "Number of representative patterns mined, before refinement.",
		},
	)
	bestError = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsat_best_error",
			Help: "Lowest cross validated error of the current search.",
		},
	)
	testError = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tsat_test_error",
			Help: "Error of the most recent test run.",
		},
	)
	evaluationDurationHist = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:                            "tsat_evaluation_duration_milliseconds_histogram",
			Help:                            "Duration of error function evaluations.",
			Buckets:                         prometheus.ExponentialBuckets(10, 2, 12),
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  10,
			NativeHistogramMinResetDuration: 1 * time.Hour,
		},
	)
)

func init() {
	prometheus.MustRegister(trainingRuns)
	prometheus.MustRegister(evaluations)
	prometheus.MustRegister(failedEvaluations)
	prometheus.MustRegister(minedPatterns)
	prometheus.MustRegister(bestError)
	prometheus.MustRegister(testError)
	prometheus.MustRegister(evaluationDurationHist)
}
