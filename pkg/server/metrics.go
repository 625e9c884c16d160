package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	questionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analyst_questions_total",
			Help: "Total questions received by the ask endpoint",
		},
	)

	questionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analyst_question_failures_total",
			Help: "Questions whose analysis produced no result table",
		},
	)

	questionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analyst_question_duration_seconds",
			Help:    "End-to-end duration of answering a question",
			Buckets: prometheus.DefBuckets,
		},
	)
)
