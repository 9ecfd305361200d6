// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nl2sql"

var (
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_runs_total",
		Help:      "Completed pipeline invocations by intent, action and outcome.",
	}, []string{"intent", "action", "outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_ms",
		Help:      "Time spent in each pipeline stage.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"stage"})

	StageFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_fallbacks_total",
		Help:      "Times a stage replaced a failed collaborator call with its deterministic substitute.",
	}, []string{"stage"})

	GuardrailDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guardrail_decisions_total",
		Help:      "Guardrail outcomes: accepted, rejected or skipped (evaluation failed open).",
	}, []string{"decision"})

	GuardrailReasons = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guardrail_reasons_total",
		Help:      "Rejection reasons recorded by the guardrail engine.",
	}, []string{"reason"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern and status code.",
	}, []string{"route", "status"})
)
