// Package metrics holds the process-wide Prometheus collectors of the curator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineRuns counts pipeline executions by outcome (ok, error).
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newscurator_pipeline_runs_total",
		Help: "Pipeline runs by outcome",
	}, []string{"outcome"})

	// StageDuration tracks how long each pipeline stage takes.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newscurator_stage_duration_seconds",
		Help:    "Pipeline stage duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
	}, []string{"stage"})

	// CuratedArticles counts curation decisions (saved, duplicate, skipped).
	CuratedArticles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newscurator_curated_articles_total",
		Help: "Candidates processed by the curation store, by result",
	}, []string{"result"})

	// SearchFailures counts search collector errors per provider.
	SearchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newscurator_search_failures_total",
		Help: "Search collector failures by provider",
	}, []string{"provider"})

	// CollaboratorFallbacks counts degraded results of AI-backed stages.
	CollaboratorFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newscurator_collaborator_fallbacks_total",
		Help: "Fallbacks taken because a collaborator failed",
	}, []string{"stage"})

	// FetchOutcomes counts full-text fetch results by reason (ok, http, robots, skipped, timeout, ...).
	FetchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newscurator_fetch_outcomes_total",
		Help: "Article fetch outcomes by reason",
	}, []string{"reason"})

	// AffinityUpdates counts topic affinity rows touched by interactions.
	AffinityUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newscurator_affinity_updates_total",
		Help: "Topic affinity updates by interaction type",
	}, []string{"interaction"})
)
