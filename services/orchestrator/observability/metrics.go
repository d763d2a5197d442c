// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the orchestrator.
//
// # Description
//
// This package implements Prometheus metrics for monitoring message turn
// processing. Metrics include:
//   - Turn counters (by status)
//   - Turn latency histograms
//   - History compaction counters
//   - Identifier allocation outcomes (collision retries, random fallbacks)
//   - Completion backend failures
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "lawbot"

// Subsystem for turn processing metrics
const turnsSubsystem = "turns"

// TurnMetrics holds all Prometheus metrics for message turn processing.
//
// Initialize once at startup via InitMetrics(). All methods are nil-safe so
// tests can run services without a metrics instance.
type TurnMetrics struct {
	// TurnsTotal counts processed turns by outcome.
	// Labels: status (success, completion_error, persistence_error)
	TurnsTotal *prometheus.CounterVec

	// TurnDurationSeconds measures end-to-end turn processing latency.
	TurnDurationSeconds prometheus.Histogram

	// CompactionsTotal counts turns whose history exceeded the recency
	// window and was compacted before completion.
	CompactionsTotal prometheus.Counter

	// AllocationRetriesTotal counts identifier collision retries.
	AllocationRetriesTotal prometheus.Counter

	// AllocationFallbacksTotal counts random fallback identifiers issued
	// after title generation failed or retries were exhausted.
	AllocationFallbacksTotal prometheus.Counter

	// CompletionFailuresTotal counts completion backend failures.
	CompletionFailuresTotal prometheus.Counter
}

// Turn outcome labels for TurnsTotal.
const (
	StatusSuccess          = "success"
	StatusCompletionError  = "completion_error"
	StatusPersistenceError = "persistence_error"
)

// DefaultMetrics is the singleton instance of TurnMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *TurnMetrics

// InitMetrics creates and registers all Prometheus metrics on the default
// registry. Call once at application startup; a second call panics on
// duplicate registration.
func InitMetrics() *TurnMetrics {
	DefaultMetrics = NewTurnMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewTurnMetrics creates all turn metrics registered against reg. Tests use
// this with an isolated registry.
func NewTurnMetrics(reg prometheus.Registerer) *TurnMetrics {
	factory := promauto.With(reg)

	return &TurnMetrics{
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: turnsSubsystem,
				Name:      "processed_total",
				Help:      "Total number of processed message turns by status",
			},
			[]string{"status"},
		),

		TurnDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: turnsSubsystem,
				Name:      "duration_seconds",
				Help:      "End-to-end message turn processing latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
		),

		CompactionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: turnsSubsystem,
				Name:      "history_compactions_total",
				Help:      "Total turns whose history was compacted before completion",
			},
		),

		AllocationRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: turnsSubsystem,
				Name:      "allocation_retries_total",
				Help:      "Total conversation identifier collision retries",
			},
		),

		AllocationFallbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: turnsSubsystem,
				Name:      "allocation_fallbacks_total",
				Help:      "Total random fallback conversation identifiers issued",
			},
		),

		CompletionFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: turnsSubsystem,
				Name:      "completion_failures_total",
				Help:      "Total completion backend failures",
			},
		),
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordTurn records a completed turn with its outcome and latency.
func (m *TurnMetrics) RecordTurn(status string, seconds float64) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(status).Inc()
	m.TurnDurationSeconds.Observe(seconds)
}

// RecordCompaction records that a turn's history was compacted.
func (m *TurnMetrics) RecordCompaction() {
	if m == nil {
		return
	}
	m.CompactionsTotal.Inc()
}

// RecordAllocationRetry records one identifier collision retry.
func (m *TurnMetrics) RecordAllocationRetry() {
	if m == nil {
		return
	}
	m.AllocationRetriesTotal.Inc()
}

// RecordAllocationFallback records one random fallback identifier.
func (m *TurnMetrics) RecordAllocationFallback() {
	if m == nil {
		return
	}
	m.AllocationFallbacksTotal.Inc()
}

// RecordCompletionFailure records a completion backend failure.
func (m *TurnMetrics) RecordCompletionFailure() {
	if m == nil {
		return
	}
	m.CompletionFailuresTotal.Inc()
}
