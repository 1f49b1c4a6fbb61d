// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus instrumentation for the intake service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IncrementOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_increment_outcomes_total",
		Help: "Total completion increment calls by script outcome",
	}, []string{"outcome"})

	FinalizationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intake_finalizations_total",
		Help: "Total sessions finalized (all expected slots processed)",
	})

	StoreRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_store_retries_total",
		Help: "Total retried key-value store operations by operation name",
	}, []string{"op"})

	StoreFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_store_failures_total",
		Help: "Total key-value store operations that exhausted their retries",
	}, []string{"op"})

	EventAppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_event_appends_total",
		Help: "Total task lifecycle events appended to the pipeline log",
	}, []string{"state"})
)

// IncIncrementOutcome records one completion increment call by outcome code.
func IncIncrementOutcome(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	IncrementOutcomesTotal.WithLabelValues(outcome).Inc()
}

// IncStoreRetry records one retried store operation.
func IncStoreRetry(op string) {
	if op == "" {
		op = "unknown"
	}
	StoreRetriesTotal.WithLabelValues(op).Inc()
}

// IncStoreFailure records one store operation that failed after all retries.
func IncStoreFailure(op string) {
	if op == "" {
		op = "unknown"
	}
	StoreFailuresTotal.WithLabelValues(op).Inc()
}

// IncEventAppend records one task event appended to the pipeline log.
func IncEventAppend(state string) {
	if state == "" {
		state = "unknown"
	}
	EventAppendsTotal.WithLabelValues(state).Inc()
}
