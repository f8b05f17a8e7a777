/*
Copyright (C) 2026 Millstone Systems

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint, status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forgeplan_api_requests_total",
		Help: "Total HTTP API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forgeplan_api_request_duration_seconds",
		Help:    "HTTP API request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forgeplan_api_active_connections",
		Help: "Number of in-flight HTTP requests.",
	})

	// SlotsCreatedTotal counts schedule slots created, by source.
	SlotsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forgeplan_slots_created_total",
		Help: "Schedule slots created, labelled by placement source.",
	}, []string{"source"})

	// SlotConflictsTotal counts slots written with an advisory conflict flag.
	SlotConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forgeplan_slot_conflicts_total",
		Help: "Slots persisted with an advisory time conflict.",
	})

	// AutoScheduleRunsTotal counts auto-scheduler invocations.
	AutoScheduleRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forgeplan_autoschedule_runs_total",
		Help: "Auto-scheduler runs, labelled by strategy.",
	}, []string{"strategy"})

	// AutoScheduleOperationsTotal counts per-operation outcomes of auto runs.
	AutoScheduleOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forgeplan_autoschedule_operations_total",
		Help: "Operations processed by the auto-scheduler, labelled by outcome.",
	}, []string{"outcome"})

	// ScheduleBuildDuration observes end-to-end duration of batch scheduling calls.
	ScheduleBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forgeplan_schedule_build_duration_seconds",
		Help:    "Duration of bulk/auto scheduling runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
