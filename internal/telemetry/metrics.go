/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry holds every collector of the process. A dedicated registry keeps
// pushgateway pushes free of unrelated default collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// GenerationRunsTotal counts generation runs by result (success, failed, locked).
	GenerationRunsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grimnir_lineup",
		Name:      "generation_runs_total",
		Help:      "Lineup generation runs by result.",
	}, []string{"result"})

	// GenerationDuration observes wall time of a generation run.
	GenerationDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "grimnir_lineup",
		Name:      "generation_duration_seconds",
		Help:      "Duration of lineup generation runs.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	// BoxesCompiled reports the number of top-level boxes in the last compiled lineup.
	BoxesCompiled = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "grimnir_lineup",
		Name:      "boxes_compiled",
		Help:      "Top-level boxes in the most recently compiled lineup.",
	})

	// FloatingResolutionsTotal counts floating box resolutions by action (shift, wrap, none).
	FloatingResolutionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grimnir_lineup",
		Name:      "floating_resolutions_total",
		Help:      "Floating box conflict resolutions by action.",
	}, []string{"action"})

	// JobOperationsTotal counts external job operations (register, cancel, carry) by result.
	JobOperationsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grimnir_lineup",
		Name:      "job_operations_total",
		Help:      "External timed job operations by kind and result.",
	}, []string{"op", "result"})

	// EngineCommandsTotal counts command batches sent to the playback engine.
	EngineCommandsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grimnir_lineup",
		Name:      "engine_commands_total",
		Help:      "Playback engine command batches by result.",
	}, []string{"result"})

	// ClipReportsTotal counts now-playing reports by outcome.
	ClipReportsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grimnir_lineup",
		Name:      "clip_reports_total",
		Help:      "Now-playing reports by synchronization outcome.",
	}, []string{"outcome"})

	// OracleRequestsTotal counts time-of-event lookups by result.
	OracleRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grimnir_lineup",
		Name:      "oracle_requests_total",
		Help:      "Time-of-event oracle requests by result.",
	}, []string{"result"})

	// DatabaseQueryDuration observes gorm operation latency.
	DatabaseQueryDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grimnir_lineup",
		Name:      "database_query_duration_seconds",
		Help:      "Database operation latency by operation and table.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts failed gorm operations.
	DatabaseErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grimnir_lineup",
		Name:      "database_errors_total",
		Help:      "Database operation errors by operation.",
	}, []string{"operation"})
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Push sends the registry to a pushgateway. Batch commands exit before any
// scrape could happen, so they push once at the end instead.
func Push(ctx context.Context, url, job, station string) error {
	if url == "" {
		return nil
	}
	err := push.New(url, job).
		Gatherer(Registry).
		Grouping("station", station).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
