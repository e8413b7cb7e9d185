// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics provides Prometheus metrics for the download pipeline.
// Labels are bounded enums only; no URLs, tokens or request IDs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolInvocationsTotal counts external tool runs by mode and outcome.
	ToolInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlking_tool_invocations_total",
		Help: "Total number of external media tool invocations, by mode and outcome.",
	}, []string{"mode", "outcome"})

	// ToolDuration observes wall-clock runtime of tool invocations.
	ToolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dlking_tool_duration_seconds",
		Help:    "Wall-clock duration of external media tool invocations.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"mode"})

	// ToolFailuresTotal counts classified tool failures.
	ToolFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlking_tool_failures_total",
		Help: "Total number of failed tool invocations, by classified reason.",
	}, []string{"reason"})

	// ToolInFlight tracks running child processes.
	ToolInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dlking_tool_in_flight",
		Help: "Current number of running external tool processes.",
	})

	// ProcTerminateTotal counts signals sent while stopping process groups.
	ProcTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlking_proc_terminate_total",
		Help: "Signals sent to child process groups, by signal and result.",
	}, []string{"signal", "result"})

	// ProcWaitTotal counts how terminated children finally exited.
	ProcWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlking_proc_wait_total",
		Help: "Exit observations after termination, by outcome.",
	}, []string{"outcome"})

	// CredentialsStagedTotal counts cookie files written.
	CredentialsStagedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlking_credentials_staged_total",
		Help: "Credential files staged for tool invocations, by result.",
	}, []string{"result"})

	// ArtifactsDeliveredTotal counts streamed artifacts by outcome.
	ArtifactsDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlking_artifacts_delivered_total",
		Help: "Artifact deliveries, by outcome (complete, aborted, read_error, not_found).",
	}, []string{"outcome"})

	// ArtifactBytesTotal counts bytes streamed to callers.
	ArtifactBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dlking_artifact_bytes_total",
		Help: "Total artifact bytes written to callers.",
	})

	// ReclaimTotal counts artifact deletions after delivery, by trigger and result.
	ReclaimTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlking_reclaim_total",
		Help: "Artifact reclaim deletions, by trigger and result.",
	}, []string{"trigger", "result"})

	// SweepRunsTotal counts housekeeping passes.
	SweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dlking_sweep_runs_total",
		Help: "Total number of housekeeping sweep passes.",
	})

	// SweepRemovedTotal counts files deleted by the sweep per directory role.
	SweepRemovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dlking_sweep_removed_total",
		Help: "Files removed by the housekeeping sweep, by directory role.",
	}, []string{"dir"})

	// SweepErrorsTotal counts errors swallowed by the sweep.
	SweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dlking_sweep_errors_total",
		Help: "Errors encountered and ignored by the housekeeping sweep.",
	})
)

// ObserveTool records one finished tool invocation.
func ObserveTool(mode, outcome string, d time.Duration) {
	ToolInvocationsTotal.WithLabelValues(mode, outcome).Inc()
	ToolDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// IncToolFailure records a classified tool failure.
func IncToolFailure(reason string) {
	ToolFailuresTotal.WithLabelValues(reason).Inc()
}

// IncProcTerminate records a signal delivery attempt.
func IncProcTerminate(signal, result string) {
	ProcTerminateTotal.WithLabelValues(signal, result).Inc()
}

// IncProcWait records the exit observed after termination.
func IncProcWait(outcome string) {
	ProcWaitTotal.WithLabelValues(outcome).Inc()
}

// IncCredentialsStaged records a staging attempt.
func IncCredentialsStaged(result string) {
	CredentialsStagedTotal.WithLabelValues(result).Inc()
}

// RecordDelivery records a finished artifact transfer.
func RecordDelivery(outcome string, bytes int64) {
	ArtifactsDeliveredTotal.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		ArtifactBytesTotal.Add(float64(bytes))
	}
}

// IncReclaim records a reclaim deletion.
func IncReclaim(trigger, result string) {
	ReclaimTotal.WithLabelValues(trigger, result).Inc()
}

// RecordSweep records one housekeeping pass.
func RecordSweep(removed map[string]int, errs int) {
	SweepRunsTotal.Inc()
	for dir, n := range removed {
		SweepRemovedTotal.WithLabelValues(dir).Add(float64(n))
	}
	if errs > 0 {
		SweepErrorsTotal.Add(float64(errs))
	}
}
