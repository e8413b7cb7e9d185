// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fetcher supervises invocations of the external media tool.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/ManuGH/dlking/internal/log"
	"github.com/ManuGH/dlking/internal/metrics"
	"github.com/ManuGH/dlking/internal/procgroup"
	"github.com/ManuGH/dlking/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Mode names the kind of invocation for logs and metrics.
type Mode string

const (
	ModeInfo     Mode = "info"
	ModeDownload Mode = "download"
	ModeQuick    Mode = "quick"
)

// Runner runs the tool once with the given argv tail and budget.
// On success it returns stdout with surrounding whitespace trimmed.
type Runner interface {
	Invoke(ctx context.Context, mode Mode, args []string, budget time.Duration) ([]byte, error)
}

// Config configures an ExecRunner.
type Config struct {
	Bin        string
	PrefixArgs []string
	Dir        string
	KillGrace  time.Duration
	SpawnRate  float64 // spawns per second, 0 = unlimited
	SpawnBurst int
	TailLines  int
}

const (
	defaultTailLines = 64
	// waitDelay bounds how long Wait blocks on stdio held open by orphans.
	waitDelay = 2 * time.Second
)

// ExecRunner launches the tool as a child process without a shell.
type ExecRunner struct {
	bin       string
	prefix    []string
	dir       string
	grace     time.Duration
	tailLines int
	limiter   *rate.Limiter
}

// NewExecRunner creates a runner for cfg.
func NewExecRunner(cfg Config) *ExecRunner {
	r := &ExecRunner{
		bin:       cfg.Bin,
		prefix:    append([]string(nil), cfg.PrefixArgs...),
		dir:       cfg.Dir,
		grace:     cfg.KillGrace,
		tailLines: cfg.TailLines,
	}
	if r.tailLines <= 0 {
		r.tailLines = defaultTailLines
	}
	if cfg.SpawnRate > 0 {
		burst := cfg.SpawnBurst
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.SpawnRate), burst)
	}
	return r
}

// Bin returns the configured executable.
func (r *ExecRunner) Bin() string { return r.bin }

// spawnWaitError classifies a failed limiter wait. The limiter refuses up
// front, without wrapping ctx.Err, when the deadline cannot be met.
func spawnWaitError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("wait for spawn slot: %w", ctx.Err())
	}
	return fmt.Errorf("wait for spawn slot: %v: %w", err, ErrTimeout)
}

// Invoke implements Runner.
func (r *ExecRunner) Invoke(ctx context.Context, mode Mode, args []string, budget time.Duration) ([]byte, error) {
	logger := log.WithComponentFromContext(ctx, "fetcher").With().Str(log.FieldMode, string(mode)).Logger()

	ctx, span := telemetry.Tracer("fetcher").Start(ctx, "tool."+string(mode),
		trace.WithAttributes(telemetry.ToolAttributes(string(mode), r.bin, len(args))...))
	defer span.End()

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			span.SetStatus(codes.Error, "spawn limiter")
			return nil, spawnWaitError(ctx, err)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	argv := make([]string, 0, len(r.prefix)+len(args))
	argv = append(argv, r.prefix...)
	argv = append(argv, args...)

	cmd := exec.Command(r.bin, argv...) // #nosec G204 -- discrete argv tokens, never a shell
	cmd.Dir = r.dir
	cmd.WaitDelay = waitDelay
	procgroup.Set(cmd)

	var stdout bytes.Buffer
	stderr := newStderrSink(r.tailLines, logger)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		metrics.ObserveTool(string(mode), "launch_error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "launch failed")
		logger.Error().Err(err).Str(log.FieldEvent, "tool.launch_failed").Str("bin", r.bin).Msg("failed to start media tool")
		return nil, &LaunchError{Bin: r.bin, Err: err}
	}

	metrics.ToolInFlight.Inc()
	defer metrics.ToolInFlight.Dec()

	logger.Debug().
		Str(log.FieldEvent, "tool.started").
		Int(log.FieldPID, cmd.Process.Pid).
		Dur("budget", budget).
		Msg("media tool started")

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-runCtx.Done():
		_ = procgroup.Terminate(cmd, waitCh, r.grace)
		stderr.Flush()
		elapsed := time.Since(start)

		if ctx.Err() != nil {
			// Caller went away or its own deadline fired first.
			metrics.ObserveTool(string(mode), "cancelled", elapsed)
			span.SetStatus(codes.Error, "cancelled")
			logger.Info().Str(log.FieldEvent, "tool.cancelled").Int64(log.FieldDuration, elapsed.Milliseconds()).
				Msg("media tool cancelled by caller")
			return nil, fmt.Errorf("%s invocation cancelled: %w", mode, ctx.Err())
		}

		metrics.ObserveTool(string(mode), "timeout", elapsed)
		span.SetAttributes(telemetry.ToolResultAttributes("timeout", -1, "")...)
		span.SetStatus(codes.Error, "timeout")
		logger.Warn().
			Str(log.FieldEvent, "tool.timeout").
			Dur("budget", budget).
			Strs("stderr_tail", stderr.Tail(10)).
			Msg("media tool exceeded its budget and was killed")
		return nil, fmt.Errorf("%s after %s: %w", mode, budget, ErrTimeout)
	}

	stderr.Flush()
	elapsed := time.Since(start)

	if waitErr != nil && errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		// Exit was clean; only an orphan kept stdio open.
		waitErr = nil
	}

	if waitErr == nil {
		metrics.ObserveTool(string(mode), "success", elapsed)
		span.SetAttributes(telemetry.ToolResultAttributes("success", 0, "")...)
		logger.Debug().
			Str(log.FieldEvent, "tool.succeeded").
			Int64(log.FieldDuration, elapsed.Milliseconds()).
			Int("stdout_bytes", stdout.Len()).
			Msg("media tool finished")
		return bytes.TrimSpace(stdout.Bytes()), nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	toolErr := Classify(mode, exitCode, stderr.String(), stderr.Tail(r.tailLines))

	metrics.ObserveTool(string(mode), "tool_error", elapsed)
	metrics.IncToolFailure(string(toolErr.Reason))
	span.SetAttributes(telemetry.ToolResultAttributes("tool_error", exitCode, string(toolErr.Reason))...)
	span.SetStatus(codes.Error, string(toolErr.Reason))
	logger.Warn().
		Str(log.FieldEvent, "tool.failed").
		Int(log.FieldExitCode, exitCode).
		Str(log.FieldReason, string(toolErr.Reason)).
		Int64(log.FieldDuration, elapsed.Milliseconds()).
		Strs("stderr_tail", stderr.Tail(10)).
		Msg("media tool exited with failure")
	return nil, toolErr
}
