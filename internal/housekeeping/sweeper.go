// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package housekeeping removes stale credential files and artifacts that
// the per-request cleanup missed (crashes, aborted transfers, restarts).
package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ManuGH/dlking/internal/log"
	"github.com/ManuGH/dlking/internal/metrics"
	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Dir is one swept directory. Role labels logs and metrics.
type Dir struct {
	Role string
	Path string
}

// Config defines retention policies.
type Config struct {
	Dirs      []Dir
	Interval  time.Duration
	Retention time.Duration
}

// Report summarises one pass.
type Report struct {
	Scanned int
	Removed map[string]int
	// Err aggregates every failure; the pass itself never aborts.
	Err error
}

// Sweeper deletes regular files older than the retention window.
type Sweeper struct {
	dirs     []Dir
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	mu        sync.RWMutex
	retention time.Duration

	runMu   sync.Mutex
	cron    *cron.Cron
	running bool
}

// New creates a sweeper; it does nothing until Start or SweepOnce.
func New(cfg Config) *Sweeper {
	return &Sweeper{
		dirs:      append([]Dir(nil), cfg.Dirs...),
		interval:  cfg.Interval,
		retention: cfg.Retention,
		now:       time.Now,
		logger:    log.WithComponent("sweeper"),
	}
}

// SetRetention changes the retention window for subsequent passes.
func (s *Sweeper) SetRetention(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.retention = d
	s.mu.Unlock()
}

// Retention returns the active retention window.
func (s *Sweeper) Retention() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retention
}

// SweepOnce runs a single pass over every directory.
func (s *Sweeper) SweepOnce(ctx context.Context) Report {
	cutoff := s.now().Add(-s.Retention())
	rep := Report{Removed: make(map[string]int, len(s.dirs))}
	var errs *multierror.Error

	for _, d := range s.dirs {
		if ctx.Err() != nil {
			errs = multierror.Append(errs, ctx.Err())
			break
		}
		scanned, removed, err := s.sweepDir(ctx, d, cutoff)
		rep.Scanned += scanned
		rep.Removed[d.Role] += removed
		if err != nil {
			errs = multierror.Append(errs, multierror.Prefix(err, fmt.Sprintf("[%s]", d.Role)))
		}
	}

	rep.Err = errs.ErrorOrNil()
	errCount := 0
	if errs != nil {
		errCount = len(errs.Errors)
	}
	metrics.RecordSweep(rep.Removed, errCount)

	evt := s.logger.Debug()
	total := 0
	for _, n := range rep.Removed {
		total += n
	}
	if total > 0 || rep.Err != nil {
		evt = s.logger.Info()
	}
	if rep.Err != nil {
		evt = evt.AnErr("errors", rep.Err)
	}
	evt.Str(log.FieldEvent, "sweep.completed").
		Int("scanned", rep.Scanned).
		Int("removed", total).
		Msg("housekeeping sweep completed")
	return rep
}

func (s *Sweeper) sweepDir(ctx context.Context, d Dir, cutoff time.Time) (scanned, removed int, err error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("read dir %s: %w", d.Path, err)
	}

	var errs *multierror.Error
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if !e.Type().IsRegular() {
			continue
		}
		scanned++
		info, statErr := e.Info()
		if statErr != nil {
			// Removed concurrently by a request's own cleanup.
			if !errors.Is(statErr, fs.ErrNotExist) {
				errs = multierror.Append(errs, statErr)
			}
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(d.Path, e.Name())
		if rmErr := os.Remove(path); rmErr != nil {
			if !errors.Is(rmErr, fs.ErrNotExist) {
				errs = multierror.Append(errs, rmErr)
			}
			continue
		}
		removed++
		s.logger.Debug().
			Str(log.FieldEvent, "sweep.removed").
			Str("dir", d.Role).
			Str(log.FieldFilename, e.Name()).
			Dur("age", s.now().Sub(info.ModTime())).
			Msg("removed stale file")
	}
	return scanned, removed, errs.ErrorOrNil()
}

// Start runs one pass immediately and then schedules a pass every interval.
func (s *Sweeper) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return errors.New("sweeper already started")
	}
	if s.interval <= 0 {
		return fmt.Errorf("invalid sweep interval %s", s.interval)
	}

	s.SweepOnce(ctx)

	c := cron.New(
		cron.WithLogger(cronLogger{s.logger}),
		cron.WithChain(cron.Recover(cronLogger{s.logger}), cron.SkipIfStillRunning(cronLogger{s.logger})),
	)
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() { s.SweepOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	c.Start()
	s.cron = c
	s.running = true

	s.logger.Info().
		Dur("interval", s.interval).
		Dur("retention", s.Retention()).
		Msg("background sweeper started")
	return nil
}

// Stop cancels the schedule and waits for a running pass to finish.
func (s *Sweeper) Stop() {
	s.runMu.Lock()
	c := s.cron
	s.cron = nil
	s.running = false
	s.runMu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info().Msg("background sweeper stopped")
}

// Run starts the sweeper and blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
