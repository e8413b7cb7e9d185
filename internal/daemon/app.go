// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/dlking/internal/config"
	"github.com/ManuGH/dlking/internal/log"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Sweeper is the background housekeeping subsystem.
type Sweeper interface {
	Run(ctx context.Context) error
	SetRetention(d time.Duration)
}

// App owns the long-lived runtime (config watching, reload wiring, the
// sweeper) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.Holder
	sweeper      Sweeper
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder and sweeper may be nil.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.Holder, sweeper Sweeper) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		sweeper:      sweeper,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned subsystems and blocks until ctx is cancelled or one
// of them fails.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfgHolder != nil {
		// The watcher is best-effort; a broken watch never stops serving.
		g.Go(func() error {
			if err := a.cfgHolder.Watch(ctx); err != nil {
				a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
			}
			return nil
		})

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.Subscribe(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.apply(cfg)
				}
			}
		})

		if a.reloadSignal != nil {
			g.Go(func() error {
				hupChan := make(chan os.Signal, 1)
				signal.Notify(hupChan, a.reloadSignal)
				defer signal.Stop(hupChan)

				for {
					select {
					case <-ctx.Done():
						return nil
					case <-hupChan:
						a.logger.Info().
							Str(log.FieldEvent, "config.reload_signal").
							Str("signal", a.reloadSignal.String()).
							Msg("received reload signal, reloading config")
						if err := a.cfgHolder.Reload(ctx); err != nil {
							a.logger.Warn().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("config reload failed")
						}
					}
				}
			})
		}
	}

	if a.sweeper != nil {
		g.Go(func() error { return a.sweeper.Run(ctx) })
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// apply pushes the reloadable settings into running components. Listen
// addresses and directories need a restart.
func (a *App) apply(cfg config.AppConfig) {
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		a.logger.Warn().Err(err).Str("level", cfg.LogLevel).Msg("ignoring invalid log level from reload")
	}
	if a.sweeper != nil {
		a.sweeper.SetRetention(cfg.Sweep.Retention)
	}
	a.logger.Info().Str(log.FieldEvent, "config.applied").Msg("reloaded configuration applied")
}
