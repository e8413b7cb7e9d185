// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	xglog "github.com/ManuGH/dlking/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 500 * time.Millisecond

// Holder holds configuration with atomic reloading capability.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	logger  zerolog.Logger

	listenMu  sync.RWMutex
	listeners []chan<- AppConfig
}

// NewHolder creates a holder with an initial, already validated config.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current: initial,
		loader:  loader,
		logger:  xglog.WithComponent("config"),
	}
}

// Get returns the current configuration (thread-safe read).
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload loads and validates configuration again. On failure the previous
// configuration stays active.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str("event", "config.reload_failed").Msg("failed to load new configuration")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	h.logChanges(prev, next)
	h.notify(next)

	h.logger.Info().Str("event", "config.reload_success").Msg("configuration reloaded successfully")
	return nil
}

// Watch reloads the configuration whenever the YAML file changes, until
// ctx is cancelled. Without a config file it returns immediately.
func (h *Holder) Watch(ctx context.Context) error {
	path := h.loader.ConfigPath()
	if path == "" {
		h.logger.Info().Str("event", "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch config file: %w", err)
	}
	h.logger.Info().Str("event", "config.watcher_started").Str("path", path).Msg("watching config file for changes")

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Write and Create cover in-place edits and editors that replace the file.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			h.logger.Debug().Str("event", "config.file_changed").Str("op", event.Op.String()).Msg("config file changed")
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if ctx.Err() != nil {
					return
				}
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().Err(err).Str("event", "config.auto_reload_failed").Msg("automatic config reload failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Subscribe registers a channel that receives every successfully reloaded
// config. Sends never block; a full channel misses the update.
func (h *Holder) Subscribe(ch chan<- AppConfig) {
	h.listenMu.Lock()
	defer h.listenMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notify(cfg AppConfig) {
	h.listenMu.RLock()
	defer h.listenMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().Str("event", "config.listener_skip").Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(prev, next AppConfig) {
	if prev.LogLevel != next.LogLevel {
		h.logger.Info().Str("old", prev.LogLevel).Str("new", next.LogLevel).Msg("config changed: logLevel")
	}
	if prev.Sweep.Retention != next.Sweep.Retention {
		h.logger.Info().Dur("old", prev.Sweep.Retention).Dur("new", next.Sweep.Retention).Msg("config changed: sweep.retention")
	}
	if prev.API.ListenAddr != next.API.ListenAddr {
		h.logger.Warn().Str("old", prev.API.ListenAddr).Str("new", next.API.ListenAddr).
			Msg("config changed: api.listenAddr (requires restart)")
	}
	if prev.Tool.Bin != next.Tool.Bin {
		h.logger.Warn().Str("old", prev.Tool.Bin).Str("new", next.Tool.Bin).
			Msg("config changed: tool.bin (requires restart)")
	}
}
