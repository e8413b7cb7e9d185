// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon owns the process lifecycle: HTTP servers, background
// subsystems and ordered shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/dlking/internal/config"
	"github.com/rs/zerolog"
)

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// Manager manages the daemon lifecycle: starting servers, handling shutdown.
type Manager interface {
	// Start starts all configured servers and blocks until shutdown
	Start(ctx context.Context) error

	// Shutdown gracefully shuts down all servers
	Shutdown(ctx context.Context) error

	// RegisterShutdownHook registers a function to be called during shutdown
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type manager struct {
	serverCfg config.ServerConfig
	deps      Deps

	apiServer     *http.Server
	metricsServer *http.Server
	apiAddr       net.Addr
	metricsAddr   net.Addr

	shutdownHooks []namedHook

	started  bool
	stopping bool
	mu       sync.Mutex
	ready    chan struct{}

	logger zerolog.Logger
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager creates a new daemon manager with the given configuration and dependencies.
func NewManager(serverCfg config.ServerConfig, deps Deps) (Manager, error) {
	return newManager(serverCfg, deps)
}

func newManager(serverCfg config.ServerConfig, deps Deps) (*manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	return &manager{
		serverCfg: serverCfg,
		deps:      deps,
		logger:    deps.Logger.With().Str("component", "manager").Logger(),
		ready:     make(chan struct{}),
	}, nil
}

// Start binds all listeners and blocks until ctx is cancelled or a
// server fails. Either way it shuts down before returning.
func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("start context is nil")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrManagerAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("listen", m.deps.ListenAddr).
		Dur("read_timeout", m.serverCfg.ReadTimeout).
		Dur("write_timeout", m.serverCfg.WriteTimeout).
		Dur("shutdown_timeout", m.serverCfg.ShutdownTimeout).
		Msg("starting daemon manager")

	errChan := make(chan error, 2)

	if m.deps.MetricsAddr != "" && m.deps.MetricsHandler != nil {
		if err := m.startMetricsServer(errChan); err != nil {
			m.stopAfterFailure(ctx)
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}
	if err := m.startAPIServer(errChan); err != nil {
		m.stopAfterFailure(ctx)
		return fmt.Errorf("failed to start API server: %w", err)
	}
	close(m.ready)

	select {
	case err := <-errChan:
		m.logger.Error().Err(err).Msg("server error, initiating shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if shutdownErr := m.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("server error and shutdown failure: %w", errors.Join(err, shutdownErr))
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return m.Shutdown(shutdownCtx)
	}
}

func (m *manager) stopAfterFailure(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_ = m.Shutdown(shutdownCtx)
}

// startAPIServer binds synchronously so address errors surface from Start.
func (m *manager) startAPIServer(errChan chan<- error) error {
	ln, err := net.Listen("tcp", m.deps.ListenAddr)
	if err != nil {
		return err
	}
	m.apiAddr = ln.Addr()
	m.apiServer = &http.Server{
		Handler:           m.deps.APIHandler,
		ReadTimeout:       m.serverCfg.ReadTimeout,
		ReadHeaderTimeout: m.serverCfg.ReadTimeout / 2,
		WriteTimeout:      m.serverCfg.WriteTimeout,
		IdleTimeout:       m.serverCfg.IdleTimeout,
		MaxHeaderBytes:    m.serverCfg.MaxHeaderBytes,
	}

	go func() {
		m.logger.Info().Str("addr", m.apiAddr.String()).Msg("API server listening")
		if err := m.apiServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Str("event", "api.server.failed").Msg("API server failed")
			errChan <- fmt.Errorf("API server: %w", err)
		}
	}()
	return nil
}

// startMetricsServer starts the Prometheus metrics HTTP server.
func (m *manager) startMetricsServer(errChan chan<- error) error {
	ln, err := net.Listen("tcp", m.deps.MetricsAddr)
	if err != nil {
		return err
	}
	m.metricsAddr = ln.Addr()
	m.metricsServer = &http.Server{
		Handler:           m.deps.MetricsHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		m.logger.Info().Str("addr", m.metricsAddr.String()).Msg("metrics server listening")
		if err := m.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Str("event", "metrics.server.failed").Msg("metrics server failed")
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()
	return nil
}

func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("shutdown context is nil")
	}

	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	m.mu.Unlock()

	m.logger.Info().Msg("shutting down daemon manager")

	timeout := m.serverCfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultServerConfig().ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	var errs []error

	// In-flight transfers finish before hooks reclaim their artifacts.
	if m.apiServer != nil {
		if err := m.apiServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("API server shutdown: %w", err))
		}
	}
	if m.metricsServer != nil {
		if err := m.metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	m.mu.Lock()
	hooks := append([]namedHook(nil), m.shutdownHooks...)
	m.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		hookStart := time.Now()
		if err := hook.hook(shutdownCtx); err != nil {
			m.logger.Error().
				Err(err).
				Str("hook", hook.name).
				Dur("duration", time.Since(hookStart)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
		} else {
			m.logger.Debug().
				Str("hook", hook.name).
				Dur("duration", time.Since(hookStart)).
				Msg("shutdown hook completed")
		}
	}

	if len(errs) > 0 {
		m.logger.Error().Int("error_count", len(errs)).Msg("shutdown completed with errors")
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	m.logger.Info().Msg("daemon manager stopped cleanly")
	return nil
}

// RegisterShutdownHook registers a cleanup function to be called during shutdown.
// Hooks are executed in reverse registration order (LIFO).
func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
	m.logger.Debug().Str("hook", name).Msg("registered shutdown hook")
}
