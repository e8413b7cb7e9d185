// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/dlking/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	running   atomic.Bool
	retention atomic.Int64
}

func (s *fakeSweeper) Run(ctx context.Context) error {
	s.running.Store(true)
	<-ctx.Done()
	s.running.Store(false)
	return nil
}

func (s *fakeSweeper) SetRetention(d time.Duration) { s.retention.Store(int64(d)) }

func TestAppRequiresManager(t *testing.T) {
	app := NewApp(zerolog.Nop(), nil, nil, nil)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)
}

func TestAppRunsSubsystemsUntilCancelled(t *testing.T) {
	m, err := newManager(config.DefaultServerConfig(), testDeps())
	require.NoError(t, err)
	sw := &fakeSweeper{}

	app := NewApp(zerolog.Nop(), m, nil, sw)
	app.reloadSignal = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	<-m.ready
	require.Eventually(t, sw.running.Load, time.Second, 10*time.Millisecond)
	assert.Equal(t, "api", get(t, m.apiAddr))

	cancel()
	require.NoError(t, <-done)
	assert.False(t, sw.running.Load())
}

func TestAppAppliesReloadedConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("dataDir: "+dir+"\n"), 0o600))

	loader := config.NewLoader(cfgPath, "test")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := config.NewHolder(initial, loader)

	m, err := newManager(config.DefaultServerConfig(), testDeps())
	require.NoError(t, err)
	sw := &fakeSweeper{}

	app := NewApp(zerolog.Nop(), m, holder, sw)
	app.reloadSignal = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	<-m.ready

	require.NoError(t, os.WriteFile(cfgPath, []byte("dataDir: "+dir+"\nsweep:\n  retention: 45m\n"), 0o600))
	require.NoError(t, holder.Reload(ctx))

	require.Eventually(t, func() bool {
		return time.Duration(sw.retention.Load()) == 45*time.Minute
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
