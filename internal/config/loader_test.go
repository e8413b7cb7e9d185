// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DLK_DATA_DIR", dir)

	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, "yt-dlp", cfg.Tool.Bin)
	assert.Equal(t, 120*time.Second, cfg.Tool.InfoTimeout)
	assert.Equal(t, 300*time.Second, cfg.Tool.DownloadTimeout)
	assert.Equal(t, 4, cfg.Tool.ConcurrentFragments)
	assert.Equal(t, time.Second, cfg.Delivery.ReclaimDelay)
	assert.Equal(t, 10*time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, 30*time.Minute, cfg.Sweep.Retention)
	assert.Equal(t, ":3001", cfg.API.ListenAddr)
	assert.Equal(t, filepath.Join(dir, "temp"), cfg.Storage.StagingDir)
	assert.Equal(t, filepath.Join(dir, "downloads"), cfg.Storage.DownloadsDir)
}

func TestLoadPrecedenceEnvOverFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
dataDir: `+dir+`
tool:
  bin: python3
  args: ["-m", "yt_dlp"]
  downloadTimeout: 10m
sweep:
  retention: 45m
api:
  listenAddr: ":9000"
`)
	t.Setenv("DLK_LISTEN", ":9100")

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)

	assert.Equal(t, "python3", cfg.Tool.Bin)
	assert.Equal(t, []string{"-m", "yt_dlp"}, cfg.Tool.Args)
	assert.Equal(t, 10*time.Minute, cfg.Tool.DownloadTimeout)
	assert.Equal(t, 45*time.Minute, cfg.Sweep.Retention)
	assert.Equal(t, ":9100", cfg.API.ListenAddr, "env must win over file")
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "dataDir: "+dir+"\nbouquets: [x]\n")

	_, err := NewLoader(path, "test").Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField), "got %v", err)
}

func TestLoadRejectsNonYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", "{}")

	_, err := NewLoader(path, "test").Load()
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "dataDir: "+dir+"\n---\ndataDir: /x\n")

	_, err := NewLoader(path, "test").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DLK_DATA_DIR", dir)
	envPath := writeFile(t, dir, ".env", "DLK_TOOL_BIN=/opt/yt-dlp\n")
	t.Cleanup(func() { _ = os.Unsetenv("DLK_TOOL_BIN") })

	cfg, err := NewLoader("", "test").WithEnvFile(envPath).Load()
	require.NoError(t, err)
	assert.Equal(t, "/opt/yt-dlp", cfg.Tool.Bin)
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("DLK_DATA_DIR", t.TempDir())

	_, err := NewLoader("", "test").WithEnvFile(filepath.Join(t.TempDir(), "absent.env")).Load()
	assert.NoError(t, err)
}

func TestInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("DLK_DATA_DIR", t.TempDir())
	t.Setenv("DLK_CONCURRENT_FRAGMENTS", "many")
	t.Setenv("DLK_SWEEP_INTERVAL", "soon")

	cfg, err := NewLoader("", "test").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConcurrentFragments, cfg.Tool.ConcurrentFragments)
	assert.Equal(t, DefaultSweepInterval, cfg.Sweep.Interval)
}
