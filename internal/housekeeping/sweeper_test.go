// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package housekeeping

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	mt := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(p, mt, mt))
	return p
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func newTestSweeper(staging, downloads string) *Sweeper {
	return New(Config{
		Dirs:      []Dir{{Role: "staging", Path: staging}, {Role: "downloads", Path: downloads}},
		Interval:  10 * time.Minute,
		Retention: 30 * time.Minute,
	})
}

func TestSweepOnceRemovesOnlyStaleFiles(t *testing.T) {
	staging, downloads := t.TempDir(), t.TempDir()
	oldCookie := writeAged(t, staging, "cookies_1.txt", 31*time.Minute)
	oldArtifact := writeAged(t, downloads, "a.mp4", 31*time.Minute)
	fresh := writeAged(t, downloads, "b.mp4", time.Minute)
	require.NoError(t, os.Mkdir(filepath.Join(downloads, "subdir"), 0o755))

	rep := newTestSweeper(staging, downloads).SweepOnce(context.Background())

	require.NoError(t, rep.Err)
	assert.False(t, exists(oldCookie))
	assert.False(t, exists(oldArtifact))
	assert.True(t, exists(fresh))
	assert.True(t, exists(filepath.Join(downloads, "subdir")))
	assert.Equal(t, 1, rep.Removed["staging"])
	assert.Equal(t, 1, rep.Removed["downloads"])
	assert.Equal(t, 3, rep.Scanned)
}

func TestSweepOnceToleratesMissingDir(t *testing.T) {
	downloads := t.TempDir()
	stale := writeAged(t, downloads, "x.mp3", time.Hour)

	rep := newTestSweeper(filepath.Join(t.TempDir(), "gone"), downloads).SweepOnce(context.Background())

	assert.NoError(t, rep.Err)
	assert.False(t, exists(stale))
}

func TestSetRetention(t *testing.T) {
	downloads := t.TempDir()
	p := writeAged(t, downloads, "x.mp4", 10*time.Minute)
	s := newTestSweeper(t.TempDir(), downloads)

	s.SweepOnce(context.Background())
	assert.True(t, exists(p))

	s.SetRetention(5 * time.Minute)
	s.SetRetention(0) // ignored
	assert.Equal(t, 5*time.Minute, s.Retention())

	s.SweepOnce(context.Background())
	assert.False(t, exists(p))
}

func TestSweepUsesInjectedClock(t *testing.T) {
	downloads := t.TempDir()
	p := writeAged(t, downloads, "x.mp4", 0)
	s := newTestSweeper(t.TempDir(), downloads)
	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	s.SweepOnce(context.Background())
	assert.False(t, exists(p))
}

func TestStartRunsImmediatelyAndStopIsClean(t *testing.T) {
	downloads := t.TempDir()
	stale := writeAged(t, downloads, "x.mp4", time.Hour)
	s := newTestSweeper(t.TempDir(), downloads)

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, exists(stale), "startup pass must run before Start returns")
	assert.Error(t, s.Start(context.Background()), "double start")

	s.Stop()
	s.Stop()
}

func TestScheduledPassRuns(t *testing.T) {
	downloads := t.TempDir()
	s := New(Config{
		Dirs:      []Dir{{Role: "downloads", Path: downloads}},
		Interval:  time.Second,
		Retention: 30 * time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	stale := writeAged(t, downloads, "late.mp4", time.Hour)

	require.Eventually(t, func() bool { return !exists(stale) }, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestStartRejectsBadInterval(t *testing.T) {
	s := New(Config{Interval: 0, Retention: time.Minute})
	assert.Error(t, s.Start(context.Background()))
}
