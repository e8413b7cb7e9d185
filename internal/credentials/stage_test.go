// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package credentials

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/dlking/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageBlankStagesNothing(t *testing.T) {
	dir := t.TempDir()
	s := NewStager(dir)

	for _, raw := range []string{"", "   ", "\n\t"} {
		f, err := s.Stage(context.Background(), raw)
		require.NoError(t, err)
		assert.Nil(t, f)
		assert.NoError(t, f.Release(), "nil handle must be releasable")
		assert.Empty(t, f.Path())
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStageWritesVerbatimAndReleases(t *testing.T) {
	dir := t.TempDir()
	s := NewStager(dir)

	f, err := s.Stage(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.Equal(t, dir, filepath.Dir(f.Path()))
	name := filepath.Base(f.Path())
	assert.True(t, strings.HasPrefix(name, FilePrefix) && strings.HasSuffix(name, FileSuffix), name)

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	info, err := os.Stat(f.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "exactly one file, no leftover temp file")

	require.NoError(t, f.Release())
	_, err = os.Stat(f.Path())
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, f.Release(), "second release is a no-op")
}

func TestReleaseToleratesSweptFile(t *testing.T) {
	s := NewStager(t.TempDir())
	f, err := s.Stage(context.Background(), "cookie")
	require.NoError(t, err)

	require.NoError(t, os.Remove(f.Path()))
	assert.NoError(t, f.Release())
}

func TestStageNamesAreUniqueUnderFrozenClock(t *testing.T) {
	s := NewStager(t.TempDir())
	frozen := time.Unix(1700000000, 0)
	s.now = func() time.Time { return frozen }

	const n = 64
	paths := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := s.Stage(context.Background(), "c")
			if assert.NoError(t, err) {
				paths <- f.Path()
			}
		}()
	}
	wg.Wait()
	close(paths)

	seen := map[string]bool{}
	for p := range paths {
		assert.False(t, seen[p], "duplicate %s", p)
		seen[p] = true
	}
	assert.Len(t, seen, n)
}

func TestStageFailsWhenDirMissing(t *testing.T) {
	s := NewStager(filepath.Join(t.TempDir(), "missing"))

	f, err := s.Stage(context.Background(), "abc")
	assert.Nil(t, f)
	assert.Error(t, err)
}

func TestStageLogsStagedFile(t *testing.T) {
	var buf bytes.Buffer
	log.Reconfigure(log.Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { log.Reconfigure(log.Config{Level: "info"}) })

	f, err := NewStager(t.TempDir()).Stage(context.Background(), "# Netscape HTTP Cookie File\n")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Release() })

	out := buf.String()
	assert.Contains(t, out, `"event":"credentials.staged"`)
	assert.Contains(t, out, `"component":"credentials"`)
	assert.Contains(t, out, f.Path())
}
