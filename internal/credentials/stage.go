// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package credentials stages caller supplied cookie text as short lived
// files the media tool can read by path.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/dlking/internal/log"
	"github.com/ManuGH/dlking/internal/metrics"
	"github.com/google/renameio/v2"
)

// FilePrefix and FileSuffix frame every staged file name.
const (
	FilePrefix = "cookies_"
	FileSuffix = ".txt"
)

// Stager writes credential files into a single directory.
type Stager struct {
	dir  string
	now  func() time.Time
	last atomic.Int64
}

// NewStager creates a stager rooted at dir. The directory must exist.
func NewStager(dir string) *Stager {
	return &Stager{dir: dir, now: time.Now}
}

// Dir returns the staging directory.
func (s *Stager) Dir() string { return s.dir }

// File is a staged credential file owned by one request.
type File struct {
	path string
	once sync.Once
	err  error
}

// Path returns the file path handed to the tool, or "" for a nil File.
func (f *File) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

// Release deletes the file. It runs at most once and tolerates a file that
// is already gone (for example removed by the sweep). Safe on nil.
func (f *File) Release() error {
	if f == nil {
		return nil
	}
	f.once.Do(func() {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			f.err = fmt.Errorf("remove credential file: %w", err)
		}
	})
	return f.err
}

// Stage writes raw verbatim to a new file. Blank input stages nothing and
// returns (nil, nil). The file is written atomically with mode 0600.
func (s *Stager) Stage(ctx context.Context, raw string) (*File, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s%d%s", FilePrefix, s.nextStamp(), FileSuffix))
	if err := renameio.WriteFile(path, []byte(raw), 0o600, renameio.WithStaticPermissions(0o600)); err != nil {
		metrics.IncCredentialsStaged("error")
		return nil, fmt.Errorf("stage credentials: %w", err)
	}
	metrics.IncCredentialsStaged("ok")

	logger := log.WithComponentFromContext(ctx, "credentials")
	logger.Debug().
		Str(log.FieldEvent, "credentials.staged").
		Str(log.FieldPath, path).
		Msg("credential file staged")
	return &File{path: path}, nil
}

// nextStamp returns a nanosecond timestamp strictly greater than any
// previously issued one, so concurrent requests never share a name.
func (s *Stager) nextStamp() int64 {
	for {
		prev := s.last.Load()
		next := s.now().UnixNano()
		if next <= prev {
			next = prev + 1
		}
		if s.last.CompareAndSwap(prev, next) {
			return next
		}
	}
}
