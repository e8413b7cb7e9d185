// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/dlking/internal/fsutil"
	"golang.org/x/text/unicode/norm"
)

// Resolver finds artifacts inside the downloads directory.
type Resolver struct {
	dir string
}

// NewResolver creates a resolver for dir.
func NewResolver(dir string) *Resolver {
	return &Resolver{dir: dir}
}

// Dir returns the downloads directory.
func (r *Resolver) Dir() string { return r.dir }

// Resolve returns the first regular file, in lexical order, whose name
// starts with token. The extension is chosen by the tool, hence the prefix match.
func (r *Resolver) Resolve(token string) (Artifact, error) {
	if token == "" || strings.ContainsAny(token, `/\`) {
		return Artifact{}, ErrInvalidName
	}

	entries, err := os.ReadDir(r.dir) // sorted by name
	if err != nil {
		return Artifact{}, fmt.Errorf("list downloads: %w", err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), token) || !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Artifact{}, fmt.Errorf("stat artifact: %w", err)
		}
		return Artifact{
			Name:    e.Name(),
			Path:    filepath.Join(r.dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}, nil
	}
	return Artifact{}, ErrArtifactMissing
}

// Open resolves a caller supplied artifact name. Only plain file names
// directly inside the downloads directory are accepted.
func (r *Resolver) Open(name string) (Artifact, error) {
	name = norm.NFC.String(name)
	if !validName(name) {
		return Artifact{}, ErrInvalidName
	}

	path, err := fsutil.ConfineRelPath(r.dir, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Artifact{}, ErrNotFound
		}
		return Artifact{}, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Artifact{}, ErrNotFound
		}
		return Artifact{}, fmt.Errorf("stat artifact: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Artifact{}, ErrNotFound
	}
	return Artifact{Name: name, Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}
