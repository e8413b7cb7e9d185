// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsutil holds path confinement helpers for serving files out of a
// fixed root directory.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotRelative rejects absolute or backslash-containing targets.
	ErrNotRelative = errors.New("target path must be relative")
	// ErrEscapesRoot rejects targets that resolve outside the root.
	ErrEscapesRoot = errors.New("path escapes root")
	// ErrNotRegular rejects directories, devices and sockets.
	ErrNotRegular = errors.New("not a regular file")
)

// ConfineRelPath joins root and relTarget and ensures the result is
// physically underneath the resolved root. It protects against symlink
// traversal and backslash bypass. The target MUST be relative.
func ConfineRelPath(root, relTarget string) (string, error) {
	if strings.Contains(relTarget, "\\") {
		return "", fmt.Errorf("%w: contains backslash: %s", ErrNotRelative, relTarget)
	}

	cleanRel := filepath.Clean(relTarget)
	if filepath.IsAbs(cleanRel) {
		return "", fmt.Errorf("%w: %s", ErrNotRelative, relTarget)
	}
	// Segment based so ".." inside a file name stays legal.
	if cleanRel == ".." || strings.HasPrefix(cleanRel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: traversal attempt: %s", ErrEscapesRoot, relTarget)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root path: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", err
		}
		realRoot = absRoot
	}

	return resolveAndCheck(realRoot, filepath.Join(realRoot, cleanRel))
}

// resolveAndCheck resolves symlinks in fullPath and ensures it stays within realRoot.
func resolveAndCheck(realRoot, fullPath string) (string, error) {
	var realPath string
	if _, err := os.Lstat(fullPath); err == nil {
		rp, err := filepath.EvalSymlinks(fullPath)
		if err != nil {
			// Fail closed for existing entries we cannot resolve.
			return "", fmt.Errorf("failed to resolve path: %w", err)
		}
		realPath = rp
	} else {
		dir := filepath.Dir(fullPath)
		if rp, err := filepath.EvalSymlinks(dir); err == nil {
			realPath = filepath.Join(rp, filepath.Base(fullPath))
		} else {
			if _, statErr := os.Stat(dir); statErr == nil {
				return "", fmt.Errorf("failed to resolve parent path: %w", err)
			}
			realPath = fullPath
		}
	}

	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil {
		return "", fmt.Errorf("rel computation failed: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w via symlinks: %s", ErrEscapesRoot, realPath)
	}
	return realPath, nil
}

// IsRegularFile returns nil when path exists and is a regular file.
func IsRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	return nil
}
