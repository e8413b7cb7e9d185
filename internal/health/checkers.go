// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// DirChecker reports whether a working directory exists and accepts writes.
type DirChecker struct {
	name string
	path string
}

// NewDirChecker creates a checker for a writable directory.
func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(_ context.Context) CheckResult {
	if err := CheckWritableDir(c.path); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.path}
	}
	return CheckResult{Status: StatusHealthy, Message: "writable"}
}

// CheckWritableDir verifies path is a directory a file can be created in.
func CheckWritableDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	f, err := os.CreateTemp(path, ".write_test_*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return nil
}

// ToolChecker reports whether the media tool binary can be resolved.
type ToolChecker struct {
	bin      string
	lookPath func(string) (string, error)
}

// NewToolChecker creates a checker for the tool executable.
func NewToolChecker(bin string) *ToolChecker {
	return &ToolChecker{bin: bin, lookPath: exec.LookPath}
}

func (c *ToolChecker) Name() string { return "media_tool" }

func (c *ToolChecker) Check(_ context.Context) CheckResult {
	path, err := c.lookPath(c.bin)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.bin}
	}
	return CheckResult{Status: StatusHealthy, Message: path}
}
