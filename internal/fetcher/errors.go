// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fetcher

import (
	"errors"
	"fmt"
)

// ErrTimeout reports that an invocation exceeded its budget and was killed.
var ErrTimeout = errors.New("tool invocation timed out")

// LaunchError reports that the tool executable could not be started.
type LaunchError struct {
	Bin string
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Bin, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ToolError reports a non-zero exit. Message is safe to show to callers.
type ToolError struct {
	Mode     Mode
	ExitCode int
	Reason   Reason
	Message  string
	// Tail holds the last stderr lines for diagnostics.
	Tail []string
}

func (e *ToolError) Error() string {
	return e.Message
}
