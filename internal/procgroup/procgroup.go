// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts children in their own process group so the
// whole tree (the media tool plus any ffmpeg it forks) can be stopped at once.
package procgroup

import (
	"errors"
	"os"
	"syscall"
)

// isGone reports whether err means the process has already exited.
func isGone(err error) bool {
	return errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone)
}
