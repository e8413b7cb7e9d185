// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procgroup

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/dlking/internal/metrics"
)

// Terminate stops a process group: SIGTERM, wait up to grace for waitCh,
// then SIGKILL and drain waitCh. It returns the error received from waitCh.
// waitCh must deliver the result of cmd.Wait exactly once.
// It is safe to call on nil commands (returns nil).
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	signalGroup(cmd, syscall.SIGTERM)

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case err := <-waitCh:
		if err == nil {
			metrics.IncProcWait("exit0")
		} else {
			metrics.IncProcWait("exit_nonzero")
		}
		return err
	case <-timer.C:
	}

	signalGroup(cmd, syscall.SIGKILL)

	// SIGKILL cannot be ignored, so Wait returns.
	err := <-waitCh
	if err == nil {
		metrics.IncProcWait("forced_exit0")
	} else {
		metrics.IncProcWait("forced_error")
	}
	return err
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) {
	name := "SIGTERM"
	if sig == syscall.SIGKILL {
		name = "SIGKILL"
	}
	switch err := Kill(cmd, sig); {
	case err == nil:
		metrics.IncProcTerminate(name, "sent")
	case isGone(err):
		metrics.IncProcTerminate(name, "esrch")
	default:
		metrics.IncProcTerminate(name, "error")
	}
}
