// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package procgroup

import (
	"os/exec"
	"syscall"
)

// Set configures the command to start in a new process group.
// Mandatory for Kill to reach grandchildren.
func Set(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// Kill sends a signal to the process group of the command.
// A nil command, an unstarted one or an already exited group yields nil.
func Kill(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		if isGone(err) {
			return nil
		}
		return err
	}

	// Negative PGID targets the whole group.
	if err := syscall.Kill(-pgid, sig); err != nil {
		if isGone(err) {
			return nil
		}
		// Fall back to the leader alone if the group signal is refused.
		if perr := cmd.Process.Signal(sig); perr != nil && !isGone(perr) {
			return err
		}
	}
	return nil
}
