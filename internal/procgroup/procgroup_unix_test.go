// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startGroup(t *testing.T, script string) (*exec.Cmd, <-chan error) {
	t.Helper()
	cmd := exec.Command("sh", "-c", script)
	Set(cmd)
	require.NoError(t, cmd.Start())

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()
	return cmd, waitCh
}

func TestSetMakesGroupLeader(t *testing.T) {
	cmd, waitCh := startGroup(t, "sleep 10")
	t.Cleanup(func() { _ = Terminate(cmd, waitCh, 10*time.Millisecond) })

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	require.NoError(t, err)
	assert.Equal(t, cmd.Process.Pid, pgid)
}

func TestTerminateKillsWholeGroup(t *testing.T) {
	// Parent ignores SIGTERM so escalation to SIGKILL is exercised.
	cmd, waitCh := startGroup(t, "trap '' TERM; sleep 10 & sleep 10")
	time.Sleep(100 * time.Millisecond)
	pgid := cmd.Process.Pid

	start := time.Now()
	err := Terminate(cmd, waitCh, 100*time.Millisecond)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		assert.True(t, status.Signaled())
	}

	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("no procfs to inspect group members")
	}
	// Killed members may linger as zombies until init reaps them; only
	// runnable or sleeping members count as survivors.
	assert.Eventually(t, func() bool { return liveGroupMembers(t, pgid) == 0 },
		2*time.Second, 20*time.Millisecond, "process group should have no live members")
}

// liveGroupMembers counts processes in pgid that are not zombies or dead.
func liveGroupMembers(t *testing.T, pgid int) int {
	t.Helper()
	stats, err := filepath.Glob("/proc/[0-9]*/stat")
	require.NoError(t, err)

	live := 0
	for _, path := range stats {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue // exited while scanning
		}
		// Fields after "pid (comm)": state ppid pgrp ...
		end := strings.LastIndexByte(string(raw), ')')
		if end < 0 {
			continue
		}
		fields := strings.Fields(string(raw[end+1:]))
		if len(fields) < 3 {
			continue
		}
		if pgrp, err := strconv.Atoi(fields[2]); err != nil || pgrp != pgid {
			continue
		}
		if state := fields[0]; state != "Z" && state != "X" {
			live++
		}
	}
	return live
}

func TestTerminateAfterExit(t *testing.T) {
	cmd, waitCh := startGroup(t, "exit 0")
	// Let the child finish before terminating.
	time.Sleep(100 * time.Millisecond)

	assert.NoError(t, Terminate(cmd, waitCh, 50*time.Millisecond))
}

func TestKillNil(t *testing.T) {
	assert.NoError(t, Kill(nil, syscall.SIGKILL))
	assert.NoError(t, Terminate(nil, nil, time.Millisecond))
}
