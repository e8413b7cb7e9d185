// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"path/filepath"
	"strconv"

	"github.com/ManuGH/dlking/internal/format"
)

var commonArgs = []string{"--no-warnings", "--no-playlist"}

// InfoArgs builds the argv for a metadata lookup.
func InfoArgs(target, cookiePath string) []string {
	args := append([]string{"--dump-json"}, commonArgs...)
	return finish(args, target, cookiePath)
}

// DownloadArgs builds the argv for a download whose output file name starts
// with token.
func DownloadArgs(target, cookiePath, downloadsDir, token string, spec format.Spec, fragments int) []string {
	args := append([]string(nil), commonArgs...)
	args = append(args,
		"--no-check-certificates",
		"--prefer-free-formats",
		"--concurrent-fragments", strconv.Itoa(fragments),
		"-o", OutputTemplate(downloadsDir, token),
		"-f", spec.Expression(),
	)
	args = append(args, spec.OutputArgs()...)
	return finish(args, target, cookiePath)
}

// QuickArgs builds the argv for direct stream URL resolution.
func QuickArgs(target, cookiePath string, spec format.Spec) []string {
	args := append([]string{"--get-url"}, commonArgs...)
	args = append(args, "-f", spec.Expression())
	return finish(args, target, cookiePath)
}

// OutputTemplate is the tool's output path; the tool fills in the extension.
func OutputTemplate(downloadsDir, token string) string {
	return filepath.Join(downloadsDir, token+".%(ext)s")
}

func finish(args []string, target, cookiePath string) []string {
	if cookiePath != "" {
		args = append(args, "--cookies", cookiePath)
	}
	return append(args, target)
}
