// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fetcher

import (
	"fmt"
	"strings"
)

// Reason is a stable classification of a tool failure.
type Reason string

const (
	ReasonAgeRestricted Reason = "age_restricted"
	ReasonPrivate       Reason = "private"
	ReasonUnavailable   Reason = "unavailable"
	ReasonInvalidURL    Reason = "invalid_url"
	ReasonUnclassified  Reason = "unclassified"
)

type stderrRule struct {
	needle  string
	reason  Reason
	message string
}

// Order matters: the first matching rule wins.
var stderrRules = []stderrRule{
	{"Sign in to confirm your age", ReasonAgeRestricted, "This video is age-restricted. Please add your YouTube cookies."},
	{"Private video", ReasonPrivate, "This is a private video. You need cookies from an account with access."},
	{"Video unavailable", ReasonUnavailable, "This video is unavailable or has been removed."},
	{"is not a valid URL", ReasonInvalidURL, "Invalid URL format."},
}

// passthroughLines bounds how much unmatched stderr reaches the caller.
const passthroughLines = 5

// Classify turns a failed exit into a ToolError. stderr is the full captured
// text and tail its last lines.
func Classify(mode Mode, exitCode int, stderr string, tail []string) *ToolError {
	te := &ToolError{Mode: mode, ExitCode: exitCode, Tail: tail}
	for _, rule := range stderrRules {
		if strings.Contains(stderr, rule.needle) {
			te.Reason = rule.reason
			te.Message = rule.message
			return te
		}
	}

	te.Reason = ReasonUnclassified
	lines := tail
	if len(lines) > passthroughLines {
		lines = lines[len(lines)-passthroughLines:]
	}
	if msg := strings.TrimSpace(strings.Join(lines, "\n")); msg != "" {
		te.Message = msg
	} else {
		te.Message = fmt.Sprintf("Exit code %d", exitCode)
	}
	return te
}
