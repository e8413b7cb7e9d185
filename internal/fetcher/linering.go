// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fetcher

import (
	"bytes"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LineRing is a thread-safe ring buffer holding the last N lines.
type LineRing struct {
	mu    sync.RWMutex
	lines []string
	head  int
	count int
}

// NewLineRing creates a LineRing with the specified capacity.
func NewLineRing(capacity int) *LineRing {
	if capacity < 1 {
		capacity = 64
	}
	return &LineRing{lines: make([]string, capacity)}
}

// Push appends one line, evicting the oldest when full.
func (r *LineRing) Push(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
}

// LastN returns up to n lines in chronological order.
func (r *LineRing) LastN(n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n > r.count {
		n = r.count
	}
	out := make([]string, 0, n)
	start := (r.head - n + len(r.lines)) % len(r.lines)
	for i := 0; i < n; i++ {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}
	return out
}

// maxCapturedStderr caps the classification buffer; the ring keeps the tail.
const maxCapturedStderr = 1 << 20

// stderrSink is the child's stderr writer. It splits output into lines for
// the ring and debug log and keeps the raw text for classification.
type stderrSink struct {
	mu      sync.Mutex
	ring    *LineRing
	logger  zerolog.Logger
	partial bytes.Buffer
	all     strings.Builder
}

func newStderrSink(capacity int, logger zerolog.Logger) *stderrSink {
	return &stderrSink{ring: NewLineRing(capacity), logger: logger}
}

func (s *stderrSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.all.Len() < maxCapturedStderr {
		room := maxCapturedStderr - s.all.Len()
		if len(p) < room {
			room = len(p)
		}
		s.all.Write(p[:room])
	}

	s.partial.Write(p)
	for {
		i := bytes.IndexByte(s.partial.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(s.partial.Next(i+1), "\r\n"))
		s.emit(line)
	}
	return len(p), nil
}

// Flush emits a trailing line without newline.
func (s *stderrSink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.partial.Len() > 0 {
		s.emit(strings.TrimRight(s.partial.String(), "\r"))
		s.partial.Reset()
	}
}

func (s *stderrSink) emit(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	s.ring.Push(line)
	s.logger.Debug().Str("stream", "stderr").Msg(line)
}

func (s *stderrSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.all.String()
}

func (s *stderrSink) Tail(n int) []string {
	return s.ring.LastN(n)
}
