// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fetcher

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLineRingWrapsInOrder(t *testing.T) {
	r := NewLineRing(3)
	for _, l := range []string{"a", "b", "c", "d", "e"} {
		r.Push(l)
	}
	assert.Equal(t, []string{"c", "d", "e"}, r.LastN(10))
	assert.Equal(t, []string{"d", "e"}, r.LastN(2))
	assert.Empty(t, NewLineRing(2).LastN(5))
}

func TestStderrSinkSplitsPartialWrites(t *testing.T) {
	s := newStderrSink(8, zerolog.Nop())

	_, _ = s.Write([]byte("ERROR: Priv"))
	_, _ = s.Write([]byte("ate video\r\n\nnext"))
	assert.Equal(t, []string{"ERROR: Private video"}, s.Tail(8))

	s.Flush()
	assert.Equal(t, []string{"ERROR: Private video", "next"}, s.Tail(8))
	assert.Equal(t, "ERROR: Private video\r\n\nnext", s.String())
}

func TestClassifyFirstRuleWins(t *testing.T) {
	te := Classify(ModeInfo, 1, "Private video\nVideo unavailable", nil)
	assert.Equal(t, ReasonPrivate, te.Reason)
}
