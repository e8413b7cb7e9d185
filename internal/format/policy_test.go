// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package format

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectDefaultChain(t *testing.T) {
	got := Select(QualityDefault, false).Expression()
	want := "bestvideo[ext=mp4][vcodec^=avc1]+bestaudio[ext=m4a]/bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	assert.Equal(t, want, got)
}

func TestSelectTierChain(t *testing.T) {
	got := Select(Quality720, false).Clauses
	want := []string{
		"bestvideo[height<=720][ext=mp4][vcodec^=avc1]+bestaudio[ext=m4a]",
		"bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]",
		"bestvideo[height<=720][vcodec^=avc1]+bestaudio",
		"best[height<=720][ext=mp4]",
		"best[height<=720]",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("clauses mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectFirstClausePrefersH264UnderCap(t *testing.T) {
	for _, q := range []Quality{Quality360, Quality480, Quality720, Quality1080} {
		first := Select(q, false).Clauses[0]
		assert.Contains(t, first, "[height<="+q.String()+"]")
		assert.Contains(t, first, "[vcodec^=avc1]")
		assert.Contains(t, first, "[ext=mp4]")
	}
}

// No clause may carry more constraints than the one before it.
func TestSelectClausesLoosenMonotonically(t *testing.T) {
	constraints := func(clause string) int { return strings.Count(clause, "[") }
	for _, q := range []Quality{QualityDefault, Quality360, Quality1080} {
		clauses := Select(q, false).Clauses
		for i := 1; i < len(clauses); i++ {
			assert.Less(t, constraints(clauses[i]), constraints(clauses[i-1])+1,
				"clause %d (%s) is stricter than %d", i, clauses[i], i-1)
		}
		assert.NotContains(t, clauses[len(clauses)-1], "+", "last resort must be a single combined stream")
	}
}

func TestSelectAudioIgnoresTier(t *testing.T) {
	for _, q := range []Quality{QualityDefault, Quality360, Quality1080} {
		s := Select(q, true)
		assert.Equal(t, "bestaudio", s.Expression())
		assert.Equal(t, []string{"-x", "--audio-format", "mp3"}, s.OutputArgs())
	}
}

func TestVideoOutputArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"--merge-output-format", "mp4", "--recode-video", "mp4"},
		Select(Quality480, false).OutputArgs())
}

func TestQuickSelect(t *testing.T) {
	assert.Equal(t, "bestaudio", QuickSelect(true).Expression())
	assert.Equal(t, "best[ext=mp4]/best", QuickSelect(false).Expression())
}

func TestParseQuality(t *testing.T) {
	cases := map[string]struct {
		q     Quality
		audio bool
	}{
		"":      {QualityDefault, false},
		"best":  {QualityDefault, false},
		"audio": {QualityDefault, true},
		"360":   {Quality360, false},
		"480p":  {Quality480, false},
		" 720 ": {Quality720, false},
		"1080":  {Quality1080, false},
	}
	for in, want := range cases {
		q, audio, err := ParseQuality(in)
		require.NoError(t, err, in)
		assert.Equal(t, want.q, q, in)
		assert.Equal(t, want.audio, audio, in)
	}

	_, _, err := ParseQuality("4k")
	assert.True(t, errors.Is(err, ErrUnknownQuality))
}
