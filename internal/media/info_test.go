// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInfoPrefersExactFilesize(t *testing.T) {
	info, err := ParseInfo([]byte(`{"title":"t","filesize":100,"filesize_approx":200}`), "u")
	require.NoError(t, err)
	assert.Equal(t, int64(100), info.Filesize)
	assert.Nil(t, info.Formats)
}

func TestParseInfoFallsBackToApprox(t *testing.T) {
	info, err := ParseInfo([]byte(`{"title":"t","filesize_approx":1234.7,"formats":null}`), "u")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), info.Filesize)
	assert.Nil(t, info.Formats)
}

func TestParseInfoMalformed(t *testing.T) {
	_, err := ParseInfo([]byte("WARNING: something\n{"), "u")
	assert.ErrorIs(t, err, ErrMalformedOutput)
}
