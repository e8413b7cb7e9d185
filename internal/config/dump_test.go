// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEffectiveRoundTripsThroughFile(t *testing.T) {
	want := Defaults()
	want.DataDir = "/srv/dlking"
	want.Storage = StorageConfig{StagingDir: "/srv/dlking/temp", DownloadsDir: "/srv/dlking/downloads"}
	want.Tool.Args = []string{"-m", "yt_dlp"}
	want.Sweep.Retention = 45 * time.Minute
	want.Delivery.PublicBaseURL = "https://media.example.com"

	out, err := yaml.Marshal(Effective(want))
	require.NoError(t, err)

	path := writeFile(t, t.TempDir(), "dump.yaml", string(out))
	f, err := loadFile(path)
	require.NoError(t, err, "dump must satisfy strict parsing")

	var got AppConfig
	mergeFile(&got, f)
	assert.Equal(t, want, got)
}
