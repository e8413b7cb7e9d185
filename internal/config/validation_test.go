// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	assert.NoError(t, Validate(Defaults()))
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := Defaults()
	cfg.Tool.Bin = " "
	cfg.Tool.InfoTimeout = 0
	cfg.Sweep.Retention = time.Minute // shorter than the download budget
	cfg.API.ListenAddr = "nonsense"
	cfg.Delivery.PublicBaseURL = "/relative"
	cfg.LogLevel = "chatty"

	err := Validate(cfg)
	require.Error(t, err)

	fields := map[string]bool{}
	var joined interface{ Unwrap() []error }
	require.True(t, errors.As(err, &joined))
	for _, e := range joined.Unwrap() {
		var ve *ValidationError
		require.True(t, errors.As(e, &ve))
		fields[ve.Field] = true
	}
	for _, f := range []string{"tool.bin", "tool.infoTimeout", "sweep.retention", "api.listenAddr", "delivery.publicBaseURL", "logLevel"} {
		assert.True(t, fields[f], "missing %s in %v", f, err)
	}
}

func TestValidateTelemetryOnlyWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Telemetry.ExporterType = "carrier-pigeon"
	assert.NoError(t, Validate(cfg))

	cfg.Telemetry.Enabled = true
	assert.Error(t, Validate(cfg))
}
