// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	Logger zerolog.Logger

	// ListenAddr is where the API server binds.
	ListenAddr string
	APIHandler http.Handler

	// MetricsAddr empty disables the metrics listener.
	MetricsAddr    string
	MetricsHandler http.Handler
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	return nil
}
