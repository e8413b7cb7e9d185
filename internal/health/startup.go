// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/ManuGH/dlking/internal/config"
	"github.com/ManuGH/dlking/internal/log"
)

// PerformStartupChecks validates the environment before the server starts.
// Unusable directories are fatal; a missing tool binary is only logged since
// it may be installed after start and /ready reports it.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	for _, dir := range []struct{ role, path string }{
		{"staging", cfg.Storage.StagingDir},
		{"downloads", cfg.Storage.DownloadsDir},
	} {
		if err := CheckWritableDir(dir.path); err != nil {
			return fmt.Errorf("%s directory check failed: %w", dir.role, err)
		}
	}

	if path, err := exec.LookPath(cfg.Tool.Bin); err != nil {
		logger.Warn().Err(err).Str("bin", cfg.Tool.Bin).Msg("media tool not found on PATH; requests will fail until it is installed")
	} else {
		logger.Info().Str("bin", path).Msg("media tool resolved")
	}

	logger.Info().Msg("startup checks passed")
	return nil
}
