// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// Validate checks a resolved configuration. All problems are reported at once.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(field, reason string) {
		errs = append(errs, &ValidationError{Field: field, Reason: reason})
	}

	if strings.TrimSpace(cfg.Tool.Bin) == "" {
		add("tool.bin", "must not be empty")
	}
	if cfg.Tool.InfoTimeout <= 0 {
		add("tool.infoTimeout", "must be positive")
	}
	if cfg.Tool.DownloadTimeout <= 0 {
		add("tool.downloadTimeout", "must be positive")
	}
	if cfg.Tool.KillGrace < 0 {
		add("tool.killGrace", "must not be negative")
	}
	if cfg.Tool.ConcurrentFragments < 1 {
		add("tool.concurrentFragments", "must be at least 1")
	}
	if cfg.Tool.SpawnRate < 0 {
		add("tool.spawnRate", "must not be negative")
	}
	if cfg.Tool.SpawnRate > 0 && cfg.Tool.SpawnBurst < 1 {
		add("tool.spawnBurst", "must be at least 1 when spawnRate is set")
	}

	if cfg.Delivery.ReclaimDelay < 0 {
		add("delivery.reclaimDelay", "must not be negative")
	}
	if raw := cfg.Delivery.PublicBaseURL; raw != "" {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			add("delivery.publicBaseURL", "must be an absolute URL")
		}
	}

	if cfg.Sweep.Interval <= 0 {
		add("sweep.interval", "must be positive")
	}
	if cfg.Sweep.Retention <= 0 {
		add("sweep.retention", "must be positive")
	} else if cfg.Sweep.Retention < cfg.Tool.DownloadTimeout {
		add("sweep.retention", fmt.Sprintf("must not be shorter than tool.downloadTimeout (%s)", cfg.Tool.DownloadTimeout))
	}

	if err := validateListenAddr(cfg.API.ListenAddr); err != nil {
		add("api.listenAddr", err.Error())
	}
	if cfg.Metrics.ListenAddr != "" {
		if err := validateListenAddr(cfg.Metrics.ListenAddr); err != nil {
			add("metrics.listenAddr", err.Error())
		}
	}
	if cfg.API.RateLimit < 0 {
		add("api.rateLimit", "must not be negative")
	}

	if cfg.Server.ShutdownTimeout <= 0 {
		add("server.shutdownTimeout", "must be positive")
	}

	if cfg.LogLevel != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
			add("logLevel", "unknown level "+cfg.LogLevel)
		}
	}

	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.ExporterType {
		case "grpc", "http":
		default:
			add("telemetry.exporterType", "must be grpc or http")
		}
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			add("telemetry.samplingRate", "must be within [0, 1]")
		}
	}

	return errors.Join(errs...)
}

func validateListenAddr(addr string) error {
	if addr == "" {
		return errors.New("must not be empty")
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("malformed address %q", addr)
	}
	return nil
}
