// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/ManuGH/dlking/internal/log"
	"github.com/joho/godotenv"
)

// Loader resolves an AppConfig from defaults, an optional YAML file and the
// process environment.
type Loader struct {
	configPath string
	envFile    string
	version    string
}

// NewLoader creates a loader. configPath may be empty (ENV-only mode).
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// WithEnvFile sets a dotenv file whose variables are exported into the
// process environment before loading. Variables already set win. A missing
// file is not an error.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// ConfigPath returns the YAML file path the loader reads, if any.
func (l *Loader) ConfigPath() string { return l.configPath }

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return AppConfig{}, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFile(&cfg, fileCfg)
	}

	mergeEnv(&cfg)
	cfg.resolveDirs()
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	logger := log.WithComponent("config")
	logger.Debug().
		Str("data_dir", cfg.DataDir).
		Str("staging_dir", cfg.Storage.StagingDir).
		Str("downloads_dir", cfg.Storage.DownloadsDir).
		Str("tool_bin", cfg.Tool.Bin).
		Msg("configuration resolved")
	return cfg, nil
}

// mergeEnv overrides cfg with DLK_* environment variables.
func mergeEnv(cfg *AppConfig) {
	cfg.DataDir = ParseString("DLK_DATA_DIR", cfg.DataDir)
	cfg.LogLevel = ParseString("DLK_LOG_LEVEL", cfg.LogLevel)

	cfg.Storage.StagingDir = ParseString("DLK_STAGING_DIR", cfg.Storage.StagingDir)
	cfg.Storage.DownloadsDir = ParseString("DLK_DOWNLOADS_DIR", cfg.Storage.DownloadsDir)

	cfg.Tool.Bin = ParseString("DLK_TOOL_BIN", cfg.Tool.Bin)
	cfg.Tool.Args = ParseStringSlice("DLK_TOOL_ARGS", cfg.Tool.Args)
	cfg.Tool.InfoTimeout = ParseDuration("DLK_INFO_TIMEOUT", cfg.Tool.InfoTimeout)
	cfg.Tool.DownloadTimeout = ParseDuration("DLK_DOWNLOAD_TIMEOUT", cfg.Tool.DownloadTimeout)
	cfg.Tool.KillGrace = ParseDuration("DLK_KILL_GRACE", cfg.Tool.KillGrace)
	cfg.Tool.ConcurrentFragments = ParseInt("DLK_CONCURRENT_FRAGMENTS", cfg.Tool.ConcurrentFragments)
	cfg.Tool.SpawnRate = ParseFloat("DLK_SPAWN_RATE", cfg.Tool.SpawnRate)
	cfg.Tool.SpawnBurst = ParseInt("DLK_SPAWN_BURST", cfg.Tool.SpawnBurst)

	cfg.Delivery.ReclaimDelay = ParseDuration("DLK_RECLAIM_DELAY", cfg.Delivery.ReclaimDelay)
	cfg.Delivery.PublicBaseURL = ParseString("DLK_PUBLIC_BASE_URL", cfg.Delivery.PublicBaseURL)

	cfg.Sweep.Interval = ParseDuration("DLK_SWEEP_INTERVAL", cfg.Sweep.Interval)
	cfg.Sweep.Retention = ParseDuration("DLK_SWEEP_RETENTION", cfg.Sweep.Retention)

	cfg.API.ListenAddr = ParseString("DLK_LISTEN", cfg.API.ListenAddr)
	cfg.API.AllowedOrigins = ParseStringSlice("DLK_ALLOWED_ORIGINS", cfg.API.AllowedOrigins)
	cfg.API.RateLimit = ParseInt("DLK_RATE_LIMIT", cfg.API.RateLimit)

	cfg.Server.ReadTimeout = ParseDuration("DLK_SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = ParseDuration("DLK_SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = ParseDuration("DLK_SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.MaxHeaderBytes = ParseInt("DLK_SERVER_MAX_HEADER_BYTES", cfg.Server.MaxHeaderBytes)
	cfg.Server.ShutdownTimeout = ParseDuration("DLK_SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Metrics.ListenAddr = ParseString("DLK_METRICS_LISTEN", cfg.Metrics.ListenAddr)

	cfg.Telemetry.Enabled = ParseBool("DLK_TRACING_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.ExporterType = ParseString("DLK_TRACING_EXPORTER", cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = ParseString("DLK_TRACING_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat("DLK_TRACING_SAMPLE_RATE", cfg.Telemetry.SamplingRate)
}
