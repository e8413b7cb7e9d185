// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads and validates the runtime configuration of the
// download service. Precedence is ENV > YAML file > defaults.
package config

import (
	"path/filepath"
	"time"
)

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Version  string
	DataDir  string
	LogLevel string

	Storage   StorageConfig
	Tool      ToolConfig
	Delivery  DeliveryConfig
	Sweep     SweepConfig
	API       APIConfig
	Server    ServerConfig
	Metrics   MetricsConfig
	Telemetry TelemetryConfig
}

// StorageConfig names the two working directories.
type StorageConfig struct {
	// StagingDir holds short lived credential files.
	StagingDir string
	// DownloadsDir holds produced artifacts until they are delivered.
	DownloadsDir string
}

// ToolConfig describes how the external media tool is invoked.
type ToolConfig struct {
	Bin                 string
	Args                []string // prefix args placed before every invocation, e.g. ["-m", "yt_dlp"]
	InfoTimeout         time.Duration
	DownloadTimeout     time.Duration
	KillGrace           time.Duration
	ConcurrentFragments int
	SpawnRate           float64 // spawns per second, 0 = unlimited
	SpawnBurst          int
}

// DeliveryConfig controls artifact streaming.
type DeliveryConfig struct {
	ReclaimDelay  time.Duration
	PublicBaseURL string
}

// SweepConfig controls the housekeeping sweep.
type SweepConfig struct {
	Interval  time.Duration
	Retention time.Duration
}

// APIConfig controls the public HTTP surface.
type APIConfig struct {
	ListenAddr     string
	AllowedOrigins []string
	RateLimit      int // requests per minute per client IP, 0 disables
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	ListenAddr string // empty disables the listener
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	ExporterType string // "grpc" or "http"
	Endpoint     string
	SamplingRate float64
}

const (
	DefaultDataDir             = "./data"
	DefaultToolBin             = "yt-dlp"
	DefaultInfoTimeout         = 120 * time.Second
	DefaultDownloadTimeout     = 300 * time.Second
	DefaultKillGrace           = 2 * time.Second
	DefaultConcurrentFragments = 4
	DefaultSpawnBurst          = 10
	DefaultReclaimDelay        = time.Second
	DefaultSweepInterval       = 10 * time.Minute
	DefaultSweepRetention      = 30 * time.Minute
	DefaultListenAddr          = ":3001"
	DefaultRateLimit           = 600
)

// Defaults returns a configuration populated with built-in defaults.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:  DefaultDataDir,
		LogLevel: "info",
		Tool: ToolConfig{
			Bin:                 DefaultToolBin,
			InfoTimeout:         DefaultInfoTimeout,
			DownloadTimeout:     DefaultDownloadTimeout,
			KillGrace:           DefaultKillGrace,
			ConcurrentFragments: DefaultConcurrentFragments,
			SpawnBurst:          DefaultSpawnBurst,
		},
		Delivery: DeliveryConfig{ReclaimDelay: DefaultReclaimDelay},
		Sweep: SweepConfig{
			Interval:  DefaultSweepInterval,
			Retention: DefaultSweepRetention,
		},
		API: APIConfig{
			ListenAddr:     DefaultListenAddr,
			AllowedOrigins: []string{"*"},
			RateLimit:      DefaultRateLimit,
		},
		Server: DefaultServerConfig(),
		Telemetry: TelemetryConfig{
			ServiceName:  "dlking",
			ExporterType: "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// resolveDirs fills the storage directories from DataDir when unset.
func (c *AppConfig) resolveDirs() {
	if abs, err := filepath.Abs(c.DataDir); err == nil {
		c.DataDir = abs
	}
	if c.Storage.StagingDir == "" {
		c.Storage.StagingDir = filepath.Join(c.DataDir, "temp")
	}
	if c.Storage.DownloadsDir == "" {
		c.Storage.DownloadsDir = filepath.Join(c.DataDir, "downloads")
	}
	c.Storage.StagingDir = filepath.Clean(c.Storage.StagingDir)
	c.Storage.DownloadsDir = filepath.Clean(c.Storage.DownloadsDir)
}
