// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the YAML file layout. Pointer fields distinguish
// "absent" from zero values so only present keys override defaults.
type FileConfig struct {
	DataDir  *string `yaml:"dataDir"`
	LogLevel *string `yaml:"logLevel"`

	Storage *struct {
		StagingDir   *string `yaml:"stagingDir"`
		DownloadsDir *string `yaml:"downloadsDir"`
	} `yaml:"storage"`

	Tool *struct {
		Bin                 *string        `yaml:"bin"`
		Args                []string       `yaml:"args"`
		InfoTimeout         *time.Duration `yaml:"infoTimeout"`
		DownloadTimeout     *time.Duration `yaml:"downloadTimeout"`
		KillGrace           *time.Duration `yaml:"killGrace"`
		ConcurrentFragments *int           `yaml:"concurrentFragments"`
		SpawnRate           *float64       `yaml:"spawnRate"`
		SpawnBurst          *int           `yaml:"spawnBurst"`
	} `yaml:"tool"`

	Delivery *struct {
		ReclaimDelay  *time.Duration `yaml:"reclaimDelay"`
		PublicBaseURL *string        `yaml:"publicBaseURL"`
	} `yaml:"delivery"`

	Sweep *struct {
		Interval  *time.Duration `yaml:"interval"`
		Retention *time.Duration `yaml:"retention"`
	} `yaml:"sweep"`

	API *struct {
		ListenAddr     *string  `yaml:"listenAddr"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		RateLimit      *int     `yaml:"rateLimit"`
	} `yaml:"api"`

	Server *struct {
		ReadTimeout     *time.Duration `yaml:"readTimeout"`
		WriteTimeout    *time.Duration `yaml:"writeTimeout"`
		IdleTimeout     *time.Duration `yaml:"idleTimeout"`
		MaxHeaderBytes  *int           `yaml:"maxHeaderBytes"`
		ShutdownTimeout *time.Duration `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Metrics *struct {
		ListenAddr *string `yaml:"listenAddr"`
	} `yaml:"metrics"`

	Telemetry *struct {
		Enabled      *bool    `yaml:"enabled"`
		ServiceName  *string  `yaml:"serviceName"`
		ExporterType *string  `yaml:"exporterType"`
		Endpoint     *string  `yaml:"endpoint"`
		SamplingRate *float64 `yaml:"samplingRate"`
	} `yaml:"telemetry"`
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// mergeFile applies every key present in the file onto cfg.
func mergeFile(cfg *AppConfig, f *FileConfig) {
	setIf(&cfg.DataDir, f.DataDir)
	setIf(&cfg.LogLevel, f.LogLevel)

	if s := f.Storage; s != nil {
		setIf(&cfg.Storage.StagingDir, s.StagingDir)
		setIf(&cfg.Storage.DownloadsDir, s.DownloadsDir)
	}
	if t := f.Tool; t != nil {
		setIf(&cfg.Tool.Bin, t.Bin)
		if t.Args != nil {
			cfg.Tool.Args = append([]string(nil), t.Args...)
		}
		setIf(&cfg.Tool.InfoTimeout, t.InfoTimeout)
		setIf(&cfg.Tool.DownloadTimeout, t.DownloadTimeout)
		setIf(&cfg.Tool.KillGrace, t.KillGrace)
		setIf(&cfg.Tool.ConcurrentFragments, t.ConcurrentFragments)
		setIf(&cfg.Tool.SpawnRate, t.SpawnRate)
		setIf(&cfg.Tool.SpawnBurst, t.SpawnBurst)
	}
	if d := f.Delivery; d != nil {
		setIf(&cfg.Delivery.ReclaimDelay, d.ReclaimDelay)
		setIf(&cfg.Delivery.PublicBaseURL, d.PublicBaseURL)
	}
	if s := f.Sweep; s != nil {
		setIf(&cfg.Sweep.Interval, s.Interval)
		setIf(&cfg.Sweep.Retention, s.Retention)
	}
	if a := f.API; a != nil {
		setIf(&cfg.API.ListenAddr, a.ListenAddr)
		if a.AllowedOrigins != nil {
			cfg.API.AllowedOrigins = append([]string(nil), a.AllowedOrigins...)
		}
		setIf(&cfg.API.RateLimit, a.RateLimit)
	}
	if s := f.Server; s != nil {
		setIf(&cfg.Server.ReadTimeout, s.ReadTimeout)
		setIf(&cfg.Server.WriteTimeout, s.WriteTimeout)
		setIf(&cfg.Server.IdleTimeout, s.IdleTimeout)
		setIf(&cfg.Server.MaxHeaderBytes, s.MaxHeaderBytes)
		setIf(&cfg.Server.ShutdownTimeout, s.ShutdownTimeout)
	}
	if m := f.Metrics; m != nil {
		setIf(&cfg.Metrics.ListenAddr, m.ListenAddr)
	}
	if t := f.Telemetry; t != nil {
		setIf(&cfg.Telemetry.Enabled, t.Enabled)
		setIf(&cfg.Telemetry.ServiceName, t.ServiceName)
		setIf(&cfg.Telemetry.ExporterType, t.ExporterType)
		setIf(&cfg.Telemetry.Endpoint, t.Endpoint)
		setIf(&cfg.Telemetry.SamplingRate, t.SamplingRate)
	}
}
