// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// Effective renders cfg with the YAML file's key layout so a dump can be
// fed back in as a config file.
func Effective(cfg AppConfig) map[string]any {
	return map[string]any{
		"dataDir":  cfg.DataDir,
		"logLevel": cfg.LogLevel,
		"storage": map[string]any{
			"stagingDir":   cfg.Storage.StagingDir,
			"downloadsDir": cfg.Storage.DownloadsDir,
		},
		"tool": map[string]any{
			"bin":                 cfg.Tool.Bin,
			"args":                cfg.Tool.Args,
			"infoTimeout":         cfg.Tool.InfoTimeout.String(),
			"downloadTimeout":     cfg.Tool.DownloadTimeout.String(),
			"killGrace":           cfg.Tool.KillGrace.String(),
			"concurrentFragments": cfg.Tool.ConcurrentFragments,
			"spawnRate":           cfg.Tool.SpawnRate,
			"spawnBurst":          cfg.Tool.SpawnBurst,
		},
		"delivery": map[string]any{
			"reclaimDelay":  cfg.Delivery.ReclaimDelay.String(),
			"publicBaseURL": cfg.Delivery.PublicBaseURL,
		},
		"sweep": map[string]any{
			"interval":  cfg.Sweep.Interval.String(),
			"retention": cfg.Sweep.Retention.String(),
		},
		"api": map[string]any{
			"listenAddr":     cfg.API.ListenAddr,
			"allowedOrigins": cfg.API.AllowedOrigins,
			"rateLimit":      cfg.API.RateLimit,
		},
		"server": map[string]any{
			"readTimeout":     cfg.Server.ReadTimeout.String(),
			"writeTimeout":    cfg.Server.WriteTimeout.String(),
			"idleTimeout":     cfg.Server.IdleTimeout.String(),
			"maxHeaderBytes":  cfg.Server.MaxHeaderBytes,
			"shutdownTimeout": cfg.Server.ShutdownTimeout.String(),
		},
		"metrics": map[string]any{
			"listenAddr": cfg.Metrics.ListenAddr,
		},
		"telemetry": map[string]any{
			"enabled":      cfg.Telemetry.Enabled,
			"serviceName":  cfg.Telemetry.ServiceName,
			"exporterType": cfg.Telemetry.ExporterType,
			"endpoint":     cfg.Telemetry.Endpoint,
			"samplingRate": cfg.Telemetry.SamplingRate,
		},
	}
}
