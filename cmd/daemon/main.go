// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ManuGH/dlking/internal/api"
	"github.com/ManuGH/dlking/internal/api/middleware"
	"github.com/ManuGH/dlking/internal/artifact"
	"github.com/ManuGH/dlking/internal/config"
	"github.com/ManuGH/dlking/internal/credentials"
	"github.com/ManuGH/dlking/internal/daemon"
	"github.com/ManuGH/dlking/internal/fetcher"
	"github.com/ManuGH/dlking/internal/health"
	"github.com/ManuGH/dlking/internal/housekeeping"
	dlog "github.com/ManuGH/dlking/internal/log"
	"github.com/ManuGH/dlking/internal/media"
	"github.com/ManuGH/dlking/internal/telemetry"
	"github.com/ManuGH/dlking/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "dlking"

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the environment is read")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until the configuration is loaded.
	dlog.Configure(dlog.Config{
		Level:   "info",
		Service: serviceName,
		Version: version.Version,
	})
	logger := dlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	if path == "" {
		path = resolveDefaultConfigPath()
	}

	if err := run(ctx, path, *envFile); err != nil {
		logger.Error().Err(err).Str(dlog.FieldEvent, "daemon.failed").Msg("daemon exited with error")
		stop()
		os.Exit(1)
	}
	logger.Info().Str(dlog.FieldEvent, "daemon.stopped").Msg("daemon stopped")
}

func run(ctx context.Context, configPath, envFile string) error {
	loader := config.NewLoader(configPath, version.Version).WithEnvFile(envFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	dlog.Reconfigure(dlog.Config{
		Level:   cfg.LogLevel,
		Service: serviceName,
		Version: cfg.Version,
	})
	logger := dlog.WithComponent("daemon")

	src := logger.Info().Str(dlog.FieldEvent, "config.loaded")
	if configPath != "" {
		src = src.Str("source", "file").Str(dlog.FieldPath, configPath)
	} else {
		src = src.Str("source", "env")
	}
	src.Msg("configuration loaded")

	if err := prepareDirs(cfg); err != nil {
		return err
	}
	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return fmt.Errorf("startup checks: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	if tp.Enabled() {
		logger.Info().
			Str("exporter", cfg.Telemetry.ExporterType).
			Str("endpoint", maskURL(cfg.Telemetry.Endpoint)).
			Float64("sampling_rate", cfg.Telemetry.SamplingRate).
			Msg("tracing enabled")
	}

	runner := fetcher.NewExecRunner(fetcher.Config{
		Bin:        cfg.Tool.Bin,
		PrefixArgs: cfg.Tool.Args,
		KillGrace:  cfg.Tool.KillGrace,
		SpawnRate:  cfg.Tool.SpawnRate,
		SpawnBurst: cfg.Tool.SpawnBurst,
	})
	resolver := artifact.NewResolver(cfg.Storage.DownloadsDir)
	reclaimer := artifact.NewReclaimer(cfg.Delivery.ReclaimDelay)
	svc := media.NewService(media.Config{
		Runner:              runner,
		Stager:              credentials.NewStager(cfg.Storage.StagingDir),
		Resolver:            resolver,
		InfoTimeout:         cfg.Tool.InfoTimeout,
		DownloadTimeout:     cfg.Tool.DownloadTimeout,
		ConcurrentFragments: cfg.Tool.ConcurrentFragments,
	})

	hm := health.NewManager(serviceName, cfg.Version)
	hm.RegisterChecker(health.NewDirChecker("staging_dir", cfg.Storage.StagingDir))
	hm.RegisterChecker(health.NewDirChecker("downloads_dir", cfg.Storage.DownloadsDir))
	hm.RegisterChecker(health.NewToolChecker(cfg.Tool.Bin))

	stack := middleware.StackConfig{
		AllowedOrigins:     cfg.API.AllowedOrigins,
		EnableMetrics:      true,
		EnableLogging:      true,
		RateLimitPerMinute: cfg.API.RateLimit,
	}
	if tp.Enabled() {
		stack.TracingService = cfg.Telemetry.ServiceName
	}
	if cfg.Delivery.PublicBaseURL != "" {
		logger.Info().Str("public_base_url", maskURL(cfg.Delivery.PublicBaseURL)).Msg("retrieval URLs are absolute")
	}

	srv := api.New(api.Deps{
		Media:         svc,
		Resolver:      resolver,
		Reclaimer:     reclaimer,
		Health:        hm,
		ServiceName:   serviceName,
		Version:       cfg.Version,
		PublicBaseURL: cfg.Delivery.PublicBaseURL,
		Stack:         stack,
	})

	mgr, err := daemon.NewManager(cfg.Server, daemon.Deps{
		Logger:         logger,
		ListenAddr:     cfg.API.ListenAddr,
		APIHandler:     srv.Handler(),
		MetricsAddr:    cfg.Metrics.ListenAddr,
		MetricsHandler: promhttp.Handler(),
	})
	if err != nil {
		return fmt.Errorf("create daemon manager: %w", err)
	}
	// Hooks run LIFO: pending reclaims are flushed before the exporter stops.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("reclaimer", reclaimer.Flush)

	sweeper := housekeeping.New(housekeeping.Config{
		Dirs: []housekeeping.Dir{
			{Role: "staging", Path: cfg.Storage.StagingDir},
			{Role: "downloads", Path: cfg.Storage.DownloadsDir},
		},
		Interval:  cfg.Sweep.Interval,
		Retention: cfg.Sweep.Retention,
	})

	holder := config.NewHolder(cfg, loader)
	err = daemon.NewApp(logger, mgr, holder, sweeper).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// prepareDirs creates the working directories. The staging directory holds
// caller credentials and stays private to the service user.
func prepareDirs(cfg config.AppConfig) error {
	if err := os.MkdirAll(cfg.Storage.StagingDir, 0o700); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Storage.DownloadsDir, 0o755); err != nil { // #nosec G301 -- artifacts are served publicly anyway
		return fmt.Errorf("create downloads dir: %w", err)
	}
	return nil
}

// resolveDefaultConfigPath returns ${DLK_DATA_DIR}/config.yaml when it exists.
func resolveDefaultConfigPath() string {
	dataDir := strings.TrimSpace(os.Getenv("DLK_DATA_DIR"))
	if dataDir == "" {
		dataDir = config.DefaultDataDir
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}
