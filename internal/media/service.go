// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media runs the info, download and quick pipelines: validate,
// stage credentials, invoke the tool, then resolve the result.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/dlking/internal/artifact"
	"github.com/ManuGH/dlking/internal/credentials"
	"github.com/ManuGH/dlking/internal/fetcher"
	"github.com/ManuGH/dlking/internal/format"
	"github.com/ManuGH/dlking/internal/log"
	"github.com/ManuGH/dlking/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrStaging wraps failures to write the caller's cookie file.
	ErrStaging = errors.New("failed to stage cookies")
	// ErrNoStreamURL means the quick lookup printed nothing.
	ErrNoStreamURL = errors.New("no stream URL returned")
)

// Config wires a Service.
type Config struct {
	Runner              fetcher.Runner
	Stager              *credentials.Stager
	Resolver            *artifact.Resolver
	InfoTimeout         time.Duration
	DownloadTimeout     time.Duration
	ConcurrentFragments int
}

// Service is safe for concurrent use.
type Service struct {
	runner          fetcher.Runner
	stager          *credentials.Stager
	resolver        *artifact.Resolver
	infoTimeout     time.Duration
	downloadTimeout time.Duration
	fragments       int

	lookups singleflight.Group
}

// NewService creates a Service from cfg.
func NewService(cfg Config) *Service {
	fragments := cfg.ConcurrentFragments
	if fragments < 1 {
		fragments = 1
	}
	return &Service{
		runner:          cfg.Runner,
		stager:          cfg.Stager,
		resolver:        cfg.Resolver,
		infoTimeout:     cfg.InfoTimeout,
		downloadTimeout: cfg.DownloadTimeout,
		fragments:       fragments,
	}
}

// Info looks up metadata for req.URL. Identical cookie-less lookups in
// flight at the same time share one tool invocation.
func (s *Service) Info(ctx context.Context, req Request) (*Info, error) {
	p, err := req.validate()
	if err != nil {
		return nil, err
	}
	ctx, span := s.startSpan(ctx, "media.info", p)
	defer span.End()

	if !p.hasCookies {
		// The shared run belongs to no single caller: it is bounded by the
		// info budget only, and each caller stops waiting on its own ctx.
		runCtx := context.WithoutCancel(ctx)
		ch := s.lookups.DoChan(p.url, func() (interface{}, error) {
			return s.info(runCtx, p, "")
		})
		select {
		case <-ctx.Done():
			err := fmt.Errorf("info lookup: %w", ctx.Err())
			failSpan(span, err)
			return nil, err
		case res := <-ch:
			if res.Shared {
				span.SetAttributes(sharedAttr)
			}
			if res.Err != nil {
				failSpan(span, res.Err)
				return nil, res.Err
			}
			return res.Val.(*Info), nil
		}
	}

	info, err := withCredentials(ctx, s, req.Cookies, func(cookiePath string) (*Info, error) {
		return s.info(ctx, p, cookiePath)
	})
	if err != nil {
		failSpan(span, err)
	}
	return info, err
}

func (s *Service) info(ctx context.Context, p plan, cookiePath string) (*Info, error) {
	out, err := s.runner.Invoke(ctx, fetcher.ModeInfo, InfoArgs(p.url, cookiePath), s.infoTimeout)
	if err != nil {
		return nil, err
	}
	return ParseInfo(out, p.url)
}

// Download fetches req.URL into the downloads directory and returns the
// resulting artifact.
func (s *Service) Download(ctx context.Context, req Request) (*artifact.Artifact, error) {
	p, err := req.validate()
	if err != nil {
		return nil, err
	}
	ctx, span := s.startSpan(ctx, "media.download", p)
	defer span.End()

	token := artifact.NewToken()
	spec := format.Select(p.quality, p.audioOnly)
	logger := log.WithComponentFromContext(ctx, "media")
	logger.Info().
		Str(log.FieldEvent, "download.started").
		Str(log.FieldToken, token).
		Str("quality", p.quality.String()).
		Bool("audio_only", p.audioOnly).
		Msg("download started")

	a, err := withCredentials(ctx, s, req.Cookies, func(cookiePath string) (*artifact.Artifact, error) {
		args := DownloadArgs(p.url, cookiePath, s.resolver.Dir(), token, spec, s.fragments)
		if _, err := s.runner.Invoke(ctx, fetcher.ModeDownload, args, s.downloadTimeout); err != nil {
			return nil, err
		}
		a, err := s.resolver.Resolve(token)
		if err != nil {
			return nil, err
		}
		return &a, nil
	})
	if err != nil {
		failSpan(span, err)
		logger.Warn().Err(err).Str(log.FieldEvent, "download.failed").Str(log.FieldToken, token).Msg("download failed")
		return nil, err
	}

	span.SetAttributes(telemetry.ArtifactAttributes(a.Name, string(a.Kind()), a.Size)...)
	logger.Info().
		Str(log.FieldEvent, "download.completed").
		Str(log.FieldToken, token).
		Str(log.FieldFilename, a.Name).
		Int64("size", a.Size).
		Msg("download completed")
	return a, nil
}

// Quick resolves a direct stream URL without downloading. The quality
// tier is ignored on this path; only audioOnly selects the stream.
func (s *Service) Quick(ctx context.Context, req Request) (string, error) {
	p, err := req.validate()
	if err != nil {
		return "", err
	}
	ctx, span := s.startSpan(ctx, "media.quick", p)
	defer span.End()

	streamURL, err := withCredentials(ctx, s, req.Cookies, func(cookiePath string) (string, error) {
		out, err := s.runner.Invoke(ctx, fetcher.ModeQuick, QuickArgs(p.url, cookiePath, format.QuickSelect(p.audioOnly)), s.infoTimeout)
		if err != nil {
			return "", err
		}
		first, _, _ := strings.Cut(string(out), "\n")
		first = strings.TrimSpace(first)
		if first == "" {
			return "", ErrNoStreamURL
		}
		return first, nil
	})
	if err != nil {
		failSpan(span, err)
	}
	return streamURL, err
}

// withCredentials stages cookies (if any) for the duration of fn. The file
// is released on every path out of fn.
func withCredentials[T any](ctx context.Context, s *Service, cookies string, fn func(cookiePath string) (T, error)) (T, error) {
	var zero T
	f, err := s.stager.Stage(ctx, cookies)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrStaging, err)
	}
	defer func() {
		if rerr := f.Release(); rerr != nil {
			logger := log.WithComponentFromContext(ctx, "media")
			logger.Warn().Err(rerr).Msg("failed to release credential file")
		}
	}()
	return fn(f.Path())
}

var sharedAttr = attribute.Bool("media.lookup_shared", true)

func (s *Service) startSpan(ctx context.Context, name string, p plan) (context.Context, trace.Span) {
	return telemetry.Tracer("media").Start(ctx, name,
		trace.WithAttributes(telemetry.RequestAttributes(p.quality.String(), p.audioOnly, p.hasCookies)...))
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "pipeline failed")
}
