// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the download pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/ManuGH/dlking/internal/api/middleware"
	"github.com/ManuGH/dlking/internal/artifact"
	"github.com/ManuGH/dlking/internal/health"
	"github.com/ManuGH/dlking/internal/media"
)

// MediaService runs the pipelines behind the POST endpoints.
type MediaService interface {
	Info(ctx context.Context, req media.Request) (*media.Info, error)
	Download(ctx context.Context, req media.Request) (*artifact.Artifact, error)
	Quick(ctx context.Context, req media.Request) (string, error)
}

// Deps wires a Server.
type Deps struct {
	Media     MediaService
	Resolver  *artifact.Resolver
	Reclaimer *artifact.Reclaimer
	Health    *health.Manager

	ServiceName string
	Version     string
	// PublicBaseURL prefixes retrieval URLs; empty yields relative URLs.
	PublicBaseURL string
	Stack         middleware.StackConfig
}

// Server holds the HTTP handlers.
type Server struct {
	media     MediaService
	resolver  *artifact.Resolver
	reclaimer *artifact.Reclaimer
	health    *health.Manager

	service string
	version string
	baseURL string
	stack   middleware.StackConfig

	handler http.Handler
}

// New creates a Server and builds its router.
func New(d Deps) *Server {
	s := &Server{
		media:     d.Media,
		resolver:  d.Resolver,
		reclaimer: d.Reclaimer,
		health:    d.Health,
		service:   d.ServiceName,
		version:   d.Version,
		baseURL:   strings.TrimRight(d.PublicBaseURL, "/"),
		stack:     d.Stack,
	}
	if s.health == nil {
		s.health = health.NewManager(s.service, s.version)
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }
