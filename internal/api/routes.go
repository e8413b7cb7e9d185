// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/ManuGH/dlking/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

// filePathPrefix is the public retrieval path handed out by /download.
const filePathPrefix = "/api/file/"

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(s.stack)
	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleNotFound)

	r.Get("/", s.handleIndex)
	s.registerRoutes(r)
	r.Route("/api", s.registerRoutes)
	return r
}

// registerRoutes is mounted at the root and under /api.
func (s *Server) registerRoutes(r chi.Router) {
	r.Post("/info", s.handleInfo)
	r.Post("/download", s.handleDownload)
	r.Post("/quick", s.handleQuick)
	r.Get("/file/{filename}", s.handleFile)
	r.Get("/health", s.health.ServeHealth)
	r.Get("/ready", s.health.ServeReady)
}
