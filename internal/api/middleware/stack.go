// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"time"

	"github.com/ManuGH/dlking/internal/log"
	"github.com/go-chi/chi/v5"
)

// StackConfig configures the HTTP ingress middleware stack.
type StackConfig struct {
	AllowedOrigins []string

	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	// RateLimitPerMinute <= 0 disables rate limiting.
	RateLimitPerMinute int
}

// NewRouter constructs a chi router with the stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the middleware stack to r, outermost first.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(CORS(cfg.AllowedOrigins))
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(Tracing(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(log.Middleware())
	}
	if cfg.RateLimitPerMinute > 0 {
		r.Use(RateLimit(RateLimitConfig{RequestLimit: cfg.RateLimitPerMinute, WindowSize: time.Minute}))
	}
}
