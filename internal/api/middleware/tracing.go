// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

// Tracing wraps handlers with OpenTelemetry HTTP instrumentation. Trace
// context is extracted from the inbound W3C headers.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			next,
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithPropagators(otel.GetTextMapPropagator()),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanName),
		)
	}
}

// shouldTrace skips probe traffic.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/health", "/ready", "/api/health", "/api/ready":
		return false
	}
	return true
}

// spanName omits the path: file routes carry per-artifact names.
func spanName(_ string, r *http.Request) string {
	return "HTTP " + r.Method
}
