// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Middleware emits one access log entry per request and stores a request
// scoped logger in the request context.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := WithComponentFromContext(r.Context(), "http")
			ctx := l.WithContext(r.Context())

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			evt := l.Info()
			if status >= http.StatusInternalServerError {
				evt = l.Error()
			} else if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				evt = l.Debug()
			}
			evt.
				Str(FieldEvent, "request.handled").
				Str(FieldMethod, r.Method).
				Str(FieldPath, r.URL.Path).
				Int(FieldStatus, status).
				Int(FieldBytes, ww.BytesWritten()).
				Str(FieldRemote, r.RemoteAddr).
				Int64(FieldDuration, time.Since(start).Milliseconds()).
				Msg("request handled")
		})
	}
}
