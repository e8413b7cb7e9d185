// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/ManuGH/dlking/internal/artifact"
	"github.com/ManuGH/dlking/internal/log"
	"github.com/ManuGH/dlking/internal/metrics"
	"github.com/ManuGH/dlking/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

var dispositionEscaper = strings.NewReplacer(`"`, "_", `\`, "_", "\r", "_", "\n", "_")

// handleFile streams an artifact once and then reclaims it. The first
// terminal event of the transfer arms the deletion.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "delivery")

	name := chi.URLParam(r, "filename")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	a, err := s.resolver.Open(name)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) || errors.Is(err, artifact.ErrInvalidName) {
			metrics.RecordDelivery("not_found", 0)
			logger.Info().Str(log.FieldEvent, "file.not_found").Str(log.FieldFilename, name).Msg("artifact not found")
			writeMessage(w, http.StatusNotFound, "File not found")
			return
		}
		writeInternal(w, r, "file", err)
		return
	}

	f, err := os.Open(a.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			metrics.RecordDelivery("not_found", 0)
			writeMessage(w, http.StatusNotFound, "File not found")
			return
		}
		writeInternal(w, r, "file", err)
		return
	}
	defer func() { _ = f.Close() }()

	trace.SpanFromContext(r.Context()).SetAttributes(telemetry.ArtifactAttributes(a.Name, string(a.Kind()), a.Size)...)

	claim := s.reclaimer.Claim(a.Path)
	reclaimCtx := context.WithoutCancel(r.Context())
	stop := context.AfterFunc(r.Context(), func() {
		claim.Trigger(reclaimCtx, artifact.TriggerClosed)
	})
	defer stop()

	h := w.Header()
	h.Set("Content-Type", a.ContentType())
	h.Set("Content-Length", strconv.FormatInt(a.Size, 10))
	h.Set("Content-Disposition", `attachment; filename="`+dispositionEscaper.Replace(a.Name)+`"`)
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	w.WriteHeader(http.StatusOK)

	src := &readTracker{r: f}
	n, copyErr := io.Copy(w, src)

	switch {
	case src.err != nil:
		derr := &artifact.DeliveryError{Name: a.Name, Op: "read", Err: src.err}
		claim.Trigger(reclaimCtx, artifact.TriggerError)
		metrics.RecordDelivery("read_error", n)
		logger.Error().Err(derr).Str(log.FieldEvent, "file.read_error").Int64(log.FieldBytes, n).Msg("artifact stream failed")
	case copyErr != nil || n < a.Size:
		claim.Trigger(reclaimCtx, artifact.TriggerClosed)
		metrics.RecordDelivery("aborted", n)
		logger.Info().Err(copyErr).Str(log.FieldEvent, "file.aborted").Str(log.FieldFilename, a.Name).
			Int64(log.FieldBytes, n).Int64("size", a.Size).Msg("caller went away before transfer completed")
	default:
		claim.Trigger(reclaimCtx, artifact.TriggerComplete)
		metrics.RecordDelivery("complete", n)
		logger.Info().Str(log.FieldEvent, "file.delivered").Str(log.FieldFilename, a.Name).
			Int64(log.FieldBytes, n).Msg("artifact delivered")
	}
}

// readTracker remembers the first read error so it can be told apart from
// a failed write to the caller.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && t.err == nil {
		t.err = err
	}
	return n, err
}
