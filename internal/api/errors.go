// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/dlking/internal/artifact"
	"github.com/ManuGH/dlking/internal/fetcher"
	"github.com/ManuGH/dlking/internal/log"
	"github.com/ManuGH/dlking/internal/media"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// errorStatus maps a pipeline error to its HTTP status and caller-facing
// message. Internal details never reach the body. Only a tool that cannot
// be launched at all is reported as a server fault.
func errorStatus(err error) (int, string) {
	var (
		verr    *media.ValidationError
		launch  *fetcher.LaunchError
		toolErr *fetcher.ToolError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, media.ErrStaging):
		return http.StatusBadRequest, "Failed to stage cookies"
	case errors.As(err, &launch):
		return http.StatusInternalServerError, "Media tool is unavailable"
	case errors.Is(err, fetcher.ErrTimeout):
		return http.StatusBadRequest, "Request timed out"
	case errors.As(err, &toolErr):
		return http.StatusBadRequest, toolErr.Message
	case errors.Is(err, artifact.ErrArtifactMissing):
		return http.StatusBadRequest, "Download failed - file not created"
	case errors.Is(err, media.ErrNoStreamURL):
		return http.StatusBadRequest, "No stream URL returned"
	case errors.Is(err, media.ErrMalformedOutput):
		return http.StatusBadRequest, "Failed to parse media info"
	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest, "Request cancelled"
	}
	// Pipeline failures stay 4xx even when unclassified.
	return http.StatusBadRequest, "Request failed"
}

// writeError logs err and renders it as {error}.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	code, msg := errorStatus(err)
	logger := log.WithComponentFromContext(r.Context(), "api")
	evt := logger.Warn()
	if code >= http.StatusInternalServerError {
		evt = logger.Error()
	}
	evt.Err(err).
		Str(log.FieldEvent, op+".failed").
		Int(log.FieldStatus, code).
		Msg("request failed")
	writeMessage(w, code, msg)
}

// writeInternal logs err and renders a generic 500. It is for failures
// outside the pipeline, such as filesystem errors while serving a file.
func writeInternal(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Error().Err(err).
		Str(log.FieldEvent, op+".failed").
		Int(log.FieldStatus, http.StatusInternalServerError).
		Msg("request failed")
	writeMessage(w, http.StatusInternalServerError, "Internal server error")
}
