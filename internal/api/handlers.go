// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ManuGH/dlking/internal/log"
	"github.com/ManuGH/dlking/internal/media"
)

// maxBodyBytes bounds request bodies; cookie jars are the largest field.
const maxBodyBytes = 1 << 20

var errInvalidBody = errors.New("invalid request body")

type infoResponse struct {
	Status string `json:"status"`
	*media.Info
}

type downloadResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type quickResponse struct {
	Status string `json:"status"`
	URL    string `json:"url"`
}

// decodeRequest reads the JSON body. An empty body decodes as an empty
// request so validation reports the missing URL.
func decodeRequest(w http.ResponseWriter, r *http.Request) (media.Request, error) {
	var req media.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return media.Request{}, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return req, nil
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	info, err := s.media.Info(r.Context(), req)
	if err != nil {
		writeError(w, r, "info", err)
		return
	}
	writeJSON(w, http.StatusOK, infoResponse{Status: "success", Info: info})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a, err := s.media.Download(r.Context(), req)
	if err != nil {
		writeError(w, r, "download", err)
		return
	}
	writeJSON(w, http.StatusOK, downloadResponse{
		Status:   "success",
		Filename: a.Name,
		URL:      s.fileURL(a.Name),
	})
}

func (s *Server) handleQuick(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	streamURL, err := s.media.Quick(r.Context(), req)
	if err != nil {
		writeError(w, r, "quick", err)
		return
	}
	writeJSON(w, http.StatusOK, quickResponse{Status: "success", URL: streamURL})
}

// fileURL is where the caller retrieves a downloaded artifact.
func (s *Server) fileURL(name string) string {
	return s.baseURL + filePathPrefix + url.PathEscape(name)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": s.service,
		"status":  "running",
		"version": s.version,
		"endpoints": map[string]string{
			"info":     "POST /api/info",
			"download": "POST /api/download",
			"quick":    "POST /api/quick",
			"file":     "GET /api/file/{filename}",
			"health":   "GET /api/health",
			"ready":    "GET /api/ready",
		},
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Debug().
		Str(log.FieldMethod, r.Method).
		Str(log.FieldPath, r.URL.Path).
		Msg("route not found")
	writeMessage(w, http.StatusNotFound, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
}
