// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/dlking/internal/api/middleware"
	"github.com/ManuGH/dlking/internal/artifact"
	"github.com/ManuGH/dlking/internal/fetcher"
	"github.com/ManuGH/dlking/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMedia struct {
	downloads string
	info      func(media.Request) (*media.Info, error)
	download  func(media.Request) (*artifact.Artifact, error)
	quick     func(media.Request) (string, error)
	lastReq   media.Request
}

func (f *fakeMedia) Info(_ context.Context, req media.Request) (*media.Info, error) {
	f.lastReq = req
	return f.info(req)
}

func (f *fakeMedia) Download(_ context.Context, req media.Request) (*artifact.Artifact, error) {
	f.lastReq = req
	return f.download(req)
}

func (f *fakeMedia) Quick(_ context.Context, req media.Request) (string, error) {
	f.lastReq = req
	return f.quick(req)
}

// produce writes an artifact the way a successful download would.
func (f *fakeMedia) produce(ext string, body []byte) func(media.Request) (*artifact.Artifact, error) {
	return func(media.Request) (*artifact.Artifact, error) {
		name := artifact.NewToken() + "." + ext
		path := filepath.Join(f.downloads, name)
		if err := os.WriteFile(path, body, 0o600); err != nil {
			return nil, err
		}
		return &artifact.Artifact{Name: name, Path: path, Size: int64(len(body))}, nil
	}
}

type testEnv struct {
	srv       *Server
	media     *fakeMedia
	downloads string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	downloads := t.TempDir()
	fm := &fakeMedia{downloads: downloads}
	srv := New(Deps{
		Media:         fm,
		Resolver:      artifact.NewResolver(downloads),
		Reclaimer:     artifact.NewReclaimer(0),
		ServiceName:   "dlking",
		Version:       "test",
		PublicBaseURL: "https://dl.example/",
		Stack:         middleware.StackConfig{EnableLogging: true},
	})
	return &testEnv{srv: srv, media: fm, downloads: downloads}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func TestDownloadThenStreamDeletes(t *testing.T) {
	env := newTestEnv(t)
	payload := bytes.Repeat([]byte("v"), 4096)
	env.media.download = env.media.produce("mp4", payload)

	rec := env.do(http.MethodPost, "/api/download", `{"url":"https://example.com/v"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	name := body["filename"].(string)
	assert.Equal(t, "https://dl.example/api/file/"+name, body["url"])

	path := filepath.Join(env.downloads, name)
	require.True(t, fileExists(path))

	rec = env.do(http.MethodGet, "/api/file/"+name, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "4096", rec.Header().Get("Content-Length"))
	assert.Equal(t, fmt.Sprintf(`attachment; filename="%s"`, name), rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.Equal(t, "0", rec.Header().Get("Expires"))
	assert.Equal(t, payload, rec.Body.Bytes())

	assert.False(t, fileExists(path), "artifact must be reclaimed after delivery")

	rec = env.do(http.MethodGet, "/api/file/"+name, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAudioArtifactContentType(t *testing.T) {
	env := newTestEnv(t)
	env.media.download = env.media.produce("mp3", []byte("id3"))

	rec := env.do(http.MethodPost, "/download", `{"url":"https://example.com/v","audioOnly":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.media.lastReq.AudioOnly)
	name := decode(t, rec)["filename"].(string)

	rec = env.do(http.MethodGet, "/file/"+name, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
}

func TestMissingFileIs404WithoutDeletion(t *testing.T) {
	env := newTestEnv(t)
	other := filepath.Join(env.downloads, "keep.mp4")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))

	for _, p := range []string{"/api/file/nonexistent.mp4", "/file/nonexistent.mp4", "/api/file/..%2Fkeep.mp4"} {
		rec := env.do(http.MethodGet, p, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, p)
		assert.Equal(t, "File not found", decode(t, rec)["error"], p)
	}
	assert.True(t, fileExists(other))
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"validation", &media.ValidationError{Field: "url", Message: "URL is required"}, http.StatusBadRequest, "URL is required"},
		{"private", fetcher.Classify(fetcher.ModeDownload, 1, "ERROR: Private video", nil), http.StatusBadRequest,
			"This is a private video. You need cookies from an account with access."},
		{"timeout", fmt.Errorf("download after 5m0s: %w", fetcher.ErrTimeout), http.StatusBadRequest, "Request timed out"},
		{"launch", &fetcher.LaunchError{Bin: "yt-dlp", Err: errors.New("exec: not found")}, http.StatusInternalServerError, "Media tool is unavailable"},
		{"missing artifact", artifact.ErrArtifactMissing, http.StatusBadRequest, "Download failed - file not created"},
		{"staging", fmt.Errorf("%w: %w", media.ErrStaging, errors.New("disk full")), http.StatusBadRequest, "Failed to stage cookies"},
		{"spawn slot deadline", fmt.Errorf("wait for spawn slot: %w", fetcher.ErrTimeout), http.StatusBadRequest, "Request timed out"},
		{"unknown", errors.New("secret internal detail"), http.StatusBadRequest, "Request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.media.download = func(media.Request) (*artifact.Artifact, error) { return nil, tt.err }

			rec := env.do(http.MethodPost, "/api/download", `{"url":"https://example.com/v"}`)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantMsg, decode(t, rec)["error"])
			assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
		})
	}
}

func TestInvalidBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/info", `{"url":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode(t, rec)["error"])
}

func TestEmptyBodyReachesValidation(t *testing.T) {
	env := newTestEnv(t)
	env.media.quick = func(req media.Request) (string, error) {
		return "", &media.ValidationError{Field: "url", Message: "URL is required"}
	}
	rec := env.do(http.MethodPost, "/api/quick", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "URL is required", decode(t, rec)["error"])
}

func TestInfo(t *testing.T) {
	env := newTestEnv(t)
	env.media.info = func(req media.Request) (*media.Info, error) {
		return &media.Info{Title: "Clip", URL: req.URL, Filesize: 10, Formats: json.RawMessage(`[{"format_id":"18"}]`)}, nil
	}

	rec := env.do(http.MethodPost, "/api/info", `{"url":"https://example.com/v","cookies":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Clip", body["title"])
	assert.Equal(t, "https://example.com/v", body["url"])
	assert.Len(t, body["formats"], 1)
	assert.Equal(t, "abc", env.media.lastReq.Cookies)
}

func TestQuick(t *testing.T) {
	env := newTestEnv(t)
	env.media.quick = func(media.Request) (string, error) { return "https://cdn.example/v.mp4", nil }

	rec := env.do(http.MethodPost, "/quick", `{"url":"https://example.com/v"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "success", "url": "https://cdn.example/v.mp4"}, decode(t, rec))
}

func TestUnmatchedRoute(t *testing.T) {
	env := newTestEnv(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodGet, "/api/nope"},
		{http.MethodGet, "/api/download"},
		{http.MethodDelete, "/health"},
	} {
		rec := env.do(tc.method, tc.path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.path)
		assert.Equal(t, fmt.Sprintf("Route not found: %s %s", tc.method, tc.path), decode(t, rec)["error"])
	}
}

func TestHealthAndIndex(t *testing.T) {
	env := newTestEnv(t)
	for _, p := range []string{"/health", "/api/health"} {
		rec := env.do(http.MethodGet, p, "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "dlking", body["service"])
	}

	rec := env.do(http.MethodGet, "/api/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "running", body["status"])
	assert.Contains(t, body["endpoints"], "download")
}

func TestClientDisconnectReclaims(t *testing.T) {
	env := newTestEnv(t)
	name := "big.mp4"
	path := filepath.Join(env.downloads, name)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 32<<20), 0o600))

	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/file/" + name)
	require.NoError(t, err)
	buf := make([]byte, 1024)
	_, err = io.ReadFull(resp.Body, buf)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.Eventually(t, func() bool { return !fileExists(path) }, 5*time.Second, 20*time.Millisecond)
}

func TestFileURLEscapes(t *testing.T) {
	s := &Server{baseURL: ""}
	assert.Equal(t, "/api/file/a%20b.mp4", s.fileURL("a b.mp4"))
}
