// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package artifact locates produced media files, describes them for
// delivery and reclaims them afterwards.
package artifact

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrArtifactMissing means the tool reported success but no file carries the token.
	ErrArtifactMissing = errors.New("artifact missing after download")
	// ErrNotFound means a requested artifact name does not exist.
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalidName rejects names that are not a plain file name.
	ErrInvalidName = errors.New("invalid artifact name")
)

// Artifact is a produced media file.
type Artifact struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Kind reports audio or video based on the extension.
func (a Artifact) Kind() Kind { return KindOf(a.Name) }

// ContentType returns the MIME type used when streaming the file.
func (a Artifact) ContentType() string { return ContentType(a.Name) }

// NewToken returns a unique token used as the output filename stem.
func NewToken() string {
	return uuid.NewString()
}

// DeliveryError reports a failure while streaming an artifact.
type DeliveryError struct {
	Name string
	Op   string // "read" or "write"
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s: %s: %v", e.Name, e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Kind classifies artifacts for content negotiation.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

var contentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".opus": "audio/ogg",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

// DefaultContentType applies to unknown extensions; downloads default to mp4.
const DefaultContentType = "video/mp4"

// ContentType maps a file name to its MIME type.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return DefaultContentType
}

// KindOf maps a file name to audio or video.
func KindOf(name string) Kind {
	if strings.HasPrefix(ContentType(name), "audio/") {
		return KindAudio
	}
	return KindVideo
}
