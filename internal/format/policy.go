// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package format maps a requested quality tier to the tool's format
// selection expression. Everything here is pure.
package format

import (
	"errors"
	"fmt"
	"strings"
)

// Quality is a requested upper bound on vertical resolution.
type Quality int

const (
	QualityDefault Quality = 0
	Quality360     Quality = 360
	Quality480     Quality = 480
	Quality720     Quality = 720
	Quality1080    Quality = 1080
)

// AudioFormat is the container every audio-only download is transcoded to.
const AudioFormat = "mp3"

// VideoContainer is the container video downloads are merged/recoded into.
const VideoContainer = "mp4"

// ErrUnknownQuality is wrapped by ParseQuality for unsupported tiers.
var ErrUnknownQuality = errors.New("unknown quality tier")

// ParseQuality parses a tier string. "" / "best" / "default" mean no cap;
// "audio" yields audioOnly=true.
func ParseQuality(raw string) (q Quality, audioOnly bool, err error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "best", "default":
		return QualityDefault, false, nil
	case "audio":
		return QualityDefault, true, nil
	case "360", "360p":
		return Quality360, false, nil
	case "480", "480p":
		return Quality480, false, nil
	case "720", "720p":
		return Quality720, false, nil
	case "1080", "1080p":
		return Quality1080, false, nil
	}
	return QualityDefault, false, fmt.Errorf("%w: %q", ErrUnknownQuality, raw)
}

func (q Quality) String() string {
	if q == QualityDefault {
		return "default"
	}
	return fmt.Sprintf("%d", int(q))
}

// Spec is an ordered fallback chain of selector clauses.
type Spec struct {
	Clauses   []string
	AudioOnly bool
}

// Expression renders the chain in the tool's "/"-delimited form.
func (s Spec) Expression() string {
	return strings.Join(s.Clauses, "/")
}

// Select returns the download format specification for (quality, audioOnly).
// Clauses run from most to least restrictive so the tool prefers streams that
// need no re-encoding.
func Select(q Quality, audioOnly bool) Spec {
	if audioOnly {
		return Spec{Clauses: []string{"bestaudio"}, AudioOnly: true}
	}
	if q == QualityDefault {
		return Spec{Clauses: []string{
			"bestvideo[ext=mp4][vcodec^=avc1]+bestaudio[ext=m4a]",
			"bestvideo[ext=mp4]+bestaudio[ext=m4a]",
			"best[ext=mp4]",
			"best",
		}}
	}
	h := int(q)
	return Spec{Clauses: []string{
		fmt.Sprintf("bestvideo[height<=%d][ext=mp4][vcodec^=avc1]+bestaudio[ext=m4a]", h),
		fmt.Sprintf("bestvideo[height<=%d][ext=mp4]+bestaudio[ext=m4a]", h),
		fmt.Sprintf("bestvideo[height<=%d][vcodec^=avc1]+bestaudio", h),
		fmt.Sprintf("best[height<=%d][ext=mp4]", h),
		fmt.Sprintf("best[height<=%d]", h),
	}}
}

// QuickSelect returns the selector for direct stream URL resolution. The
// tier is not considered on this path.
func QuickSelect(audioOnly bool) Spec {
	if audioOnly {
		return Spec{Clauses: []string{"bestaudio"}, AudioOnly: true}
	}
	return Spec{Clauses: []string{"best[ext=mp4]", "best"}}
}

// OutputArgs returns the container flags that accompany a download spec.
func (s Spec) OutputArgs() []string {
	if s.AudioOnly {
		return []string{"-x", "--audio-format", AudioFormat}
	}
	return []string{"--merge-output-format", VideoContainer, "--recode-video", VideoContainer}
}
