// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedOutput means the tool succeeded but printed something that
// is not the expected document.
var ErrMalformedOutput = errors.New("malformed tool output")

// Info is the metadata summary returned for a URL. Formats is passed
// through from the tool untouched.
type Info struct {
	Title     string          `json:"title"`
	Thumbnail string          `json:"thumbnail,omitempty"`
	Duration  float64         `json:"duration,omitempty"`
	Uploader  string          `json:"uploader,omitempty"`
	URL       string          `json:"url"`
	Filesize  int64           `json:"filesize,omitempty"`
	Formats   json.RawMessage `json:"formats,omitempty"`
}

type rawInfo struct {
	Title          string          `json:"title"`
	Thumbnail      string          `json:"thumbnail"`
	Duration       float64         `json:"duration"`
	Uploader       string          `json:"uploader"`
	Filesize       *float64        `json:"filesize"`
	FilesizeApprox *float64        `json:"filesize_approx"`
	Formats        json.RawMessage `json:"formats"`
}

// ParseInfo decodes the tool's --dump-json document. requestURL is echoed
// back as the URL field.
func ParseInfo(out []byte, requestURL string) (*Info, error) {
	var raw rawInfo
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	info := &Info{
		Title:     raw.Title,
		Thumbnail: raw.Thumbnail,
		Duration:  raw.Duration,
		Uploader:  raw.Uploader,
		URL:       requestURL,
		Formats:   raw.Formats,
	}
	switch {
	case raw.Filesize != nil && *raw.Filesize > 0:
		info.Filesize = int64(*raw.Filesize)
	case raw.FilesizeApprox != nil:
		info.Filesize = int64(*raw.FilesizeApprox)
	}
	if string(info.Formats) == "null" {
		info.Formats = nil
	}
	return info, nil
}
