// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/ManuGH/dlking/internal/format"
	"golang.org/x/net/idna"
)

// Request is a caller's media request as decoded from the API body.
type Request struct {
	URL       string `json:"url"`
	Cookies   string `json:"cookies,omitempty"`
	AudioOnly bool   `json:"audioOnly,omitempty"`
	Quality   string `json:"quality,omitempty"`
}

// ValidationError reports a request rejected before any work started.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// plan is a validated request.
type plan struct {
	url        string
	quality    format.Quality
	audioOnly  bool
	hasCookies bool
}

func (r Request) validate() (plan, error) {
	target, err := normalizeURL(r.URL)
	if err != nil {
		return plan{}, err
	}
	q, audio, err := format.ParseQuality(r.Quality)
	if err != nil {
		return plan{}, &ValidationError{Field: "quality", Message: "Unsupported quality: " + r.Quality}
	}
	return plan{
		url:        target,
		quality:    q,
		audioOnly:  audio || r.AudioOnly,
		hasCookies: strings.TrimSpace(r.Cookies) != "",
	}, nil
}

// normalizeURL accepts absolute http(s) URLs with a host. Internationalised
// hosts are converted to their ASCII form.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &ValidationError{Field: "url", Message: "URL is required"}
	}
	invalid := &ValidationError{Field: "url", Message: "URL must be an absolute http or https URL"}

	u, err := url.Parse(raw)
	if err != nil {
		return "", invalid
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", invalid
	}
	host := u.Hostname()
	if host == "" {
		return "", invalid
	}
	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return "", invalid
		}
		if port := u.Port(); port != "" {
			u.Host = ascii + ":" + port
		} else {
			u.Host = ascii
		}
	}
	return u.String(), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
