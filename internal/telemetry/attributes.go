// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared across spans.
const (
	ToolModeKey     = "tool.mode"
	ToolBinKey      = "tool.bin"
	ToolArgCountKey = "tool.arg_count"
	ToolExitCodeKey = "tool.exit_code"
	ToolOutcomeKey  = "tool.outcome"
	ToolReasonKey   = "tool.failure_reason"

	ArtifactNameKey  = "artifact.name"
	ArtifactBytesKey = "artifact.bytes"
	ArtifactKindKey  = "artifact.kind"

	RequestAudioOnlyKey = "request.audio_only"
	RequestQualityKey   = "request.quality"
	RequestCookiesKey   = "request.has_cookies"
)

// ToolAttributes describes a tool invocation before it runs.
func ToolAttributes(mode, bin string, argCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ToolModeKey, mode),
		attribute.String(ToolBinKey, bin),
		attribute.Int(ToolArgCountKey, argCount),
	}
}

// ToolResultAttributes describes how a tool invocation ended.
func ToolResultAttributes(outcome string, exitCode int, reason string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(ToolOutcomeKey, outcome),
		attribute.Int(ToolExitCodeKey, exitCode),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String(ToolReasonKey, reason))
	}
	return attrs
}

// RequestAttributes describes a media request. The URL is deliberately not recorded.
func RequestAttributes(quality string, audioOnly, hasCookies bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RequestQualityKey, quality),
		attribute.Bool(RequestAudioOnlyKey, audioOnly),
		attribute.Bool(RequestCookiesKey, hasCookies),
	}
}

// ArtifactAttributes describes a resolved artifact.
func ArtifactAttributes(name, kind string, size int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ArtifactNameKey, name),
		attribute.String(ArtifactKindKey, kind),
		attribute.Int64(ArtifactBytesKey, size),
	}
}
