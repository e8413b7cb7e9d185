// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldToken     = "token"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldMode      = "mode"
	FieldPID       = "pid"
	FieldExitCode  = "exit_code"
	FieldReason    = "reason"
	FieldDuration  = "duration_ms"

	// Path / URL fields
	FieldPath     = "path"
	FieldFilename = "filename"
	FieldURL      = "url"

	// HTTP fields
	FieldMethod = "method"
	FieldStatus = "status"
	FieldBytes  = "bytes"
	FieldRemote = "remote_addr"
)
