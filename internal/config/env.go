// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/dlking/internal/log"
	"github.com/rs/zerolog"
)

// lookupEnv resolves key and logs where the value came from. ok is false
// when the variable is unset or empty.
func lookupEnv(logger zerolog.Logger, key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	if !exists {
		logger.Debug().Str("key", key).Str("source", "default").Msg("using default value")
		return "", false
	}
	if strings.TrimSpace(value) == "" {
		logger.Debug().Str("key", key).Str("source", "default").
			Msg("using default value (environment variable is empty)")
		return "", false
	}
	lowerKey := strings.ToLower(key)
	if strings.Contains(lowerKey, "token") || strings.Contains(lowerKey, "password") || strings.Contains(lowerKey, "cookie") {
		logger.Debug().Str("key", key).Str("source", "environment").Bool("sensitive", true).
			Msg("using environment variable")
	} else {
		logger.Debug().Str("key", key).Str("value", value).Str("source", "environment").
			Msg("using environment variable")
	}
	return value, true
}

func parseWith[T any](key string, defaultValue T, kind string, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	raw, ok := lookupEnv(logger, key)
	if !ok {
		return defaultValue
	}
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", raw).
			Interface("default", defaultValue).
			Msgf("invalid %s in environment variable, using default", kind)
		return defaultValue
	}
	return v
}

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	if v, ok := lookupEnv(log.WithComponent("config"), key); ok {
		return v
	}
	return defaultValue
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	return parseWith(key, defaultValue, "integer", strconv.Atoi)
}

// ParseDuration reads a duration in Go duration format (e.g. "5s").
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseWith(key, defaultValue, "duration", time.ParseDuration)
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseWith(key, defaultValue, "float", func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseWith(key, defaultValue, "boolean", func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, strconv.ErrSyntax
	})
}

// ParseStringSlice reads a comma separated list. Blank items are dropped.
func ParseStringSlice(key string, defaultValue []string) []string {
	if v, ok := lookupEnv(log.WithComponent("config"), key); ok {
		return splitList(v)
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
