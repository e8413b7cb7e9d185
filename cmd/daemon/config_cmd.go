// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/dlking/internal/config"
	"github.com/ManuGH/dlking/internal/version"
	"gopkg.in/yaml.v3"
)

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  dlking config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  dlking config dump --effective [--file|-f config.yaml] [--format=yaml|json]")
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dlking config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := strings.TrimSpace(file)
	if configPath == "" {
		configPath = resolveDefaultConfigPath()
	}
	if configPath == "" {
		fmt.Fprintln(stderr, "Error: --file is required (no default config.yaml found in $DLK_DATA_DIR)")
		return 2
	}

	if _, err := config.NewLoader(configPath, version.Version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}

	fmt.Fprintf(stdout, "%s is valid\n", configPath)
	return 0
}

func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dlking config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	var format string
	var effective bool

	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	fs.BoolVar(&effective, "effective", false, "dump effective configuration (defaults + file + env)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !effective {
		fmt.Fprintln(stderr, "Error: --effective is required")
		return 2
	}

	// Without a file the dump shows defaults merged with the environment.
	configPath := strings.TrimSpace(file)
	if configPath == "" {
		configPath = resolveDefaultConfigPath()
	}

	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}

	out := config.Effective(redact(cfg))

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

// redact strips credentials embedded in URLs.
func redact(cfg config.AppConfig) config.AppConfig {
	if cfg.Delivery.PublicBaseURL != "" {
		cfg.Delivery.PublicBaseURL = maskURL(cfg.Delivery.PublicBaseURL)
	}
	return cfg
}
