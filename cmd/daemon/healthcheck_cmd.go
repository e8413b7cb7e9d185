// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func runHealthcheckCLI(args []string) int {
	return healthcheck(args, os.Stdout, os.Stderr)
}

func healthcheck(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("healthcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mode := fs.String("mode", "live", "healthcheck mode: live (default) or ready")
	base := fs.String("url", "http://127.0.0.1:3001", "base URL of the API listener")
	timeout := fs.Duration("timeout", 5*time.Second, "check timeout")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := "/health"
	if *mode == "ready" {
		path = "/ready"
	}

	client := http.Client{Timeout: *timeout}
	resp, err := client.Get(strings.TrimRight(*base, "/") + path)
	if err != nil {
		fmt.Fprintf(stderr, "Healthcheck failed (network): %v\n", err)
		return 1
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "Healthcheck failed (status): %s\n", resp.Status)
		return 1
	}

	fmt.Fprintf(stdout, "Healthcheck successful (%s)\n", *mode)
	return 0
}
