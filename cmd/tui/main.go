// Copyright 2025 James Ross

// Command tui is the operator dashboard binary: it polls a running
// sandboxd's public job API and renders the live job table, per-status
// counts, and a finished-jobs sparkline. Grounded on the reference
// module's cmd/tui/main.go, retargeted from a direct Redis connection
// to HTTP polling since this domain's job registry lives inside the
// sandboxd process rather than an external store.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesross/wasm-job-sandbox/internal/tui"
)

func main() {
	var apiURL string
	var refresh time.Duration
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&apiURL, "api", "http://127.0.0.1:3000", "Base URL of the sandboxd job API")
	fs.DurationVar(&refresh, "refresh", 2*time.Second, "Poll interval")
	_ = fs.Parse(os.Args[1:])

	m := tui.New(apiURL, refresh)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
		os.Exit(1)
	}
}
