// Copyright 2025 James Ross
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
)

// statusCounts is a snapshot used to drive the throughput sparkline:
// one sample per refresh tick, holding how many jobs were in each
// terminal/non-terminal bucket at that moment.
type statusCounts struct {
	queued, running, finished, failed int
}

type jobsMsg struct {
	items []JobListItem
	err   error
}

type tickMsg time.Time

// Model is the root bubbletea model for the operator dashboard.
type Model struct {
	client       *Client
	refreshEvery time.Duration

	width, height int

	spinner spinner.Model
	loading bool
	errText string

	tbl    table.Model
	filter textinput.Model
	typing bool

	allItems []JobListItem

	// history feeds the finished-jobs sparkline rendered in view.go,
	// capped so the chart stays a fixed width regardless of uptime.
	history    []float64
	historyCap int
	lastCounts statusCounts
}

// New constructs the dashboard model. baseURL points at the running
// sandboxd's public job API (e.g. http://127.0.0.1:3000).
func New(baseURL string, refreshEvery time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	filter := textinput.New()
	filter.Placeholder = "filter by tenant or job id (/ to focus, esc to clear)"
	filter.CharLimit = 128

	columns := []table.Column{
		{Title: "Job ID", Width: 36},
		{Title: "Tenant", Width: 16},
		{Title: "Status", Width: 10},
		{Title: "Submitted", Width: 20},
	}
	tbl := table.New(table.WithColumns(columns), table.WithFocused(true))

	if refreshEvery <= 0 {
		refreshEvery = 2 * time.Second
	}

	return Model{
		client:       NewClient(baseURL),
		refreshEvery: refreshEvery,
		spinner:      sp,
		tbl:          tbl,
		filter:       filter,
		historyCap:   60,
	}
}
