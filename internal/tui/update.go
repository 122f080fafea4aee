// Copyright 2025 James Ross
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/table"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, fetchJobs(m.client), tickEvery(m.refreshEvery))
}

func fetchJobs(client *Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		items, err := client.ListJobs(ctx)
		return jobsMsg{items: items, err: err}
	}
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.tbl.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, tea.Batch(fetchJobs(m.client), tickEvery(m.refreshEvery))

	case jobsMsg:
		m.loading = false
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.errText = ""
		m.allItems = msg.items
		m.recordHistory()
		m.applyFilter()
		return m, nil

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.typing {
		switch msg.String() {
		case "esc":
			m.typing = false
			m.filter.Blur()
			m.filter.SetValue("")
			m.applyFilter()
			return m, nil
		case "enter":
			m.typing = false
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "/":
		m.typing = true
		m.filter.Focus()
		return m, nil
	case "r":
		m.loading = true
		return m, fetchJobs(m.client)
	}

	var cmd tea.Cmd
	m.tbl, cmd = m.tbl.Update(msg)
	return m, cmd
}

// recordHistory refreshes the per-status counts and appends one
// sample, the number of finished jobs seen this tick, feeding the
// sparkline in view.go.
func (m *Model) recordHistory() {
	var c statusCounts
	for _, it := range m.allItems {
		switch it.Status {
		case "queued":
			c.queued++
		case "running":
			c.running++
		case "finished":
			c.finished++
		case "failed":
			c.failed++
		}
	}
	m.lastCounts = c
	m.history = append(m.history, float64(c.finished))
	if len(m.history) > m.historyCap {
		m.history = m.history[len(m.history)-m.historyCap:]
	}
}

// applyFilter rebuilds the visible table rows from allItems, fuzzy
// matching against the filter text when one is set.
func (m *Model) applyFilter() {
	query := strings.TrimSpace(m.filter.Value())
	rows := make([]table.Row, 0, len(m.allItems))
	for _, it := range m.allItems {
		if query != "" {
			haystack := it.TenantID + " " + it.JobID
			if !fuzzy.MatchFold(query, haystack) {
				continue
			}
		}
		rows = append(rows, table.Row{
			it.JobID,
			it.TenantID,
			it.Status,
			it.SubmittedAt.Format(time.RFC3339),
		})
	}
	m.tbl.SetRows(rows)
}
