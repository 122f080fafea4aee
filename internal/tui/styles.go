// Copyright 2025 James Ross

// Package tui is the operator dashboard: a read-only bubbletea view
// of the job registry polled over the public job API, grounded on the
// reference module's internal/tui package (same model/update/view
// split and adaptive color palette, trimmed to this domain's surface).
package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#0969da", Dark: "#58a6ff"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#56d364"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#bf8700", Dark: "#f9e71e"}
	colorError   = lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#8c959f", Dark: "#6e7681"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#d0d7de", Dark: "#30363d"}
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().Foreground(colorMuted)

	filterPromptStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
)

// statusStyle picks a color for a job status string, matching the
// reference module's pattern of coloring table rows by state.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "finished":
		return lipgloss.NewStyle().Foreground(colorSuccess)
	case "failed":
		return lipgloss.NewStyle().Foreground(colorError)
	case "running":
		return lipgloss.NewStyle().Foreground(colorWarning)
	default:
		return lipgloss.NewStyle().Foreground(colorMuted)
	}
}
