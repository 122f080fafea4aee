// Copyright 2025 James Ross
package tui

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("wasm job sandbox — operator dashboard"))
	b.WriteString("\n\n")

	if m.typing || m.filter.Value() != "" {
		b.WriteString(filterPromptStyle.Render("filter: "))
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
	}

	b.WriteString(panelStyle.Render(m.tbl.View()))
	b.WriteString("\n\n")

	b.WriteString(m.renderSummary())
	b.WriteString("\n\n")

	if chart := m.renderChart(); chart != "" {
		b.WriteString(chart)
		b.WriteString("\n\n")
	}

	if m.errText != "" {
		b.WriteString(statusStyle("failed").Render("error: " + m.errText))
		b.WriteString("\n")
	}

	help := "q quit  •  / filter  •  r refresh  •  ↑/↓ select"
	if m.loading {
		help = m.spinner.View() + " refreshing…  " + help
	}
	b.WriteString(statusBarStyle.Render(help))
	return b.String()
}

func (m Model) renderSummary() string {
	c := m.lastCounts
	return fmt.Sprintf("%s  %s  %s  %s",
		statusStyle("queued").Render(fmt.Sprintf("queued:%d", c.queued)),
		statusStyle("running").Render(fmt.Sprintf("running:%d", c.running)),
		statusStyle("finished").Render(fmt.Sprintf("finished:%d", c.finished)),
		statusStyle("failed").Render(fmt.Sprintf("failed:%d", c.failed)),
	)
}

// renderChart draws a small finished-job-count sparkline over the
// recent history window, using the same library the reference module
// reaches for when it needs a terminal chart.
func (m Model) renderChart() string {
	if len(m.history) < 2 {
		return ""
	}
	return asciigraph.Plot(m.history, asciigraph.Height(6), asciigraph.Width(50), asciigraph.Caption("finished jobs (recent polls)"))
}
