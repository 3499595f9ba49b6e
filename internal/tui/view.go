package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/uiprobe/uiprobe/internal/report"
	"github.com/uiprobe/uiprobe/internal/scoring"
)

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	switch m.overlay {
	case OverlayDetail:
		return m.renderDetail()
	case OverlayFix:
		return m.renderSuggestion()
	case OverlayLog:
		return m.log.view(m.width, m.height)
	}

	sections := []string{
		m.renderStatusBar(),
		m.renderStats(),
		m.renderTable(),
	}
	if m.runErr != nil {
		sections = append(sections, m.renderRunError())
	}
	if m.summary != nil {
		sections = append(sections, m.renderSummary())
	}
	if m.closed && m.closeErr != nil && m.runErr == nil {
		sections = append(sections, lipgloss.NewStyle().Foreground(colorDanger).
			Render("  stream lost: "+m.closeErr.Error()))
	}
	sections = append(sections,
		m.renderLogTail(),
		styleDimmed.Render("  j/k:navigate  enter:detail  f:fix  l:log  q:quit"),
	)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) barWidth() int {
	if m.width < 40 {
		return 40
	}
	return m.width
}

// renderStatusBar shows connection state, session, repo and elapsed time.
func (m Model) renderStatusBar() string {
	var connStr string
	switch {
	case m.closed:
		connStr = styleDimmed.Render("○ Closed")
	case m.connected:
		connStr = lipgloss.NewStyle().Foreground(colorHealthy).Render("● Connected")
	default:
		connStr = m.spin.View() + lipgloss.NewStyle().Foreground(colorWarning).Render(" Connecting...")
	}

	parts := []string{connStr}
	if m.sessionID != "" {
		id := m.sessionID
		if len(id) > 8 {
			id = id[:8]
		}
		parts = append(parts, styleDimmed.Render("session ")+lipgloss.NewStyle().Foreground(colorBright).Render(id))
	}
	if m.repoPath != "" {
		parts = append(parts, styleDimmed.Render("repo ")+lipgloss.NewStyle().Foreground(colorBright).Render(m.repoPath))
	}
	if m.phase != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorRetesting).Render(m.phase))
	}
	if !m.startedAt.IsZero() {
		parts = append(parts, styleDimmed.Render(m.elapsed()))
	}

	sep := lipgloss.NewStyle().Foreground(colorBorder).Render(" | ")
	return lipgloss.NewStyle().
		Width(m.barWidth()).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(colorBorder).
		Render(strings.Join(parts, sep))
}

func (m Model) elapsed() string {
	if m.startedAt.IsZero() {
		return ""
	}
	end := m.endedAt
	if end.IsZero() {
		end = time.Now()
	}
	return formatElapsed(end.Sub(m.startedAt))
}

// formatElapsed renders a duration as a compact string (e.g. "42s", "3m").
func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}

// renderStats shows aggregate counts and the animated workflow progress bar.
func (m Model) renderStats() string {
	var pass, warn, fail int
	for _, name := range m.order {
		row := m.components[name]
		if row.result == nil {
			continue
		}
		switch row.result.Status() {
		case scoring.StatusPass:
			pass++
		case scoring.StatusWarning:
			warn++
		case scoring.StatusFail:
			fail++
		}
	}

	statStyle := lipgloss.NewStyle().Padding(0, 1)
	stats := []string{
		statStyle.Foreground(colorBright).Render(fmt.Sprintf("Components: %d/%d", m.finished, m.total)),
		statStyle.Foreground(colorPass).Render(fmt.Sprintf("Pass: %d", pass)),
		statStyle.Foreground(colorWarning).Render(fmt.Sprintf("Warn: %d", warn)),
		statStyle.Foreground(colorFail).Render(fmt.Sprintf("Fail: %d", fail)),
		statStyle.Foreground(colorFixing).Render(fmt.Sprintf("Fixes: %d", len(m.suggestions))),
		statStyle.Foreground(colorAnalyzing).Render(fmt.Sprintf("Tools: %d", m.toolCalls)),
	}
	sep := lipgloss.NewStyle().Foreground(colorBorder).Render(" | ")
	row := strings.Join(stats, sep)

	bar := renderProgressBar(m.pos, m.barWidth()-6)

	return lipgloss.NewStyle().
		Width(m.barWidth()).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Render(lipgloss.JoinVertical(lipgloss.Left, row, bar))
}

// renderProgressBar draws the workflow completion bar at the spring's
// current position.
func renderProgressBar(frac float64, width int) string {
	if width < 12 {
		width = 12
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	labelWidth := 5
	fillWidth := width - labelWidth
	filled := int(frac * float64(fillWidth))
	if filled > fillWidth {
		filled = fillWidth
	}

	color := progressColor(frac)
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	bar += lipgloss.NewStyle().Foreground(colorBorder).Render(strings.Repeat("░", fillWidth-filled))
	label := fmt.Sprintf(" %3.0f%%", frac*100)

	return bar + lipgloss.NewStyle().Foreground(color).Render(label)
}

// renderTable renders the per-component score table.
func (m Model) renderTable() string {
	header := styleHeader.Render("  Components")

	if len(m.order) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			header,
			styleDimmed.Render("  Waiting for components..."),
		)
	}

	colName := 22
	colDim := 12
	colFixes := 6
	colActivity := 12

	dimStyle := lipgloss.NewStyle().Foreground(colorDimmed)

	tableHeader := fmt.Sprintf("  %-2s %-*s %-*s %-*s %*s  %-*s",
		"#",
		colName, "Component",
		colDim, "A11y",
		colDim, "Perf",
		colFixes, "Fixes",
		colActivity, "Activity",
	)
	lines := []string{
		header,
		dimStyle.Render(tableHeader),
		dimStyle.Render("  " + strings.Repeat("─", min(m.barWidth()-4, colName+2*colDim+colFixes+colActivity+8))),
	}

	for i, name := range m.order {
		row := m.components[name]

		prefix := "  "
		if i == m.selectedIdx {
			prefix = lipgloss.NewStyle().Foreground(colorBright).Bold(true).Render("> ")
		}

		display := name
		if len(display) > colName-1 {
			display = display[:colName-2] + "…"
		}
		nameStr := lipgloss.NewStyle().Foreground(colorBright).Width(colName).Render(display)

		var a11y, perf *report.TestResult
		if row.result != nil {
			a11y = row.result.Accessibility
			perf = row.result.Performance
		}
		pending := row.result == nil

		fixStr := dimStyle.Width(colFixes).Align(lipgloss.Right).Render(fmt.Sprintf("%d", row.fixes))

		actStr := lipgloss.NewStyle().Foreground(activityColor(row.activity)).Width(colActivity).
			Render(activityGlyph(row.activity) + " " + row.activity)

		line := fmt.Sprintf("%s%-2d %s %s %s %s  %s",
			prefix, i+1, nameStr,
			renderScoreCell(a11y, pending, colDim),
			renderScoreCell(perf, pending, colDim),
			fixStr, actStr)
		lines = append(lines, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderScoreCell formats one dimension's score as "score/threshold glyph".
func renderScoreCell(tr *report.TestResult, pending bool, width int) string {
	if tr == nil {
		cell := "—"
		if pending {
			cell = "…"
		}
		return styleDimmed.Width(width).Render(cell)
	}
	st := lipgloss.NewStyle().Foreground(statusColor(tr.Status)).Width(width)
	return st.Render(fmt.Sprintf("%3d/%-3d %s", tr.Score, tr.PassThreshold, statusGlyph(tr.Status)))
}

// renderSummary shows the final workflow rollup.
func (m Model) renderSummary() string {
	s := m.summary

	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(statusColor(s.OverallStatus)).
		Render(fmt.Sprintf("  OVERALL %s %s  avg %.1f  (%d components)",
			statusGlyph(s.OverallStatus), strings.ToUpper(string(s.OverallStatus)), s.OverallScore, s.TotalComponents))

	lines := []string{banner}
	lines = append(lines, renderRollup("accessibility", s.Accessibility))
	lines = append(lines, renderRollup("performance", s.Performance))

	return lipgloss.NewStyle().
		Width(m.barWidth()).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(statusColor(s.OverallStatus)).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderRollup formats one dimension's aggregate line. A nil rollup means
// the dimension was never tested.
func renderRollup(dim string, r *report.DimensionRollup) string {
	label := lipgloss.NewStyle().Foreground(dimensionColor(dim)).Width(14).Render(dim)
	if r == nil {
		return "  " + label + styleDimmed.Render(" not tested")
	}
	body := fmt.Sprintf(" %s %-7s avg %5.1f   %d pass / %d warn / %d fail of %d",
		statusGlyph(r.Status), r.Status, r.AverageScore, r.Passed, r.Warnings, r.Failed, r.Tested)
	return "  " + label + lipgloss.NewStyle().Foreground(statusColor(r.Status)).Render(body)
}

// renderRunError shows the terminal error banner.
func (m Model) renderRunError() string {
	return lipgloss.NewStyle().
		Width(m.barWidth()).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorDanger).
		Render(lipgloss.NewStyle().Foreground(colorDanger).Bold(true).
			Render(fmt.Sprintf("✗ run failed in %s: %s", m.runErr.Phase, m.runErr.Message)))
}

// renderLogTail shows the newest log entries under the table.
func (m Model) renderLogTail() string {
	tail := m.log.tail(5)
	if len(tail) == 0 {
		return ""
	}
	lines := []string{styleDimmed.Render("  Recent")}
	lines = append(lines, tail...)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
