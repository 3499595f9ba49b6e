package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/uiprobe/uiprobe/internal/events"
	"github.com/uiprobe/uiprobe/internal/report"
)

func overlayPanel(width int, border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(border)
}

// renderDetail shows the selected component's full results.
func (m Model) renderDetail() string {
	row := m.selected()
	if row == nil {
		return styleDimmed.Render("No component selected.")
	}

	innerW := m.width - 4
	if innerW < 40 {
		innerW = 40
	}

	title := styleHeader.Render(" " + row.name + " ")
	lines := []string{title}
	if row.path != "" {
		lines = append(lines, styleDimmed.Render(row.path))
	}
	lines = append(lines, "")

	if row.result == nil {
		act := row.activity
		if act == "" {
			act = "queued"
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(activityColor(act)).Render(activityGlyph(act)+" "+act))
	} else {
		lines = append(lines, renderDimensionDetail("accessibility", row.result.Accessibility)...)
		lines = append(lines, renderDimensionDetail("performance", row.result.Performance)...)
	}

	if row.fixes > 0 {
		lines = append(lines, "", styleDimmed.Render(fmt.Sprintf("%d fix suggestion(s)  f:view", row.fixes)))
	}
	lines = append(lines, "", styleDimmed.Render("esc:close"))

	return overlayPanel(innerW, colorBorder).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderDimensionDetail formats one dimension block: status line, violation
// counts, then each issue.
func renderDimensionDetail(dim string, tr *report.TestResult) []string {
	label := lipgloss.NewStyle().Foreground(dimensionColor(dim)).Bold(true).Render(dim)
	if tr == nil {
		return []string{label + styleDimmed.Render("  not tested"), ""}
	}

	head := fmt.Sprintf("  %s %s  %d/%d", statusGlyph(tr.Status), tr.Status, tr.Score, tr.PassThreshold)
	lines := []string{label + lipgloss.NewStyle().Foreground(statusColor(tr.Status)).Render(head)}

	v := tr.Violations
	if v.Total > 0 {
		lines = append(lines, styleDimmed.Render(fmt.Sprintf(
			"  %d violations: %d critical, %d serious, %d moderate, %d minor",
			v.Total, v.Critical, v.Serious, v.Moderate, v.Minor)))
	}
	for _, issue := range tr.Issues {
		sev := lipgloss.NewStyle().Foreground(issueSeverityColor(issue.Severity)).Width(9).Render(issue.Severity)
		rule := issue.Rule
		if rule != "" {
			rule += ": "
		}
		lines = append(lines, "  "+sev+" "+rule+issue.Message)
	}
	lines = append(lines, "")
	return lines
}

func issueSeverityColor(severity string) lipgloss.Color {
	switch severity {
	case "critical":
		return colorFail
	case "serious":
		return colorWarning
	case "moderate":
		return colorRetesting
	default:
		return colorDimmed
	}
}

// renderSuggestion shows the current fix suggestion rendered as markdown.
func (m Model) renderSuggestion() string {
	s := m.currentSuggestion()
	if s == nil {
		return styleDimmed.Render("No fix suggestions yet.")
	}

	innerW := m.width - 4
	if innerW < 40 {
		innerW = 40
	}

	badge := lipgloss.NewStyle().Foreground(severityColor(s.Severity)).Bold(true).
		Render(fmt.Sprintf("[severity %d]", s.Severity))
	title := styleHeader.Render(" FIX "+s.ComponentName+" ") + " " + badge

	body := suggestionMarkdown(*s)
	if m.md != nil {
		if rendered, err := m.md.Render(body); err == nil {
			body = rendered
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		body,
		styleDimmed.Render("esc:close"),
	)
	return overlayPanel(innerW, severityColor(s.Severity)).Render(content)
}

// suggestionMarkdown builds the markdown document for a fix suggestion. The
// suggested fix arrives already fenced.
func suggestionMarkdown(s events.FixSuggestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s fix for %s\n\n", s.TestType, s.ComponentName)
	if s.Explanation != "" {
		b.WriteString(s.Explanation + "\n\n")
	}
	if len(s.Violations) > 0 {
		b.WriteString("**Violations**\n\n")
		for _, v := range s.Violations {
			b.WriteString("- " + v + "\n")
		}
		b.WriteString("\n")
	}
	if s.SuggestedFix != "" {
		b.WriteString(s.SuggestedFix + "\n")
	}
	if s.FilePath != "" {
		fmt.Fprintf(&b, "\nTarget file: `%s`\n", s.FilePath)
	}
	return b.String()
}
