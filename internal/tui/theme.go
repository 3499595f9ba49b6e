package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/uiprobe/uiprobe/internal/scoring"
)

// Status colors.
var (
	colorPass    = lipgloss.Color("#22c55e")
	colorWarning = lipgloss.Color("#d97706")
	colorFail    = lipgloss.Color("#dc2626")
)

// Test dimension colors.
var (
	colorAccessibility = lipgloss.Color("#a855f7")
	colorPerformance   = lipgloss.Color("#3b82f6")
)

// Live activity colors.
var (
	colorAnalyzing = lipgloss.Color("#2563eb")
	colorFixing    = lipgloss.Color("#d97706")
	colorRetesting = lipgloss.Color("#7c3aed")
	colorSkipped   = lipgloss.Color("#854d0e")
)

// UI chrome colors.
var (
	colorBorder  = lipgloss.Color("#4b5563")
	colorDimmed  = lipgloss.Color("#6b7280")
	colorBright  = lipgloss.Color("#f9fafb")
	colorHealthy = lipgloss.Color("#22c55e")
	colorDanger  = lipgloss.Color("#dc2626")
)

// Reusable styles.
var (
	styleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBright)

	styleDimmed = lipgloss.NewStyle().
			Foreground(colorDimmed)
)

// statusColor returns the color for a graded status.
func statusColor(st scoring.Status) lipgloss.Color {
	switch st {
	case scoring.StatusPass:
		return colorPass
	case scoring.StatusWarning:
		return colorWarning
	case scoring.StatusFail:
		return colorFail
	default:
		return colorDimmed
	}
}

// statusGlyph returns a one-cell symbol for a graded status.
func statusGlyph(st scoring.Status) string {
	switch st {
	case scoring.StatusPass:
		return "✓"
	case scoring.StatusWarning:
		return "!"
	case scoring.StatusFail:
		return "✗"
	default:
		return "·"
	}
}

// activityColor returns the color for a live component activity string.
func activityColor(activity string) lipgloss.Color {
	switch activity {
	case "analyzing", "testing":
		return colorAnalyzing
	case "fixing":
		return colorFixing
	case "retesting":
		return colorRetesting
	case "skipped":
		return colorSkipped
	case "tested", "passed":
		return colorPass
	default:
		return colorDimmed
	}
}

// activityGlyph returns a symbol for a live component activity string.
func activityGlyph(activity string) string {
	switch activity {
	case "analyzing", "testing":
		return "●"
	case "fixing":
		return "⚙"
	case "retesting":
		return "↻"
	case "skipped":
		return "◌"
	case "tested", "passed":
		return "✓"
	default:
		return "·"
	}
}

// severityColor maps a fix suggestion severity (1 worst) to a color.
func severityColor(severity int) lipgloss.Color {
	switch severity {
	case 1:
		return colorFail
	case 2:
		return colorWarning
	default:
		return colorDimmed
	}
}

// dimensionColor returns the accent color for a test dimension name.
func dimensionColor(dim string) lipgloss.Color {
	if dim == string(scoring.Performance) {
		return colorPerformance
	}
	return colorAccessibility
}

// progressColor shades the workflow progress bar by completion fraction.
func progressColor(frac float64) lipgloss.Color {
	switch {
	case frac >= 0.999:
		return colorPass
	case frac >= 0.5:
		return colorPerformance
	default:
		return colorAnalyzing
	}
}
