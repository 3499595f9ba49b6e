package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const maxLogEntries = 200

// logEntry is a single event log line.
type logEntry struct {
	at   time.Time
	kind string // "evt", "tool", "fix", "sum", "err"
	msg  string
}

// eventLog is a capped scrollback of everything seen on the stream.
type eventLog struct {
	entries []logEntry
	offset  int // scroll offset from bottom
}

// add appends a log entry and caps the buffer.
func (l *eventLog) add(kind, msg string) {
	l.entries = append(l.entries, logEntry{at: time.Now(), kind: kind, msg: msg})
	if len(l.entries) > maxLogEntries {
		l.entries = l.entries[len(l.entries)-maxLogEntries:]
	}
	l.offset = 0
}

func (l *eventLog) scrollUp(n int) {
	l.offset += n
	limit := len(l.entries) - 1
	if limit < 0 {
		limit = 0
	}
	if l.offset > limit {
		l.offset = limit
	}
}

func (l *eventLog) scrollDown(n int) {
	l.offset -= n
	if l.offset < 0 {
		l.offset = 0
	}
}

// tail renders the newest n entries as dimmed lines for the inline feed.
func (l eventLog) tail(n int) []string {
	start := len(l.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, n)
	for _, e := range l.entries[start:] {
		out = append(out, "  "+renderEntry(e, 0))
	}
	return out
}

// view renders the scrollable log overlay.
func (l eventLog) view(width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}
	visible := height - 6
	if visible < 3 {
		visible = 3
	}

	title := styleHeader.Render(" EVENT LOG ")
	help := styleDimmed.Render(fmt.Sprintf("j/k:scroll  esc:close  %d entries", len(l.entries)))

	if len(l.entries) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", styleDimmed.Render("  No events yet."), "", help)
		return logPanel(innerW).Render(content)
	}

	end := len(l.entries) - l.offset
	start := end - visible
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}

	var lines []string
	for _, e := range l.entries[start:end] {
		lines = append(lines, renderEntry(e, innerW))
	}

	scrollNote := ""
	if l.offset > 0 {
		scrollNote = styleDimmed.Render(fmt.Sprintf(" ↓ %d more", l.offset))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n"), scrollNote, help)
	return logPanel(innerW).Render(content)
}

func logPanel(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(colorBorder)
}

// renderEntry formats one line, truncating the message when width > 0.
func renderEntry(e logEntry, width int) string {
	ts := styleDimmed.Render(e.at.Format("15:04:05.000"))
	kind := lipgloss.NewStyle().Foreground(logKindColor(e.kind)).Width(5).Render(e.kind)
	msg := e.msg
	if width > 24 && len(msg) > width-20 {
		msg = msg[:width-23] + "..."
	}
	return fmt.Sprintf("%s %s %s", ts, kind, msg)
}

func logKindColor(kind string) lipgloss.Color {
	switch kind {
	case "tool":
		return colorFixing
	case "fix":
		return colorAccessibility
	case "sum":
		return colorPass
	case "err":
		return colorDanger
	default:
		return colorAnalyzing
	}
}
