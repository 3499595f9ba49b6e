package tui

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/uiprobe/uiprobe/internal/events"
	"github.com/uiprobe/uiprobe/internal/report"
)

const fps = 30

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDetail
	OverlayFix
	OverlayLog
)

// frameMsg drives the progress bar spring animation.
type frameMsg time.Time

func frameTick() tea.Cmd {
	return tea.Tick(time.Second/fps, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// componentRow is the live view of one component under test.
type componentRow struct {
	name     string
	path     string
	activity string
	tool     string
	fixes    int
	result   *report.ComponentTestResult
}

// Model is the root Bubble Tea model.
type Model struct {
	stream *Stream
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int

	spin spinner.Model
	md   *glamour.TermRenderer

	// Connection state.
	connected bool
	closed    bool
	closeErr  error

	// Run state.
	sessionID string
	repoPath  string
	phase     string
	startedAt time.Time
	endedAt   time.Time

	components  map[string]*componentRow
	order       []string // sorted component names
	selectedIdx int
	total       int
	finished    int
	toolCalls   int

	suggestions []events.FixSuggestion
	summary     *report.WorkflowSummary
	runErr      *events.Error

	overlay Overlay
	log     eventLog

	// Progress spring.
	spring harmonica.Spring
	pos    float64
	vel    float64
	target float64
}

// New creates the root model around a stream. A nil stream renders but
// never receives events, which the tests use.
func New(stream *Stream) Model {
	ctx, cancel := context.WithCancel(context.Background())
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorAnalyzing)
	return Model{
		stream:     stream,
		ctx:        ctx,
		cancel:     cancel,
		keys:       DefaultKeyMap(),
		spin:       sp,
		components: make(map[string]*componentRow),
		spring:     harmonica.NewSpring(harmonica.FPS(fps), 8.0, 0.7),
	}
}

// Init starts the stream and the animation ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.start(), frameTick())
}

func (m Model) start() tea.Cmd {
	if m.stream == nil {
		return nil
	}
	return m.stream.Start(m.ctx)
}

func (m Model) next() tea.Cmd {
	if m.stream == nil {
		return nil
	}
	return m.stream.Next()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		wrap := msg.Width - 8
		if wrap > 100 {
			wrap = 100
		}
		if wrap < 20 {
			wrap = 20
		}
		if r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrap),
		); err == nil {
			m.md = r
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.closed {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case frameMsg:
		m.pos, m.vel = m.spring.Update(m.pos, m.vel, m.target)
		if m.closed && math.Abs(m.target-m.pos) < 0.001 {
			m.pos = m.target
			return m, nil
		}
		return m, frameTick()

	case ConnectedMsg:
		m.connected = true
		m.sessionID = msg.Payload.SessionID
		m.log.add("evt", "connected session="+msg.Payload.SessionID)
		return m, m.next()

	case StartedMsg:
		m.repoPath = msg.Payload.RepoPath
		m.startedAt = msg.Payload.Timestamp
		if m.startedAt.IsZero() {
			m.startedAt = time.Now()
		}
		m.phase = "setup"
		m.log.add("evt", "started repo="+msg.Payload.RepoPath)
		return m, m.next()

	case ProgressMsg:
		m.phase = msg.Payload.Phase
		m.log.add("evt", fmt.Sprintf("%s %d/%d %s",
			msg.Payload.Phase, msg.Payload.CurrentStep, msg.Payload.TotalSteps, msg.Payload.Message))
		return m, m.next()

	case ToolCallMsg:
		m.toolCalls++
		m.log.add("tool", msg.Payload.ToolName+paramSummary(msg.Payload.Parameters))
		return m, m.next()

	case ComponentStatusMsg:
		row := m.row(msg.Payload.ComponentName)
		row.activity = msg.Payload.Status
		row.tool = msg.Payload.Tool
		m.rebuildOrder()
		m.log.add("evt", msg.Payload.ComponentName+" "+msg.Payload.Status)
		return m, m.next()

	case ComponentResultMsg:
		row := m.row(msg.Payload.ComponentName)
		res := msg.Payload.TestResults
		row.result = &res
		if row.path == "" {
			row.path = res.Path
		}
		if row.activity != "skipped" {
			row.activity = "tested"
		}
		m.finished++
		if m.total > 0 {
			m.target = float64(m.finished) / float64(m.total)
		}
		m.rebuildOrder()
		m.log.add("evt", fmt.Sprintf("%s result %s", msg.Payload.ComponentName, msg.Payload.Status))
		return m, m.next()

	case FixSuggestionMsg:
		m.suggestions = append(m.suggestions, msg.Payload)
		row := m.row(msg.Payload.ComponentName)
		row.fixes++
		lead := msg.Payload.FilePath
		if len(msg.Payload.Violations) > 0 {
			lead = msg.Payload.Violations[0]
		}
		m.log.add("fix", msg.Payload.ComponentName+" "+lead)
		m.rebuildOrder()
		return m, m.next()

	case WorkflowStartMsg:
		m.total = msg.Payload.TotalComponents
		m.phase = "testing"
		if m.total > 0 {
			m.target = float64(m.finished) / float64(m.total)
		}
		m.log.add("evt", fmt.Sprintf("workflow start, %d components", msg.Payload.TotalComponents))
		return m, m.next()

	case WorkflowResultMsg:
		res := msg.Payload.Result
		row := m.row(res.Name)
		if row.result == nil {
			row.result = &res
		}
		if row.path == "" {
			row.path = res.Path
		}
		m.rebuildOrder()
		return m, m.next()

	case SummaryMsg:
		s := msg.Payload.Summary
		m.summary = &s
		m.log.add("sum", fmt.Sprintf("summary %s avg %.1f", s.OverallStatus, s.OverallScore))
		return m, m.next()

	case DoneMsg:
		m.markEnded()
		m.log.add("evt", "done: "+msg.Payload.Message)
		return m, m.next()

	case CompletedMsg:
		s := msg.Payload.Summary
		m.summary = &s
		m.markEnded()
		m.log.add("sum", fmt.Sprintf("completed %s avg %.1f", s.OverallStatus, s.OverallScore))
		return m, m.next()

	case RunErrorMsg:
		p := msg.Payload
		m.runErr = &p
		m.markEnded()
		m.log.add("err", p.Phase+": "+p.Message)
		return m, m.next()

	case StreamClosedMsg:
		m.closed = true
		m.closeErr = msg.Err
		if msg.Err != nil {
			m.log.add("err", "stream closed: "+msg.Err.Error())
		} else {
			m.log.add("evt", "stream closed")
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) markEnded() {
	if m.endedAt.IsZero() {
		m.endedAt = time.Now()
	}
	m.target = 1
}

// row returns the live row for a component, creating it on first sight.
func (m Model) row(name string) *componentRow {
	if r, ok := m.components[name]; ok {
		return r
	}
	r := &componentRow{name: name}
	m.components[name] = r
	return r
}

func (m *Model) rebuildOrder() {
	m.order = make([]string, 0, len(m.components))
	for name := range m.components {
		m.order = append(m.order, name)
	}
	sort.Strings(m.order)
	if m.selectedIdx >= len(m.order) {
		m.selectedIdx = 0
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.overlay != OverlayNone {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.overlay = OverlayNone
		case key.Matches(msg, m.keys.Quit):
			m.cancel()
			return m, tea.Quit
		case m.overlay == OverlayLog && key.Matches(msg, m.keys.LogUp):
			m.log.scrollUp(1)
		case m.overlay == OverlayLog && key.Matches(msg, m.keys.LogDown):
			m.log.scrollDown(1)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Down):
		if len(m.order) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.order)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.order) > 0 {
			m.selectedIdx = (m.selectedIdx - 1 + len(m.order)) % len(m.order)
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		if len(m.order) > 0 {
			m.overlay = OverlayDetail
		}
		return m, nil

	case key.Matches(msg, m.keys.Fix):
		if m.currentSuggestion() != nil {
			m.overlay = OverlayFix
		}
		return m, nil

	case key.Matches(msg, m.keys.Log):
		m.overlay = OverlayLog
		return m, nil
	}

	return m, nil
}

// selected returns the currently highlighted row, or nil.
func (m Model) selected() *componentRow {
	if len(m.order) == 0 || m.selectedIdx >= len(m.order) {
		return nil
	}
	return m.components[m.order[m.selectedIdx]]
}

// currentSuggestion picks the newest suggestion for the selected component,
// falling back to the newest overall.
func (m Model) currentSuggestion() *events.FixSuggestion {
	if len(m.suggestions) == 0 {
		return nil
	}
	if row := m.selected(); row != nil {
		for i := len(m.suggestions) - 1; i >= 0; i-- {
			if m.suggestions[i].ComponentName == row.name {
				return &m.suggestions[i]
			}
		}
	}
	return &m.suggestions[len(m.suggestions)-1]
}

// paramSummary renders tool parameters as a compact suffix.
func paramSummary(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for _, k := range keys {
		out += fmt.Sprintf(" %s=%v", k, params[k])
	}
	return out
}
