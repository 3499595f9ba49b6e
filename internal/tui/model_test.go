package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/uiprobe/uiprobe/internal/events"
	"github.com/uiprobe/uiprobe/internal/report"
	"github.com/uiprobe/uiprobe/internal/scoring"
)

func apply(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		mm, _ := m.Update(msg)
		m = mm.(Model)
	}
	return m
}

func passingResult(name string) report.ComponentTestResult {
	a11y := report.Graded(scoring.Accessibility, 96, report.Violations(0, 0, 0, 0), nil)
	perf := report.Graded(scoring.Performance, 88, report.Violations(0, 0, 0, 0), nil)
	return report.ComponentTestResult{
		Name:          name,
		Path:          "src/components/" + name + ".tsx",
		Accessibility: &a11y,
		Performance:   &perf,
	}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModelInitializing(t *testing.T) {
	m := New(nil)
	if v := m.View(); v != "Initializing..." {
		t.Errorf("zero-size view = %q", v)
	}
}

func TestModelConnectingState(t *testing.T) {
	m := apply(t, New(nil), tea.WindowSizeMsg{Width: 100, Height: 40})
	if !strings.Contains(m.View(), "Connecting") {
		t.Error("view should show the connecting state before the stream acks")
	}
}

func TestModelTracksRun(t *testing.T) {
	login := passingResult("LoginForm")
	nav := passingResult("NavBar")

	agg := report.NewAggregator()
	agg.Add(login)
	agg.Add(nav)
	sum := agg.Summary()

	m := apply(t, New(nil),
		tea.WindowSizeMsg{Width: 100, Height: 40},
		ConnectedMsg{Payload: events.Connected{SessionID: "f3a9c2d1-0000", Status: "connected"}},
		StartedMsg{Payload: events.Started{SessionID: "f3a9c2d1-0000", RepoPath: "./webapp", Timestamp: time.Now()}},
		WorkflowStartMsg{Payload: events.WorkflowStart{TotalComponents: 2, Tests: []string{"accessibility", "performance"}}},
		ComponentStatusMsg{Payload: events.ComponentStatus{ComponentName: "LoginForm", Tool: "axe_audit", Status: "analyzing"}},
		FixSuggestionMsg{Payload: events.FixSuggestion{
			ComponentName: "LoginForm",
			TestType:      "accessibility",
			Severity:      1,
			Violations:    []string{"label: form field has no associated label"},
			SuggestedFix:  "```tsx\n<label htmlFor=\"email\">Email</label>\n```",
		}},
		ComponentResultMsg{Payload: events.ComponentResult{ComponentName: "LoginForm", Status: login.Status(), TestResults: login}},
		ComponentResultMsg{Payload: events.ComponentResult{ComponentName: "NavBar", Status: nav.Status(), TestResults: nav}},
		SummaryMsg{Payload: events.WorkflowSummary{Summary: sum}},
		CompletedMsg{Payload: events.Completed{Summary: sum}},
	)

	if !m.connected {
		t.Error("model should be connected")
	}
	if m.total != 2 || m.finished != 2 {
		t.Errorf("total/finished = %d/%d, want 2/2", m.total, m.finished)
	}
	if m.target != 1 {
		t.Errorf("progress target = %v, want 1", m.target)
	}
	if got := len(m.order); got != 2 {
		t.Fatalf("tracked components = %d, want 2", got)
	}
	if m.components["LoginForm"].fixes != 1 {
		t.Errorf("LoginForm fixes = %d, want 1", m.components["LoginForm"].fixes)
	}
	if m.summary == nil || m.summary.OverallStatus != scoring.StatusPass {
		t.Fatalf("summary not recorded: %+v", m.summary)
	}

	v := m.View()
	for _, want := range []string{"LoginForm", "NavBar", "./webapp", "OVERALL", "96/90"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelSelectionWraps(t *testing.T) {
	m := apply(t, New(nil),
		tea.WindowSizeMsg{Width: 100, Height: 40},
		ComponentStatusMsg{Payload: events.ComponentStatus{ComponentName: "NavBar", Status: "analyzing"}},
		ComponentStatusMsg{Payload: events.ComponentStatus{ComponentName: "Toast", Status: "analyzing"}},
	)

	if m.selectedIdx != 0 {
		t.Fatalf("selectedIdx = %d, want 0", m.selectedIdx)
	}
	m = apply(t, m, keyRune('j'))
	if m.selectedIdx != 1 {
		t.Errorf("after j selectedIdx = %d, want 1", m.selectedIdx)
	}
	m = apply(t, m, keyRune('j'))
	if m.selectedIdx != 0 {
		t.Errorf("selection should wrap, got %d", m.selectedIdx)
	}
	m = apply(t, m, keyRune('k'))
	if m.selectedIdx != 1 {
		t.Errorf("after k selectedIdx = %d, want 1", m.selectedIdx)
	}
}

func TestModelOverlays(t *testing.T) {
	m := apply(t, New(nil),
		tea.WindowSizeMsg{Width: 100, Height: 40},
		ComponentStatusMsg{Payload: events.ComponentStatus{ComponentName: "DatePicker", Status: "fixing"}},
	)

	m = apply(t, m, keyRune('f'))
	if m.overlay != OverlayNone {
		t.Error("f without suggestions should not open an overlay")
	}

	m = apply(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.overlay != OverlayDetail {
		t.Fatalf("overlay = %d, want detail", m.overlay)
	}
	if !strings.Contains(m.View(), "DatePicker") {
		t.Error("detail overlay should name the component")
	}

	m = apply(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.overlay != OverlayNone {
		t.Error("esc should close the overlay")
	}

	m = apply(t, m, FixSuggestionMsg{Payload: events.FixSuggestion{
		ComponentName: "DatePicker",
		Severity:      2,
		Violations:    []string{"tabindex: element has tabindex greater than 0"},
		SuggestedFix:  "```tsx\n<input tabIndex={0} />\n```",
	}})
	m = apply(t, m, keyRune('f'))
	if m.overlay != OverlayFix {
		t.Fatalf("overlay = %d, want fix", m.overlay)
	}
	if !strings.Contains(m.View(), "DatePicker") {
		t.Error("fix overlay should name the component")
	}

	m = apply(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m = apply(t, m, keyRune('l'))
	if m.overlay != OverlayLog {
		t.Fatalf("overlay = %d, want log", m.overlay)
	}
	if !strings.Contains(m.View(), "EVENT LOG") {
		t.Error("log overlay should render the event log")
	}
}

func TestModelRunError(t *testing.T) {
	m := apply(t, New(nil),
		tea.WindowSizeMsg{Width: 100, Height: 40},
		RunErrorMsg{Payload: events.Error{Message: "repo path is required", Phase: "setup"}},
	)
	v := m.View()
	if !strings.Contains(v, "run failed") || !strings.Contains(v, "setup") {
		t.Errorf("error banner missing from view")
	}
	if m.target != 1 {
		t.Errorf("terminal error should finish the progress bar, target = %v", m.target)
	}
}

func TestModelFrameStopsWhenClosedAndSettled(t *testing.T) {
	m := apply(t, New(nil), StreamClosedMsg{})
	mm, cmd := m.Update(frameMsg(time.Now()))
	m = mm.(Model)
	if cmd != nil {
		t.Error("settled frame after close should stop ticking")
	}
	if m.pos != m.target {
		t.Errorf("pos = %v, want %v", m.pos, m.target)
	}
}

func TestModelQuitCancelsStream(t *testing.T) {
	m := New(nil)
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("quit should produce a command")
	}
	if m.ctx.Err() == nil {
		t.Error("quit should cancel the stream context")
	}
}

func TestSuggestionMarkdown(t *testing.T) {
	md := suggestionMarkdown(events.FixSuggestion{
		ComponentName: "LoginForm",
		TestType:      "accessibility",
		Explanation:   "fix attempt 1 for LoginForm",
		Violations:    []string{"label: form field has no associated label"},
		SuggestedFix:  "```tsx\n<label htmlFor=\"email\">Email</label>\n```",
		FilePath:      "src/components/LoginForm.tsx",
	})
	for _, want := range []string{"## accessibility fix for LoginForm", "- label:", "```tsx", "src/components/LoginForm.tsx"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{time.Minute, "1m"},
		{3*time.Minute + 20*time.Second, "3m"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestRenderProgressBarClamps(t *testing.T) {
	if out := renderProgressBar(-0.5, 40); !strings.Contains(out, "  0%") {
		t.Errorf("negative fraction should clamp to 0%%: %q", out)
	}
	if out := renderProgressBar(1.7, 40); !strings.Contains(out, "100%") {
		t.Errorf("overshoot should clamp to 100%%: %q", out)
	}
}
