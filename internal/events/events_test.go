package events

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/uiprobe/uiprobe/internal/report"
	"github.com/uiprobe/uiprobe/internal/scoring"
)

func TestMarshalWireNames(t *testing.T) {
	now := time.Now()
	tests := []struct {
		ev   Event
		want Type
	}{
		{Connected{SessionID: "s1", Status: "connected", Timestamp: now}, TypeConnected},
		{Started{SessionID: "s1", RepoPath: "/tmp/repo", Timestamp: now}, TypeStarted},
		{Progress{Message: "cloning", Phase: "setup", CurrentStep: 1, TotalSteps: 4, Timestamp: now}, TypeProgress},
		{ToolCall{ToolName: "run_axe", Parameters: map[string]any{"component": "Button"}, Timestamp: now}, TypeToolCall},
		{ComponentStatus{ComponentName: "Button", Tool: "axe", Status: "testing", Timestamp: now}, TypeComponentStatus},
		{ComponentResult{ComponentName: "Button", Status: scoring.StatusPass, Timestamp: now}, TypeComponentResult},
		{FixSuggestion{ComponentName: "Button", TestType: "accessibility", Severity: 1, Timestamp: now}, TypeFixSuggestion},
		{WorkflowStart{Message: "starting", TotalComponents: 3, Tests: []string{"accessibility"}, Timestamp: now}, TypeWorkflowStart},
		{WorkflowComponentResult{Timestamp: now}, TypeWorkflowComponentResult},
		{WorkflowSummary{Timestamp: now}, TypeWorkflowSummary},
		{Done{Message: "bye", Timestamp: now}, TypeDone},
		{Completed{Timestamp: now}, TypeCompleted},
		{Error{Message: "boom", Phase: "testing", Timestamp: now}, TypeError},
	}

	for _, tt := range tests {
		name, data, err := Marshal(tt.ev)
		if err != nil {
			t.Errorf("Marshal(%T) error: %v", tt.ev, err)
			continue
		}
		if name != tt.want {
			t.Errorf("Marshal(%T) name = %q, want %q", tt.ev, name, tt.want)
		}
		if name != tt.ev.Type() {
			t.Errorf("Marshal(%T) name %q disagrees with Type() %q", tt.ev, name, tt.ev.Type())
		}
		if !json.Valid(data) {
			t.Errorf("Marshal(%T) produced invalid JSON", tt.ev)
		}
	}
}

func TestMarshalRejectsPointerVariants(t *testing.T) {
	if _, _, err := Marshal(&Done{Message: "x"}); err == nil {
		t.Error("Marshal should reject pointer variants, events travel by value")
	}
}

func TestMarshalPayloadFields(t *testing.T) {
	ev := Progress{
		Message:     "testing components",
		Phase:       "testing",
		CurrentStep: 2,
		TotalSteps:  5,
		Timestamp:   time.Now(),
	}
	_, data, err := Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	for _, field := range []string{"message", "phase", "currentStep", "totalSteps", "timestamp"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("progress payload missing %q field", field)
		}
	}
}

func TestComponentResultPayloadNullsUntestedDimension(t *testing.T) {
	score := scoring.WeightedScore(0, 1, 0, 0)
	a11y := report.Graded(scoring.Accessibility, score, report.Violations(0, 1, 0, 0), nil)
	ev := ComponentResult{
		ComponentName: "CardComponent",
		Status:        a11y.Status,
		TestResults: report.ComponentTestResult{
			Name:          "CardComponent",
			Accessibility: &a11y,
		},
		Timestamp: time.Now(),
	}

	_, data, err := Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !strings.Contains(string(data), `"performance":null`) {
		t.Errorf("untested dimension should serialize as null, got: %s", data)
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		t        Type
		terminal bool
	}{
		{TypeConnected, false},
		{TypeProgress, false},
		{TypeComponentResult, false},
		{TypeWorkflowSummary, false},
		{TypeDone, true},
		{TypeCompleted, true},
		{TypeError, true},
	}

	for _, tt := range tests {
		if got := IsTerminal(tt.t); got != tt.terminal {
			t.Errorf("IsTerminal(%q) = %v, want %v", tt.t, got, tt.terminal)
		}
	}
}

func TestEncodeFrame(t *testing.T) {
	frame, err := EncodeFrame(Done{Message: "all done", Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("EncodeFrame error: %v", err)
	}

	s := string(frame)
	if !strings.HasPrefix(s, "event: done\ndata: ") {
		t.Errorf("frame prefix wrong: %q", s)
	}
	if !strings.HasSuffix(s, "\n\n") {
		t.Errorf("frame must end with a blank line: %q", s)
	}
	if strings.Count(s, "\n") != 3 {
		t.Errorf("frame should be exactly three newlines, got %q", s)
	}
}

func TestEncodeEnvelope(t *testing.T) {
	msg, err := EncodeEnvelope(Started{SessionID: "s9", RepoPath: "/repo", Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("EncodeEnvelope error: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("Unmarshal envelope: %v", err)
	}
	if env.Type != TypeStarted {
		t.Errorf("envelope type = %q, want %q", env.Type, TypeStarted)
	}

	var payload Started
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("Unmarshal payload: %v", err)
	}
	if payload.SessionID != "s9" || payload.RepoPath != "/repo" {
		t.Errorf("payload round-trip lost fields: %+v", payload)
	}
}
