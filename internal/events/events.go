package events

import (
	"time"

	"github.com/uiprobe/uiprobe/internal/report"
	"github.com/uiprobe/uiprobe/internal/scoring"
)

// Type is the wire name of an event as it appears in the SSE `event:` field
// and the WebSocket envelope's `type` field.
type Type string

const (
	TypeConnected               Type = "connected"
	TypeStarted                 Type = "started"
	TypeProgress                Type = "progress"
	TypeToolCall                Type = "tool_call"
	TypeComponentStatus         Type = "component_status"
	TypeComponentResult         Type = "component_result"
	TypeFixSuggestion           Type = "fix_suggestion"
	TypeWorkflowStart           Type = "start"
	TypeWorkflowComponentResult Type = "component-result"
	TypeWorkflowSummary         Type = "summary"
	TypeDone                    Type = "done"
	TypeCompleted               Type = "completed"
	TypeError                   Type = "error"
)

// IsTerminal reports whether t ends the stream. Exactly one terminal event
// is delivered per session, always last.
func IsTerminal(t Type) bool {
	switch t {
	case TypeDone, TypeCompleted, TypeError:
		return true
	}
	return false
}

// Event is the closed set of payloads that flow through the bus. Only the
// variant structs in this package implement it; the unexported method keeps
// the set closed so Marshal's type switch stays exhaustive.
type Event interface {
	Type() Type
	sealed()
}

// Connected acknowledges a freshly registered transport.
type Connected struct {
	SessionID string    `json:"sessionId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Started announces that a session's run has begun on a repository.
type Started struct {
	SessionID string    `json:"sessionId"`
	RepoPath  string    `json:"repoPath"`
	Timestamp time.Time `json:"timestamp"`
}

// Progress is a coarse step counter within a named phase.
type Progress struct {
	Message     string    `json:"message"`
	Phase       string    `json:"phase"`
	CurrentStep int       `json:"currentStep"`
	TotalSteps  int       `json:"totalSteps"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToolCall records one tool invocation made on behalf of the session.
type ToolCall struct {
	ToolName   string         `json:"toolName"`
	Parameters map[string]any `json:"parameters"`
	Timestamp  time.Time      `json:"timestamp"`
}

// ComponentStatus is a fine-grained status update for the component
// currently under test.
type ComponentStatus struct {
	ComponentName string         `json:"componentName"`
	Tool          string         `json:"tool"`
	Status        string         `json:"status"`
	Message       string         `json:"message"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// ComponentResult carries the scored outcome of one component's test run.
type ComponentResult struct {
	ComponentName string                     `json:"componentName"`
	Status        scoring.Status             `json:"status"`
	TestResults   report.ComponentTestResult `json:"testResults"`
	Timestamp     time.Time                  `json:"timestamp"`
}

// FixSuggestion proposes a concrete fix for a failing component. Severity
// runs 1 (worst) to 3.
type FixSuggestion struct {
	ComponentName string    `json:"componentName"`
	TestType      string    `json:"testType"`
	Violations    []string  `json:"violations"`
	SuggestedFix  string    `json:"suggestedFix"`
	Explanation   string    `json:"explanation"`
	FilePath      string    `json:"filePath"`
	Severity      int       `json:"severity"`
	Timestamp     time.Time `json:"timestamp"`
}

// WorkflowStart opens the workflow portion of the stream with the planned
// component count and test dimensions.
type WorkflowStart struct {
	Message         string    `json:"message"`
	TotalComponents int       `json:"totalComponents"`
	Tests           []string  `json:"tests"`
	Timestamp       time.Time `json:"timestamp"`
}

// WorkflowComponentResult wraps a finished component's full result set for
// the workflow consumer.
type WorkflowComponentResult struct {
	Result    report.ComponentTestResult `json:"result"`
	Timestamp time.Time                  `json:"timestamp"`
}

// WorkflowSummary carries the final cross-component rollup.
type WorkflowSummary struct {
	Summary   report.WorkflowSummary `json:"summary"`
	Timestamp time.Time              `json:"timestamp"`
}

// Done terminates a session whose run produced no workflow summary.
type Done struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Completed terminates a workflow session, repeating the summary so late
// consumers get it with the terminal frame.
type Completed struct {
	Summary   report.WorkflowSummary `json:"summary"`
	Timestamp time.Time              `json:"timestamp"`
}

// Error terminates a session after a workflow-level failure.
type Error struct {
	Message   string    `json:"message"`
	Phase     string    `json:"phase"`
	Timestamp time.Time `json:"timestamp"`
}

func (Connected) Type() Type               { return TypeConnected }
func (Started) Type() Type                 { return TypeStarted }
func (Progress) Type() Type                { return TypeProgress }
func (ToolCall) Type() Type                { return TypeToolCall }
func (ComponentStatus) Type() Type         { return TypeComponentStatus }
func (ComponentResult) Type() Type         { return TypeComponentResult }
func (FixSuggestion) Type() Type           { return TypeFixSuggestion }
func (WorkflowStart) Type() Type           { return TypeWorkflowStart }
func (WorkflowComponentResult) Type() Type { return TypeWorkflowComponentResult }
func (WorkflowSummary) Type() Type         { return TypeWorkflowSummary }
func (Done) Type() Type                    { return TypeDone }
func (Completed) Type() Type               { return TypeCompleted }
func (Error) Type() Type                   { return TypeError }

func (Connected) sealed()               {}
func (Started) sealed()                 {}
func (Progress) sealed()                {}
func (ToolCall) sealed()                {}
func (ComponentStatus) sealed()         {}
func (ComponentResult) sealed()         {}
func (FixSuggestion) sealed()           {}
func (WorkflowStart) sealed()           {}
func (WorkflowComponentResult) sealed() {}
func (WorkflowSummary) sealed()         {}
func (Done) sealed()                    {}
func (Completed) sealed()               {}
func (Error) sealed()                   {}
