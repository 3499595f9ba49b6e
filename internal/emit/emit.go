package emit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/uiprobe/uiprobe/internal/bus"
	"github.com/uiprobe/uiprobe/internal/events"
	"github.com/uiprobe/uiprobe/internal/report"
	"github.com/uiprobe/uiprobe/internal/runctx"
	"github.com/uiprobe/uiprobe/internal/scoring"
)

// Emitter is the publish façade tool and workflow code talks to. Every
// method resolves the active session from the context; with no session set
// the call is a no-op, so tool bodies that also run outside any session
// (direct invocation, tests) can emit unconditionally.
type Emitter struct {
	bus *bus.Bus
	log *zap.Logger
}

func New(b *bus.Bus, log *zap.Logger) *Emitter {
	return &Emitter{bus: b, log: log}
}

// session resolves the active session id, reporting false when none is set.
func (e *Emitter) session(ctx context.Context) (string, bool) {
	id := runctx.SessionID(ctx)
	return id, id != ""
}

// component returns the explicit name, falling back to the context's
// current component.
func component(ctx context.Context, name string) string {
	if name != "" {
		return name
	}
	return runctx.Component(ctx)
}

// Started announces the run has begun on repoPath.
func (e *Emitter) Started(ctx context.Context, repoPath string) {
	sid, ok := e.session(ctx)
	if !ok {
		return
	}
	e.bus.Publish(sid, events.Started{
		SessionID: sid,
		RepoPath:  repoPath,
		Timestamp: time.Now(),
	})
}

// Progress reports step currentStep of totalSteps within phase.
func (e *Emitter) Progress(ctx context.Context, message, phase string, currentStep, totalSteps int) {
	sid, ok := e.session(ctx)
	if !ok {
		return
	}
	e.bus.Publish(sid, events.Progress{
		Message:     message,
		Phase:       phase,
		CurrentStep: currentStep,
		TotalSteps:  totalSteps,
		Timestamp:   time.Now(),
	})
}

// ToolCall records one tool invocation.
func (e *Emitter) ToolCall(ctx context.Context, toolName string, parameters map[string]any) {
	sid, ok := e.session(ctx)
	if !ok {
		return
	}
	e.bus.Publish(sid, events.ToolCall{
		ToolName:   toolName,
		Parameters: parameters,
		Timestamp:  time.Now(),
	})
}

// ComponentStatus reports a fine-grained status for componentName; with an
// empty name the component under test is taken from the context.
func (e *Emitter) ComponentStatus(ctx context.Context, componentName, tool, status, message string, metadata map[string]any) {
	sid, ok := e.session(ctx)
	if !ok {
		return
	}
	e.bus.Publish(sid, events.ComponentStatus{
		ComponentName: component(ctx, componentName),
		Tool:          tool,
		Status:        status,
		Message:       message,
		Metadata:      metadata,
		Timestamp:     time.Now(),
	})
}

// ComponentResult publishes the scored outcome of one component's test run.
func (e *Emitter) ComponentResult(ctx context.Context, componentName string, status scoring.Status, results report.ComponentTestResult) {
	sid, ok := e.session(ctx)
	if !ok {
		return
	}
	e.bus.Publish(sid, events.ComponentResult{
		ComponentName: component(ctx, componentName),
		Status:        status,
		TestResults:   results,
		Timestamp:     time.Now(),
	})
}

// FixSuggestion publishes fs, defaulting its component name from the
// context and stamping the timestamp.
func (e *Emitter) FixSuggestion(ctx context.Context, fs events.FixSuggestion) {
	sid, ok := e.session(ctx)
	if !ok {
		return
	}
	fs.ComponentName = component(ctx, fs.ComponentName)
	fs.Timestamp = time.Now()
	e.bus.Publish(sid, fs)
}

// WorkflowStart opens the workflow stream with the planned scope.
func (e *Emitter) WorkflowStart(ctx context.Context, message string, totalComponents int, tests []string) {
	sid, ok := e.session(ctx)
	if !ok {
		return
	}
	e.bus.Publish(sid, events.WorkflowStart{
		Message:         message,
		TotalComponents: totalComponents,
		Tests:           tests,
		Timestamp:       time.Now(),
	})
}

// WorkflowComponentResult publishes one finished component's result set.
func (e *Emitter) WorkflowComponentResult(ctx context.Context, result report.ComponentTestResult) {
	sid, ok := e.session(ctx)
	if !ok {
		return
	}
	e.bus.Publish(sid, events.WorkflowComponentResult{
		Result:    result,
		Timestamp: time.Now(),
	})
}

// Summary publishes the workflow-level rollup.
func (e *Emitter) Summary(ctx context.Context, summary report.WorkflowSummary) {
	sid, ok := e.session(ctx)
	if !ok {
		return
	}
	e.bus.Publish(sid, events.WorkflowSummary{
		Summary:   summary,
		Timestamp: time.Now(),
	})
}

// Done ends the session without a workflow summary.
func (e *Emitter) Done(ctx context.Context, message string) {
	sid, ok := e.session(ctx)
	if !ok {
		return
	}
	e.bus.Complete(sid, events.Done{Message: message, Timestamp: time.Now()})
}

// Completed ends the workflow session, carrying the summary on the terminal
// frame.
func (e *Emitter) Completed(ctx context.Context, summary report.WorkflowSummary) {
	sid, ok := e.session(ctx)
	if !ok {
		return
	}
	e.bus.Complete(sid, events.Completed{Summary: summary, Timestamp: time.Now()})
}

// Error ends the session after a workflow-level failure in phase.
func (e *Emitter) Error(ctx context.Context, message, phase string) {
	sid, ok := e.session(ctx)
	if !ok {
		return
	}
	e.bus.Fail(sid, events.Error{Message: message, Phase: phase, Timestamp: time.Now()})
}
