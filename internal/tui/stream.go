package tui

import (
	"context"
	"encoding/json"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/uiprobe/uiprobe/internal/client"
	"github.com/uiprobe/uiprobe/internal/events"
)

// Bubble Tea messages, one per stream event.

// ConnectedMsg is the server's transport acknowledgement.
type ConnectedMsg struct{ Payload events.Connected }

// StartedMsg marks the beginning of the run.
type StartedMsg struct{ Payload events.Started }

// ProgressMsg reports a coarse step within a phase.
type ProgressMsg struct{ Payload events.Progress }

// ToolCallMsg records one tool invocation.
type ToolCallMsg struct{ Payload events.ToolCall }

// ComponentStatusMsg is a live status change for one component.
type ComponentStatusMsg struct{ Payload events.ComponentStatus }

// ComponentResultMsg delivers a component's graded scores.
type ComponentResultMsg struct{ Payload events.ComponentResult }

// FixSuggestionMsg proposes a fix for a failing component.
type FixSuggestionMsg struct{ Payload events.FixSuggestion }

// WorkflowStartMsg announces the planned component count.
type WorkflowStartMsg struct{ Payload events.WorkflowStart }

// WorkflowResultMsg wraps a finished component's full result set.
type WorkflowResultMsg struct{ Payload events.WorkflowComponentResult }

// SummaryMsg carries the final cross-component rollup.
type SummaryMsg struct{ Payload events.WorkflowSummary }

// DoneMsg ends a session that produced no summary.
type DoneMsg struct{ Payload events.Done }

// CompletedMsg ends a workflow session.
type CompletedMsg struct{ Payload events.Completed }

// RunErrorMsg ends a session after a workflow-level failure.
type RunErrorMsg struct{ Payload events.Error }

// StreamClosedMsg is delivered once the underlying stream stops, after any
// terminal event. A nil Err means the stream ended cleanly.
type StreamClosedMsg struct{ Err error }

// Stream adapts the reconnecting event stream client to Bubble Tea's
// message loop. Start launches the reader; each delivered message must be
// followed by a Next command to receive the one after it.
type Stream struct {
	client *client.Client
	ch     chan tea.Msg
}

// NewStream builds a stream for the given URL.
func NewStream(url string, opts client.Options) *Stream {
	s := &Stream{ch: make(chan tea.Msg, 64)}
	s.client = client.New(url, func(f client.Frame) {
		if msg := decode(f); msg != nil {
			s.ch <- msg
		}
	}, opts)
	return s
}

// Start runs the client until the stream ends, then delivers a
// StreamClosedMsg. The returned command yields the first message.
func (s *Stream) Start(ctx context.Context) tea.Cmd {
	go func() {
		err := s.client.Run(ctx)
		s.ch <- StreamClosedMsg{Err: err}
		close(s.ch)
	}()
	return s.Next()
}

// Next returns a command that waits for the next stream message.
func (s *Stream) Next() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-s.ch
		if !ok {
			return nil
		}
		return msg
	}
}

// decode unmarshals one frame into its typed message. Unknown event names
// and malformed payloads yield nil and are dropped.
func decode(f client.Frame) tea.Msg {
	switch events.Type(f.Event) {
	case events.TypeConnected:
		var p events.Connected
		if json.Unmarshal(f.Data, &p) != nil {
			return nil
		}
		return ConnectedMsg{Payload: p}
	case events.TypeStarted:
		var p events.Started
		if json.Unmarshal(f.Data, &p) != nil {
			return nil
		}
		return StartedMsg{Payload: p}
	case events.TypeProgress:
		var p events.Progress
		if json.Unmarshal(f.Data, &p) != nil {
			return nil
		}
		return ProgressMsg{Payload: p}
	case events.TypeToolCall:
		var p events.ToolCall
		if json.Unmarshal(f.Data, &p) != nil {
			return nil
		}
		return ToolCallMsg{Payload: p}
	case events.TypeComponentStatus:
		var p events.ComponentStatus
		if json.Unmarshal(f.Data, &p) != nil {
			return nil
		}
		return ComponentStatusMsg{Payload: p}
	case events.TypeComponentResult:
		var p events.ComponentResult
		if json.Unmarshal(f.Data, &p) != nil {
			return nil
		}
		return ComponentResultMsg{Payload: p}
	case events.TypeFixSuggestion:
		var p events.FixSuggestion
		if json.Unmarshal(f.Data, &p) != nil {
			return nil
		}
		return FixSuggestionMsg{Payload: p}
	case events.TypeWorkflowStart:
		var p events.WorkflowStart
		if json.Unmarshal(f.Data, &p) != nil {
			return nil
		}
		return WorkflowStartMsg{Payload: p}
	case events.TypeWorkflowComponentResult:
		var p events.WorkflowComponentResult
		if json.Unmarshal(f.Data, &p) != nil {
			return nil
		}
		return WorkflowResultMsg{Payload: p}
	case events.TypeWorkflowSummary:
		var p events.WorkflowSummary
		if json.Unmarshal(f.Data, &p) != nil {
			return nil
		}
		return SummaryMsg{Payload: p}
	case events.TypeDone:
		var p events.Done
		if json.Unmarshal(f.Data, &p) != nil {
			return nil
		}
		return DoneMsg{Payload: p}
	case events.TypeCompleted:
		var p events.Completed
		if json.Unmarshal(f.Data, &p) != nil {
			return nil
		}
		return CompletedMsg{Payload: p}
	case events.TypeError:
		var p events.Error
		if json.Unmarshal(f.Data, &p) != nil {
			return nil
		}
		return RunErrorMsg{Payload: p}
	}
	return nil
}
