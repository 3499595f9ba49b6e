package events

import (
	"encoding/json"
	"fmt"
)

// ErrUnknownVariant is returned when Marshal meets a type outside the
// closed event set, which only happens when a new variant was added without
// extending the switch below.
var ErrUnknownVariant = fmt.Errorf("unknown event variant")

// Marshal maps an event to its wire name and JSON payload. This switch is
// the single place variants meet wire names; every variant is listed by
// value, so a new variant falls through to the error until it is added
// here. Events are passed by value throughout.
func Marshal(ev Event) (Type, []byte, error) {
	var name Type
	switch ev.(type) {
	case Connected:
		name = TypeConnected
	case Started:
		name = TypeStarted
	case Progress:
		name = TypeProgress
	case ToolCall:
		name = TypeToolCall
	case ComponentStatus:
		name = TypeComponentStatus
	case ComponentResult:
		name = TypeComponentResult
	case FixSuggestion:
		name = TypeFixSuggestion
	case WorkflowStart:
		name = TypeWorkflowStart
	case WorkflowComponentResult:
		name = TypeWorkflowComponentResult
	case WorkflowSummary:
		name = TypeWorkflowSummary
	case Done:
		name = TypeDone
	case Completed:
		name = TypeCompleted
	case Error:
		name = TypeError
	default:
		return "", nil, fmt.Errorf("%w: %T", ErrUnknownVariant, ev)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return "", nil, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return name, data, nil
}

// Envelope is the WebSocket framing for one event: the same wire name and
// payload an SSE frame carries, as a single JSON message.
type Envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EncodeEnvelope serializes ev as a WebSocket text message.
func EncodeEnvelope(ev Event) ([]byte, error) {
	name, data, err := Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: name, Data: data})
}

// Frame renders one SSE frame: an `event:` line, a `data:` line, and the
// blank line that terminates the block.
func Frame(name Type, data []byte) []byte {
	buf := make([]byte, 0, len(name)+len(data)+16)
	buf = append(buf, "event: "...)
	buf = append(buf, name...)
	buf = append(buf, '\n')
	buf = append(buf, "data: "...)
	buf = append(buf, data...)
	buf = append(buf, "\n\n"...)
	return buf
}

// EncodeFrame serializes ev as one SSE frame.
func EncodeFrame(ev Event) ([]byte, error) {
	name, data, err := Marshal(ev)
	if err != nil {
		return nil, err
	}
	return Frame(name, data), nil
}
