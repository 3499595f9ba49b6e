package runctx

import "context"

// contextKey is unexported so no other package can collide with or forge
// the values carried here.
type contextKey string

const (
	sessionKey   contextKey = "uiprobe_session_id"
	componentKey contextKey = "uiprobe_component"
)

// WithSessionID stores the active session identifier on the context so
// pool workers executing tool calls can attribute their events without the
// id being threaded through every tool signature. Storing an empty id is a
// no-op.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionID extracts the active session identifier, or "" when no session
// has been set (direct invocation, tests, cleared contexts).
func SessionID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(sessionKey).(string); ok {
		return id
	}
	return ""
}

// WithComponent stores the name of the component currently under test, so
// status and result events can name it without re-plumbing every call.
// Storing an empty name is a no-op.
func WithComponent(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, componentKey, name)
}

// Component extracts the current component name, or "" when none is set.
func Component(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if name, ok := ctx.Value(componentKey).(string); ok {
		return name
	}
	return ""
}

// Clear returns a context with both identifiers unset. Workers that run
// scoped units of work derive each task's context fresh and clear on exit
// so a stale session never leaks into an unrelated task reusing the same
// worker.
func Clear(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, sessionKey, "")
	return context.WithValue(ctx, componentKey, "")
}
