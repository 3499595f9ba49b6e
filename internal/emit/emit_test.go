package emit

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/uiprobe/uiprobe/internal/bus"
	"github.com/uiprobe/uiprobe/internal/events"
	"github.com/uiprobe/uiprobe/internal/runctx"
)

type captureTransport struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *captureTransport) Send(ev events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *captureTransport) Close() error { return nil }

func (c *captureTransport) received() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Event, len(c.events))
	copy(out, c.events)
	return out
}

func setup(t *testing.T) (*Emitter, *captureTransport, context.Context) {
	t.Helper()
	b := bus.New(zap.NewNop(), nil)
	tr := &captureTransport{}
	if err := b.Register("s1", tr); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ctx := runctx.WithSessionID(context.Background(), "s1")
	return New(b, zap.NewNop()), tr, ctx
}

func TestNoSessionIsNoop(t *testing.T) {
	e, tr, _ := setup(t)
	ctx := context.Background() // no session set

	e.Started(ctx, "/repo")
	e.Progress(ctx, "working", "testing", 1, 3)
	e.ToolCall(ctx, "run_axe", nil)
	e.ComponentStatus(ctx, "Button", "axe", "testing", "", nil)
	e.Done(ctx, "bye")
	e.Error(ctx, "boom", "testing")

	if got := tr.received(); len(got) != 1 {
		t.Errorf("transport received %d events, want only the ack", len(got))
	}
}

func TestEmitsWithSession(t *testing.T) {
	e, tr, ctx := setup(t)

	e.Started(ctx, "/repo")
	e.Progress(ctx, "step one", "setup", 1, 2)

	got := tr.received()
	if len(got) != 3 {
		t.Fatalf("received %d events, want 3 (ack + started + progress)", len(got))
	}
	started, ok := got[1].(events.Started)
	if !ok {
		t.Fatalf("event 1 = %T, want Started", got[1])
	}
	if started.SessionID != "s1" || started.RepoPath != "/repo" {
		t.Errorf("started = %+v", started)
	}
	if started.Timestamp.IsZero() {
		t.Error("timestamp not stamped")
	}
}

func TestComponentNameDefaultsFromContext(t *testing.T) {
	e, tr, ctx := setup(t)
	ctx = runctx.WithComponent(ctx, "NavComponent")

	e.ComponentStatus(ctx, "", "axe", "testing", "running checks", nil)
	e.FixSuggestion(ctx, events.FixSuggestion{TestType: "accessibility", Severity: 2})

	got := tr.received()
	if len(got) != 3 {
		t.Fatalf("received %d events, want 3", len(got))
	}
	cs, ok := got[1].(events.ComponentStatus)
	if !ok || cs.ComponentName != "NavComponent" {
		t.Errorf("component status name = %+v, want NavComponent", got[1])
	}
	fs, ok := got[2].(events.FixSuggestion)
	if !ok || fs.ComponentName != "NavComponent" {
		t.Errorf("fix suggestion name = %+v, want NavComponent", got[2])
	}
	if fs.Timestamp.IsZero() {
		t.Error("fix suggestion timestamp not stamped")
	}

	// An explicit name wins over the context.
	e.ComponentStatus(ctx, "Other", "axe", "testing", "", nil)
	got = tr.received()
	cs = got[3].(events.ComponentStatus)
	if cs.ComponentName != "Other" {
		t.Errorf("explicit name lost: %q", cs.ComponentName)
	}
}

func TestDoneCompletesSession(t *testing.T) {
	e, tr, ctx := setup(t)

	e.Done(ctx, "all finished")

	got := tr.received()
	if len(got) != 2 {
		t.Fatalf("received %d events, want ack + done", len(got))
	}
	if _, ok := got[1].(events.Done); !ok {
		t.Fatalf("last event = %T, want Done", got[1])
	}

	// The session is gone; further emits are no-ops.
	e.Progress(ctx, "stray", "after", 1, 1)
	if len(tr.received()) != 2 {
		t.Error("emit after done should not deliver")
	}
}

func TestErrorFailsSession(t *testing.T) {
	e, tr, ctx := setup(t)

	e.Error(ctx, "exploded", "testing")

	got := tr.received()
	if len(got) != 2 {
		t.Fatalf("received %d events, want ack + error", len(got))
	}
	ev, ok := got[1].(events.Error)
	if !ok {
		t.Fatalf("last event = %T, want Error", got[1])
	}
	if ev.Message != "exploded" || ev.Phase != "testing" {
		t.Errorf("error payload = %+v", ev)
	}
}
