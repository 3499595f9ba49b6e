package bus

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/uiprobe/uiprobe/internal/events"
)

var errWriteFailed = errors.New("write failed")

// fakeTransport records everything sent to it and can be told to fail.
type fakeTransport struct {
	mu     sync.Mutex
	events []events.Event
	fail   bool
	closed bool
}

func (f *fakeTransport) Send(ev events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errWriteFailed
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

func (f *fakeTransport) received() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.Event, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestBus() *Bus {
	return New(zap.NewNop(), nil)
}

func progressEvent(msg string) events.Event {
	return events.Progress{Message: msg, Phase: "testing", Timestamp: time.Now()}
}

func TestRegisterSendsConnectedAck(t *testing.T) {
	b := newTestBus()
	tr := &fakeTransport{}

	if err := b.Register("s1", tr); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	got := tr.received()
	if len(got) != 1 {
		t.Fatalf("received %d events, want 1 (connected ack)", len(got))
	}
	ack, ok := got[0].(events.Connected)
	if !ok {
		t.Fatalf("first event is %T, want Connected", got[0])
	}
	if ack.SessionID != "s1" || ack.Status != "connected" {
		t.Errorf("ack = %+v, want sessionId s1 status connected", ack)
	}

	sessions, transports := b.Counts()
	if sessions != 1 || transports != 1 {
		t.Errorf("Counts = %d/%d, want 1/1", sessions, transports)
	}
}

func TestRegisterAckFailureDiscardsTransport(t *testing.T) {
	b := newTestBus()
	tr := &fakeTransport{fail: true}

	if err := b.Register("s1", tr); err == nil {
		t.Fatal("Register should surface the failed ack")
	}

	sessions, transports := b.Counts()
	if sessions != 0 || transports != 0 {
		t.Errorf("Counts = %d/%d after failed ack, want 0/0", sessions, transports)
	}

	// The discarded transport never sees later publishes.
	tr.setFail(false)
	b.Publish("s1", progressEvent("hello"))
	if len(tr.received()) != 0 {
		t.Error("discarded transport received an event")
	}
}

func TestPublishFansOutInOrder(t *testing.T) {
	b := newTestBus()
	t1, t2 := &fakeTransport{}, &fakeTransport{}

	if err := b.Register("s1", t1); err != nil {
		t.Fatalf("Register t1: %v", err)
	}
	if err := b.Register("s1", t2); err != nil {
		t.Fatalf("Register t2: %v", err)
	}

	b.Publish("s1", progressEvent("one"))
	b.Publish("s1", progressEvent("two"))

	for name, tr := range map[string]*fakeTransport{"t1": t1, "t2": t2} {
		got := tr.received()
		if len(got) != 3 {
			t.Fatalf("%s received %d events, want 3 (ack + two)", name, len(got))
		}
		first, ok := got[1].(events.Progress)
		if !ok || first.Message != "one" {
			t.Errorf("%s event 1 = %+v, want progress 'one'", name, got[1])
		}
		second, ok := got[2].(events.Progress)
		if !ok || second.Message != "two" {
			t.Errorf("%s event 2 = %+v, want progress 'two'", name, got[2])
		}
	}
}

func TestPublishUnknownSessionIsNoop(t *testing.T) {
	b := newTestBus()
	// Must not panic or error.
	b.Publish("never-seen", progressEvent("stray"))
}

func TestPublishAfterCompleteIsNoop(t *testing.T) {
	b := newTestBus()
	tr := &fakeTransport{}
	if err := b.Register("s1", tr); err != nil {
		t.Fatalf("Register: %v", err)
	}

	b.Complete("s1", events.Done{Message: "bye", Timestamp: time.Now()})

	before := len(tr.received())
	b.Publish("s1", progressEvent("stray"))
	if got := len(tr.received()); got != before {
		t.Errorf("transport received %d events after complete, want %d", got, before)
	}

	sessions, transports := b.Counts()
	if sessions != 0 || transports != 0 {
		t.Errorf("Counts = %d/%d after complete, want 0/0", sessions, transports)
	}
}

func TestCompleteDeliversFinalAndCloses(t *testing.T) {
	b := newTestBus()
	t1, t2 := &fakeTransport{}, &fakeTransport{}
	_ = b.Register("s1", t1)
	_ = b.Register("s1", t2)

	b.Complete("s1", events.Done{Message: "done", Timestamp: time.Now()})

	for name, tr := range map[string]*fakeTransport{"t1": t1, "t2": t2} {
		got := tr.received()
		if len(got) != 2 {
			t.Fatalf("%s received %d events, want ack + final", name, len(got))
		}
		if _, ok := got[1].(events.Done); !ok {
			t.Errorf("%s last event = %T, want Done", name, got[1])
		}
		if !tr.isClosed() {
			t.Errorf("%s not closed after complete", name)
		}
	}
}

func TestCompleteIdempotent(t *testing.T) {
	b := newTestBus()
	tr := &fakeTransport{}
	_ = b.Register("s1", tr)

	final := events.Done{Message: "done", Timestamp: time.Now()}
	b.Complete("s1", final)
	b.Complete("s1", final)
	b.Fail("s1", events.Error{Message: "late", Timestamp: time.Now()})

	got := tr.received()
	count := 0
	for _, ev := range got {
		if _, ok := ev.(events.Done); ok {
			count++
		}
	}
	if count != 1 {
		t.Errorf("transport saw %d terminal events, want exactly 1", count)
	}
}

func TestFailedTransportRemovedSiblingStillDelivered(t *testing.T) {
	b := newTestBus()
	bad, good := &fakeTransport{}, &fakeTransport{}
	_ = b.Register("s1", bad)
	_ = b.Register("s1", good)

	bad.setFail(true)
	b.Publish("s1", progressEvent("one"))

	// The sibling got the event despite bad's write failing.
	got := good.received()
	if len(got) != 2 {
		t.Fatalf("good received %d events, want 2", len(got))
	}

	// The failed transport is gone from the session.
	_, transports := b.Counts()
	if transports != 1 {
		t.Errorf("transports = %d after failure, want 1", transports)
	}
	if !bad.isClosed() {
		t.Error("failed transport should be closed")
	}

	// Later publishes reach only the survivor.
	bad.setFail(false)
	b.Publish("s1", progressEvent("two"))
	if len(bad.received()) != 1 {
		t.Errorf("removed transport received %d events, want only its ack", len(bad.received()))
	}
	if len(good.received()) != 3 {
		t.Errorf("good received %d events, want 3", len(good.received()))
	}
}

func TestLateTransportSeesOnlyLaterEvents(t *testing.T) {
	b := newTestBus()
	early := &fakeTransport{}
	_ = b.Register("s1", early)

	for i := 0; i < 5; i++ {
		b.Publish("s1", progressEvent(fmt.Sprintf("event-%d", i)))
	}

	late := &fakeTransport{}
	if err := b.Register("s1", late); err != nil {
		t.Fatalf("Register late: %v", err)
	}
	b.Publish("s1", progressEvent("after"))

	got := late.received()
	if len(got) != 2 {
		t.Fatalf("late received %d events, want 2 (ack + after)", len(got))
	}
	p, ok := got[1].(events.Progress)
	if !ok || p.Message != "after" {
		t.Errorf("late event = %+v, want progress 'after'", got[1])
	}
	if len(early.received()) != 7 {
		t.Errorf("early received %d events, want 7", len(early.received()))
	}
}

func TestDeregisterLeavesSessionAlive(t *testing.T) {
	b := newTestBus()
	t1 := &fakeTransport{}
	_ = b.Register("s1", t1)

	b.Deregister("s1", t1)
	if !t1.isClosed() {
		t.Error("deregistered transport should be closed")
	}

	sessions, transports := b.Counts()
	if sessions != 1 || transports != 0 {
		t.Errorf("Counts = %d/%d, want session to survive with 0 transports", sessions, transports)
	}

	// A reconnect attaches to the surviving session and receives new events.
	t2 := &fakeTransport{}
	if err := b.Register("s1", t2); err != nil {
		t.Fatalf("Register after deregister: %v", err)
	}
	b.Publish("s1", progressEvent("still here"))
	if len(t2.received()) != 2 {
		t.Errorf("reconnected transport received %d events, want 2", len(t2.received()))
	}

	// Deregistering an unknown transport is harmless.
	b.Deregister("s1", t1)
	b.Deregister("nope", t1)
}

func TestConcurrentPublishRegisterDeregister(t *testing.T) {
	b := newTestBus()

	var wg sync.WaitGroup
	for s := 0; s < 4; s++ {
		sessionID := fmt.Sprintf("s%d", s)
		anchor := &fakeTransport{}
		if err := b.Register(sessionID, anchor); err != nil {
			t.Fatalf("Register anchor: %v", err)
		}

		wg.Add(3)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Publish(id, progressEvent("spin"))
			}
		}(sessionID)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				tr := &fakeTransport{}
				if err := b.Register(id, tr); err != nil {
					t.Errorf("Register: %v", err)
					return
				}
				b.Deregister(id, tr)
			}
		}(sessionID)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Publish(id, progressEvent("other"))
			}
		}(sessionID)
	}
	wg.Wait()

	sessions, transports := b.Counts()
	if sessions != 4 || transports != 4 {
		t.Errorf("Counts = %d/%d after churn, want 4/4 (anchors only)", sessions, transports)
	}

	for s := 0; s < 4; s++ {
		b.Complete(fmt.Sprintf("s%d", s), events.Done{Message: "bye", Timestamp: time.Now()})
	}
	sessions, transports = b.Counts()
	if sessions != 0 || transports != 0 {
		t.Errorf("Counts = %d/%d after completion, want 0/0", sessions, transports)
	}
}
