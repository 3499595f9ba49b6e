package server

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/uiprobe/uiprobe/internal/events"
)

func TestSSETransportDeliversFrames(t *testing.T) {
	tr := NewSSETransport(4)
	ev := events.Done{Message: "run finished", Timestamp: time.Unix(100, 0).UTC()}
	if err := tr.Send(ev); err != nil {
		t.Fatalf("Send: %v", err)
	}

	want, err := events.EncodeFrame(ev)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	select {
	case got := <-tr.Frames():
		if !bytes.Equal(got, want) {
			t.Errorf("frame = %q, want %q", got, want)
		}
	default:
		t.Fatal("no frame buffered")
	}
}

func TestSSETransportSlowClient(t *testing.T) {
	tr := NewSSETransport(1)
	ev := events.Progress{Message: "step", Phase: "testing", CurrentStep: 1, TotalSteps: 2, Timestamp: time.Now()}
	if err := tr.Send(ev); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if err := tr.Send(ev); !errors.Is(err, ErrSlowClient) {
		t.Errorf("second Send = %v, want ErrSlowClient", err)
	}
}

func TestSSETransportCloseDrainsBufferedFrames(t *testing.T) {
	tr := NewSSETransport(2)
	if err := tr.Send(events.Done{Message: "bye", Timestamp: time.Now()}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, ok := <-tr.Frames(); !ok {
		t.Fatal("buffered frame lost on close")
	}
	if _, ok := <-tr.Frames(); ok {
		t.Fatal("channel still open after drain")
	}

	if err := tr.Send(events.Done{Message: "late", Timestamp: time.Now()}); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Send after close = %v, want ErrTransportClosed", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestSSETransportBufferFloor(t *testing.T) {
	tr := NewSSETransport(0)
	if err := tr.Send(events.Done{Message: "x", Timestamp: time.Now()}); err != nil {
		t.Errorf("Send with coerced buffer: %v", err)
	}
}
