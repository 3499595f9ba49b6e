package server

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/uiprobe/uiprobe/internal/events"
)

var (
	// ErrSlowClient is returned by Send when a transport's buffer is full.
	// The bus treats any send error as fatal for the transport, so a client
	// that stops draining gets dropped instead of stalling the publisher.
	ErrSlowClient = errors.New("client not draining frames")

	// ErrTransportClosed is returned by Send after Close.
	ErrTransportClosed = errors.New("transport closed")
)

// SSETransport carries one SSE connection's frames from the bus to the HTTP
// handler. Send encodes and buffers; the handler goroutine drains Frames and
// writes to the wire. Closing the transport closes the channel, which the
// handler sees after draining whatever was already buffered, so a terminal
// event queued right before Close still reaches the client.
type SSETransport struct {
	mu     sync.Mutex
	frames chan []byte
	closed bool
}

// NewSSETransport builds a transport whose buffer holds up to buffer frames.
func NewSSETransport(buffer int) *SSETransport {
	if buffer <= 0 {
		buffer = 1
	}
	return &SSETransport{frames: make(chan []byte, buffer)}
}

func (t *SSETransport) Send(ev events.Event) error {
	frame, err := events.EncodeFrame(ev)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransportClosed
	}
	select {
	case t.frames <- frame:
		return nil
	default:
		return ErrSlowClient
	}
}

func (t *SSETransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.frames)
	return nil
}

// Frames is the handler's read side. It closes when the transport does.
func (t *SSETransport) Frames() <-chan []byte {
	return t.frames
}

// WSTransport adapts one WebSocket connection to the bus. Each event becomes
// one JSON text message written by a dedicated pump goroutine, keeping slow
// clients from blocking Send.
type WSTransport struct {
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewWSTransport wraps conn and starts its write pump. The pump owns the
// connection and closes it when the transport closes or a write fails.
func NewWSTransport(conn *websocket.Conn, buffer int) *WSTransport {
	if buffer <= 0 {
		buffer = 1
	}
	t := &WSTransport{conn: conn, send: make(chan []byte, buffer)}
	go t.writePump()
	return t
}

func (t *WSTransport) writePump() {
	defer t.conn.Close()
	for msg := range t.send {
		if err := t.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (t *WSTransport) Send(ev events.Event) error {
	msg, err := events.EncodeEnvelope(ev)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransportClosed
	}
	select {
	case t.send <- msg:
		return nil
	default:
		return ErrSlowClient
	}
}

func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.send)
	return nil
}
