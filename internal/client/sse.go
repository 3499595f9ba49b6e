package client

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uiprobe/uiprobe/internal/events"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	defaultMaxRetries  = 5
)

// Frame is one server-sent event: the event name and its JSON payload.
type Frame struct {
	Event string
	Data  []byte
}

// Handler receives each frame in stream order. It runs on the client's
// goroutine, so a slow handler stalls the read loop.
type Handler func(f Frame)

// Options tune a Client. Zero values fall back to the defaults.
type Options struct {
	// AuthToken, when set, is sent as a bearer token on every request.
	AuthToken string

	// MaxRetries bounds consecutive failed connection attempts. The budget
	// refills whenever a frame is parsed, so only back-to-back failures
	// exhaust it.
	MaxRetries int

	BaseDelay time.Duration
	MaxDelay  time.Duration

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client consumes a single event stream URL, reconnecting with exponential
// backoff until a terminal event arrives or the retry budget runs out.
type Client struct {
	url        string
	handler    Handler
	token      string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	http       *http.Client
	log        *zap.Logger
}

func New(url string, handler Handler, opts Options) *Client {
	c := &Client{
		url:        url,
		handler:    handler,
		token:      opts.AuthToken,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		maxDelay:   opts.MaxDelay,
		http:       opts.HTTPClient,
		log:        opts.Logger,
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.baseDelay <= 0 {
		c.baseDelay = reconnectBaseDelay
	}
	if c.maxDelay <= 0 {
		c.maxDelay = reconnectMaxDelay
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Run reads the stream until a terminal event is handled, ctx is cancelled,
// or too many consecutive connection attempts fail. A nil return means the
// stream ended with a terminal event.
func (c *Client) Run(ctx context.Context) error {
	retries := 0
	delay := c.baseDelay
	for {
		err := c.stream(ctx, func() {
			retries = 0
			delay = c.baseDelay
		})
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		retries++
		if retries > c.maxRetries {
			return fmt.Errorf("stream failed after %d attempts: %w", retries, err)
		}
		c.log.Warn("stream interrupted, reconnecting",
			zap.Error(err),
			zap.Int("attempt", retries),
			zap.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, c.maxDelay)
	}
}

// stream runs one connection. It returns nil only when a terminal event was
// delivered; every other exit is an error worth retrying. reset is called
// per parsed frame so the caller can refill its retry budget.
func (c *Client) stream(ctx context.Context, reset func()) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("stream: unexpected status %s", resp.Status)
	}

	r := bufio.NewReader(resp.Body)
	for {
		f, err := readFrame(r)
		if err != nil {
			return err
		}
		reset()
		c.handler(f)
		if events.IsTerminal(events.Type(f.Event)) {
			return nil
		}
	}
}

// readFrame scans for the next complete frame. Comment lines (the server's
// heartbeats) and fields other than event/data are skipped; multiple data
// lines join with newlines per the SSE wire format.
func readFrame(r *bufio.Reader) (Frame, error) {
	var (
		event string
		data  [][]byte
	)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return Frame{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if event != "" || len(data) > 0 {
				return Frame{Event: event, Data: bytes.Join(data, []byte("\n"))}, nil
			}
		case strings.HasPrefix(line, ":"):
			// heartbeat
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			d := strings.TrimPrefix(line, "data:")
			data = append(data, []byte(strings.TrimPrefix(d, " ")))
		}
	}
}
