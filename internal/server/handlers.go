package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/uiprobe/uiprobe/internal/workflow"
)

// handleStream starts a new run and streams its events on one connection:
// a session id is allocated, an SSE transport registered, and the run
// launched detached before the handler settles into its serve loop.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	repo := r.URL.Query().Get("repo")
	if repo == "" {
		http.Error(w, "repo required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sessionID := uuid.NewString()
	spec := workflow.RunSpec{
		RepoPath:   repo,
		Components: splitList(r.URL.Query().Get("components")),
		Tests:      splitList(r.URL.Query().Get("tests")),
	}

	tr := NewSSETransport(s.cfg.ClientBuffer)
	if err := s.bus.Register(sessionID, tr); err != nil {
		s.log.Error("sse register failed", zap.String("session", sessionID), zap.Error(err))
		http.Error(w, "session setup failed", http.StatusInternalServerError)
		return
	}

	s.startRun(sessionID, spec)
	s.serveSSE(w, r, flusher, sessionID, tr)
}

// handleEvents attaches another SSE viewer to an existing session. The
// session need not have started yet; a viewer attaching early just waits on
// heartbeats until events begin.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	tr := NewSSETransport(s.cfg.ClientBuffer)
	if err := s.bus.Register(sessionID, tr); err != nil {
		s.log.Error("sse register failed", zap.String("session", sessionID), zap.Error(err))
		http.Error(w, "session setup failed", http.StatusInternalServerError)
		return
	}

	s.serveSSE(w, r, flusher, sessionID, tr)
}

// serveSSE drains the transport onto the wire until the session ends, the
// client goes away, or a write fails. Heartbeat comments keep proxies from
// idling the connection out between events.
func (s *Server) serveSSE(w http.ResponseWriter, r *http.Request, flusher http.Flusher, sessionID string, tr *SSETransport) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	defer s.bus.Deregister(sessionID, tr)

	heartbeat := s.cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	log := s.log.With(zap.String("session", sessionID), zap.String("remote", r.RemoteAddr))
	log.Info("sse client connected")
	defer log.Info("sse client disconnected")

	for {
		select {
		case frame, ok := <-tr.Frames():
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := io.WriteString(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// handleWS attaches a WebSocket viewer to a session. Events arrive as JSON
// text messages with the same type names and payloads as the SSE frames.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session required", http.StatusBadRequest)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	tr := NewWSTransport(conn, s.cfg.ClientBuffer)
	if err := s.bus.Register(sessionID, tr); err != nil {
		s.log.Error("ws register failed", zap.String("session", sessionID), zap.Error(err))
		tr.Close()
		return
	}

	log := s.log.With(zap.String("session", sessionID), zap.String("remote", r.RemoteAddr))
	log.Info("ws client connected")

	go func() {
		defer func() {
			s.bus.Deregister(sessionID, tr)
			log.Info("ws client disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// handleWorkflows starts a run without a stream attached and hands back the
// session id, so callers can attach SSE or WebSocket viewers separately.
// Events published before the first viewer attaches are dropped; this is a
// live feed, not a journal.
func (s *Server) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var spec workflow.RunSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if spec.RepoPath == "" {
		http.Error(w, "repoPath required", http.StatusBadRequest)
		return
	}

	sessionID := uuid.NewString()
	s.startRun(sessionID, spec)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"sessionId": sessionID})
}

type processHealth struct {
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
	Goroutines int     `json:"goroutines"`
}

type healthResponse struct {
	Status        string         `json:"status"`
	UptimeSeconds int            `json:"uptimeSeconds"`
	Sessions      int            `json:"sessions"`
	Transports    int            `json:"transports"`
	Process       *processHealth `json:"process,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sessions, transports := s.bus.Counts()
	resp := healthResponse{
		Status:        "ok",
		UptimeSeconds: int(time.Since(s.startedAt).Seconds()),
		Sessions:      sessions,
		Transports:    transports,
	}
	if s.sampler != nil {
		if snap, err := s.sampler.Sample(); err == nil {
			resp.Process = &processHealth{
				RSSBytes:   snap.RSSBytes,
				CPUPercent: snap.CPUPercent,
				Goroutines: snap.Goroutines,
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// splitList parses a comma-separated query value, dropping empty entries.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
