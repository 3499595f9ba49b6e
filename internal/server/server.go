package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/uiprobe/uiprobe/internal/bus"
	"github.com/uiprobe/uiprobe/internal/config"
	"github.com/uiprobe/uiprobe/internal/procstats"
	"github.com/uiprobe/uiprobe/internal/runctx"
	"github.com/uiprobe/uiprobe/internal/workflow"
)

// WorkflowRunner starts test runs for sessions created by the HTTP surface.
type WorkflowRunner interface {
	Run(ctx context.Context, spec workflow.RunSpec) error
}

// Server exposes the event stream over SSE and WebSocket, plus the REST
// surface for starting runs and poking at process health.
type Server struct {
	cfg            config.ServerConfig
	bus            *bus.Bus
	runner         WorkflowRunner
	sampler        *procstats.Sampler
	gatherer       prometheus.Gatherer
	web            http.Handler
	log            *zap.Logger
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	startedAt      time.Time

	// baseCtx parents detached workflow runs so shutdown cancels them. Set
	// once in ListenAndServe; handlers fall back to Background when serving
	// without it (tests).
	baseCtx context.Context
}

// NewServer wires the HTTP surface. sampler, gatherer, and web may be nil;
// the matching endpoints then degrade (health omits process stats, /metrics
// and / 404).
func NewServer(cfg config.ServerConfig, b *bus.Bus, runner WorkflowRunner, sampler *procstats.Sampler, gatherer prometheus.Gatherer, web http.Handler, log *zap.Logger) *Server {
	s := &Server{
		cfg:            cfg,
		bus:            b,
		runner:         runner,
		sampler:        sampler,
		gatherer:       gatherer,
		web:            web,
		log:            log,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		startedAt:      time.Now(),
	}

	for _, origin := range cfg.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/stream", s.handleStream)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/workflows", s.handleWorkflows)
	mux.HandleFunc("/api/health", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.web != nil {
		mux.Handle("/", s.web)
	}
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then drains
// connections for a few seconds before giving up on them.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.baseCtx = ctx

	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           securityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return srv.Close()
	}
	return nil
}

// runContext returns the parent context for detached runs.
func (s *Server) runContext() context.Context {
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.Background()
}

// startRun launches one workflow run detached from the request that asked
// for it, so the run keeps publishing while transports come and go.
func (s *Server) startRun(sessionID string, spec workflow.RunSpec) {
	ctx := runctx.WithSessionID(s.runContext(), sessionID)
	go func() {
		if err := s.runner.Run(ctx, spec); err != nil {
			s.log.Error("workflow run failed",
				zap.String("session", sessionID),
				zap.String("repo", spec.RepoPath),
				zap.Error(err),
			)
		}
	}()
}

func (s *Server) authorize(r *http.Request) bool {
	if s.cfg.AuthToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.cfg.AuthToken {
		return true
	}

	if r.Header.Get("X-UIProbe-Token") == s.cfg.AuthToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.cfg.AuthToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}
