package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/uiprobe/uiprobe/internal/bus"
	"github.com/uiprobe/uiprobe/internal/config"
	"github.com/uiprobe/uiprobe/internal/emit"
	"github.com/uiprobe/uiprobe/internal/logging"
	"github.com/uiprobe/uiprobe/internal/procstats"
	"github.com/uiprobe/uiprobe/internal/server"
	"github.com/uiprobe/uiprobe/internal/web"
	"github.com/uiprobe/uiprobe/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (defaults apply when empty)")
	port := flag.Int("port", 0, "Override server port")
	devMode := flag.Bool("dev", false, "Serve the live-view page from web/static on disk instead of the embedded copy")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	b := bus.New(logger, bus.NewMetrics(reg))
	emitter := emit.New(b, logger)

	sampler, err := procstats.NewSampler()
	if err != nil {
		logger.Warn("process sampler unavailable, memory metrics will use synthetic growth only", zap.Error(err))
		sampler = nil
	}

	runner := workflow.NewRunner(cfg.Workflow, cfg.Scoring.Performance, emitter, sampler, logger)

	webHandler := web.Handler()
	if *devMode {
		dir := "internal/web/static"
		if _, err := os.Stat(dir); err == nil {
			logger.Info("serving live-view page from disk", zap.String("dir", dir))
			webHandler = http.FileServer(http.Dir(dir))
		} else {
			logger.Warn("dev mode requested but static dir missing, using embedded copy", zap.String("dir", dir))
		}
	}

	srv := server.NewServer(cfg.Server, b, runner, sampler, reg, webHandler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}
