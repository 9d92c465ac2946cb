package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sona/internal/config"
	"sona/internal/hook"
	"sona/internal/server"
	"sona/internal/whisper"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Options overrides the pieces Serve wires by default.
type Options struct {
	Loader server.Loader // nil = whisper.cpp
	Stdout io.Writer     // ready line destination; nil = os.Stdout
}

// Daemon couples the HTTP server with the post-transcription hook queue.
type Daemon struct {
	cfg     *config.Config
	logger  *logrus.Logger
	api     *server.Server
	hook    *hook.Runner
	hookCh  chan hook.Job
	metrics *hookMetrics

	wg sync.WaitGroup
}

type readyLine struct {
	Status string `json:"status"`
	Port   int    `json:"port"`
}

// Serve runs the daemon until SIGINT or SIGTERM.
func Serve(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	return ServeContext(ctx, cfg, logger, Options{})
}

// ServeContext runs the daemon until ctx is done.
func ServeContext(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts Options) error {
	if err := config.MustStatePaths(cfg); err != nil {
		return err
	}
	// Write pid file.
	if err := os.WriteFile(cfg.Paths.PidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(cfg.Paths.PidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("remove pid file: %v", err)
		}
	}()

	whisper.SetLogger(logger)
	whisper.SetVerbose(cfg.Whisper.Verbose)

	d := newDaemon(cfg, logger, opts.Loader)
	defer func() {
		if err := d.api.Close(); err != nil {
			logger.Warnf("close model: %v", err)
		}
	}()

	if cfg.Model.Path != "" {
		if err := d.api.LoadModel(cfg.Model.Path); err != nil {
			// Keep serving: a model can still be loaded over HTTP.
			logger.Warnf("initial model not loaded: %v", err)
		}
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr(), err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	httpSrv := &http.Server{
		Handler:           d.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	hookCtx, cancelHooks := context.WithCancel(context.Background())
	defer cancelHooks()
	if d.hook.Enabled() {
		d.wg.Add(1)
		go d.hookWorker(hookCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Infof("listening on http://%s:%d", cfg.Server.Host, port)
	if cfg.Server.ReadyJSON {
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		if err := json.NewEncoder(out).Encode(readyLine{Status: "ready", Port: port}); err != nil {
			logger.Warnf("write ready line: %v", err)
		}
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	// Wait for hook worker to drain
	cancelHooks()
	d.wg.Wait()
	return nil
}

func newDaemon(cfg *config.Config, logger *logrus.Logger, loader server.Loader) *Daemon {
	d := &Daemon{
		cfg:     cfg,
		logger:  logger,
		api:     server.New(cfg, logger, loader),
		hook:    hook.NewRunner(cfg, logger),
		hookCh:  make(chan hook.Job, hookQueueSize),
		metrics: newHookMetrics(),
	}
	d.api.Metrics().Register(d.metrics.collectors()...)
	if d.hook.Enabled() {
		d.api.OnTranscript(d.enqueue)
	}
	return d
}
