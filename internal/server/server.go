// Package server exposes whisper transcription over an OpenAI-compatible
// HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"sona/internal/config"
	"sona/internal/whisper"
)

// ErrNoModel is returned when a transcription arrives before any model is loaded.
var ErrNoModel = errors.New("no model loaded")

// Transcriber is the inference engine the server drives. *whisper.Context
// satisfies it.
type Transcriber interface {
	TranscribeStream(ctx context.Context, samples []float32, opts whisper.TranscribeOptions, cb *whisper.StreamCallbacks) (whisper.TranscribeResult, error)
	Close() error
}

// Loader opens a model file.
type Loader func(modelPath string) (Transcriber, error)

// WhisperLoader loads models through whisper.cpp.
func WhisperLoader(modelPath string) (Transcriber, error) {
	c, err := whisper.New(modelPath)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Server owns the loaded model. One transcription runs at a time; model
// swaps wait for it.
type Server struct {
	cfg     *config.Config
	logger  *logrus.Logger
	load    Loader
	metrics *Metrics
	onText  func(text string)

	inferMu sync.Mutex // held for a whole inference and for model swaps

	mu        sync.Mutex
	engine    Transcriber
	modelPath string
	loadedAt  time.Time
}

// New creates a server. No model is loaded until LoadModel succeeds.
func New(cfg *config.Config, logger *logrus.Logger, load Loader) *Server {
	if load == nil {
		load = WhisperLoader
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		load:    load,
		metrics: newMetrics(),
	}
}

// LoadModel replaces the current model with the one at path.
func (s *Server) LoadModel(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("model %s: %w", path, err)
	}
	engine, err := s.load(path)
	if err != nil {
		return err
	}

	s.inferMu.Lock()
	defer s.inferMu.Unlock()
	s.mu.Lock()
	prev := s.engine
	s.engine = engine
	s.modelPath = path
	s.loadedAt = time.Now()
	s.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			s.logger.Warnf("close previous model: %v", err)
		}
	}
	s.metrics.modelLoaded.Set(1)
	s.logger.Infof("model loaded: %s", path)
	return nil
}

// ModelName returns the base name of the loaded model, or "".
func (s *Server) ModelName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.modelPath == "" {
		return ""
	}
	return filepath.Base(s.modelPath)
}

// Ready reports whether a model is loaded.
func (s *Server) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine != nil
}

// Close releases the loaded model.
func (s *Server) Close() error {
	s.inferMu.Lock()
	defer s.inferMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return nil
	}
	err := s.engine.Close()
	s.engine = nil
	s.modelPath = ""
	s.metrics.modelLoaded.Set(0)
	return err
}

// OnTranscript registers fn to receive the text of every successful
// transcription. It must be called before serving.
func (s *Server) OnTranscript(fn func(text string)) { s.onText = fn }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/v1/models", s.handleModels)
	r.Post("/v1/models/load", s.handleLoadModel)
	r.Post("/v1/audio/transcriptions", s.handleTranscription)
	if s.cfg.Metrics.Enabled {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
			"dur":        time.Since(start).String(),
		}).Debug("request")
	})
}
