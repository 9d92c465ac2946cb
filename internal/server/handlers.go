package server

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sona/internal/audio"
	"sona/internal/whisper"
)

// maxJSONBody bounds the small JSON control requests.
const maxJSONBody = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "no_model"
	if s.Ready() {
		status = "ready"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": status,
		"model":  s.ModelName(),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	name, loadedAt := "", s.loadedAt
	if s.engine != nil {
		name = s.modelPath
	}
	s.mu.Unlock()

	data := []map[string]any{}
	if name != "" {
		data = append(data, map[string]any{
			"id":       filepath.Base(name),
			"object":   "model",
			"created":  loadedAt.Unix(),
			"owned_by": "local",
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data})
}

type loadModelRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleLoadModel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var req loadModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	path := s.cfg.ResolveModel(req.Path)
	if err := s.LoadModel(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "model": s.ModelName()})
}

func (s *Server) handleTranscription(w http.ResponseWriter, r *http.Request) {
	if !s.Ready() {
		writeError(w, http.StatusServiceUnavailable, ErrNoModel.Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid 'file' field: "+err.Error())
		return
	}
	defer file.Close()

	format := r.FormValue("response_format")
	if format == "" {
		format = formatJSON
	}
	if !validFormat(format) {
		writeError(w, http.StatusBadRequest, "unsupported response_format: "+format)
		return
	}

	aopts := audio.OptionsFromConfig(s.cfg)
	aopts.EnhanceAudio = parseBool(r.FormValue("enhance_audio"))
	samples, err := audio.Read(file, aopts)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid audio file: "+err.Error())
		return
	}
	if len(samples) == 0 {
		writeError(w, http.StatusBadRequest, "empty audio")
		return
	}

	opts := s.transcribeOptions(r)
	if parseBool(r.FormValue("stream")) {
		s.streamTranscription(w, r, samples, opts)
		return
	}

	res, err := s.transcribe(r.Context(), samples, opts, nil)
	if err != nil {
		writeError(w, statusFor(err), "transcription failed: "+err.Error())
		return
	}
	duration := float64(len(samples)) / audio.SampleRate
	writeResult(w, format, res, opts.Language, duration)
}

// transcribeOptions starts from the [whisper] config and applies form overrides.
func (s *Server) transcribeOptions(r *http.Request) whisper.TranscribeOptions {
	opts := whisper.TranscribeOptions{
		Language:       s.cfg.Whisper.Language,
		DetectLanguage: s.cfg.Whisper.DetectLanguage,
		Translate:      s.cfg.Whisper.Translate,
		Threads:        s.cfg.Whisper.Threads,
		Prompt:         s.cfg.Whisper.Prompt,
		Verbose:        s.cfg.Whisper.Verbose,
	}
	if v := r.FormValue("language"); v != "" {
		opts.Language = v
	}
	if v := r.FormValue("prompt"); v != "" {
		opts.Prompt = v
	}
	if v := r.FormValue("detect_language"); v != "" {
		opts.DetectLanguage = parseBool(v)
	}
	return opts
}

// transcribe runs one inference on the loaded model. Calls are serialized.
func (s *Server) transcribe(ctx context.Context, samples []float32, opts whisper.TranscribeOptions, cb *whisper.StreamCallbacks) (whisper.TranscribeResult, error) {
	s.inferMu.Lock()
	defer s.inferMu.Unlock()

	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()
	if engine == nil {
		return whisper.TranscribeResult{}, ErrNoModel
	}

	start := time.Now()
	res, err := engine.TranscribeStream(ctx, samples, opts, cb)
	elapsed := time.Since(start)

	s.metrics.inferSeconds.Observe(elapsed.Seconds())
	s.metrics.transcriptions.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		s.logger.Warnf("transcription failed after %s: %v", elapsed, err)
		return res, err
	}
	s.metrics.audioSeconds.Add(float64(len(samples)) / audio.SampleRate)
	s.metrics.segments.Add(float64(len(res.Segments)))
	s.logger.Infof("transcribed %.1fs of audio in %s (%d segments)",
		float64(len(samples))/audio.SampleRate, elapsed, len(res.Segments))
	if s.onText != nil {
		s.onText(res.Text())
	}
	return res, nil
}

func writeResult(w http.ResponseWriter, format string, res whisper.TranscribeResult, language string, duration float64) {
	body, contentType, err := Render(format, res, language, duration)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeText(w, contentType, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
