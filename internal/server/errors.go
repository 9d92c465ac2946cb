package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"sona/internal/whisper"
)

// statusClientClosed is nginx's "client closed request", used for aborted inference.
const statusClientClosed = 499

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type,omitempty"`
	} `json:"error"`
}

// writeError writes an OpenAI-style error payload.
func writeError(w http.ResponseWriter, status int, message string) {
	var body errorBody
	body.Error.Message = message
	body.Error.Type = http.StatusText(status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps a transcription error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, whisper.ErrAborted):
		return statusClientClosed
	case errors.Is(err, whisper.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, ErrNoModel):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// outcome labels a transcription result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, whisper.ErrAborted):
		return "aborted"
	default:
		return "error"
	}
}
