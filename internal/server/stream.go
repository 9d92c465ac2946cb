package server

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"sona/internal/whisper"
)

// Event types sent on a streaming transcription.
const (
	EventProgress = "progress"
	EventSegment  = "segment"
	EventResult   = "result"
	EventError    = "error"
)

// StreamEvent is one NDJSON line of a streaming transcription. Start and
// End are seconds. Each type carries only its own keys, zero values
// included.
type StreamEvent struct {
	Type     string  `json:"type"`
	Progress int     `json:"progress,omitempty"`
	Start    float64 `json:"start,omitempty"`
	End      float64 `json:"end,omitempty"`
	Text     string  `json:"text,omitempty"`
	Error    string  `json:"error,omitempty"`
}

func (ev StreamEvent) MarshalJSON() ([]byte, error) {
	switch ev.Type {
	case EventProgress:
		return json.Marshal(struct {
			Type     string `json:"type"`
			Progress int    `json:"progress"`
		}{ev.Type, ev.Progress})
	case EventSegment:
		return json.Marshal(struct {
			Type  string  `json:"type"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		}{ev.Type, ev.Start, ev.End, ev.Text})
	case EventResult:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{ev.Type, ev.Text})
	case EventError:
		return json.Marshal(struct {
			Type  string `json:"type"`
			Error string `json:"error"`
		}{ev.Type, ev.Error})
	}
	type plain StreamEvent
	return json.Marshal(plain(ev))
}

// eventWriter serializes events coming from the engine's callback thread.
// After the first failed write every later event is dropped and broken
// reports true, which the abort poll turns into cancellation.
type eventWriter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	flush  func()
	broken atomic.Bool
}

func newEventWriter(w io.Writer) *eventWriter {
	ew := &eventWriter{enc: json.NewEncoder(w)}
	if f, ok := w.(http.Flusher); ok {
		ew.flush = f.Flush
	}
	return ew
}

func (ew *eventWriter) send(ev StreamEvent) {
	ew.mu.Lock()
	defer ew.mu.Unlock()
	if ew.broken.Load() {
		return
	}
	if err := ew.enc.Encode(ev); err != nil {
		ew.broken.Store(true)
		return
	}
	if ew.flush != nil {
		ew.flush()
	}
}

func (ew *eventWriter) failed() bool { return ew.broken.Load() }

func (s *Server) streamTranscription(w http.ResponseWriter, r *http.Request, samples []float32, opts whisper.TranscribeOptions) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	ew := newEventWriter(w)
	cb := &whisper.StreamCallbacks{
		OnProgress: func(p int) {
			ew.send(StreamEvent{Type: EventProgress, Progress: p})
		},
		OnSegment: func(seg whisper.Segment) {
			ew.send(StreamEvent{
				Type:  EventSegment,
				Start: csToSeconds(seg.Start),
				End:   csToSeconds(seg.End),
				Text:  seg.Text,
			})
		},
		ShouldAbort: ew.failed,
	}

	res, err := s.transcribe(r.Context(), samples, opts, cb)
	if err != nil {
		ew.send(StreamEvent{Type: EventError, Error: err.Error()})
		return
	}
	ew.send(StreamEvent{Type: EventResult, Text: res.Text()})
}
