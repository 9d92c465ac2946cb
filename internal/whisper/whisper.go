// Package whisper runs whisper.cpp inference and bridges its native
// progress, new-segment and abort callbacks back into Go.
package whisper

import (
	"errors"
	"strings"
)

var (
	// ErrNotImplemented is returned when the binary was built without the whisper tag.
	ErrNotImplemented = errors.New("whisper: not implemented in this build (use -tags whisper)")

	// ErrModelLoad indicates the model file could not be loaded.
	ErrModelLoad = errors.New("whisper: model load failed")

	// ErrTranscribe indicates whisper_full reported a failure other than an abort.
	ErrTranscribe = errors.New("whisper: transcription failed")

	// ErrAborted indicates inference stopped early because the abort poll said so.
	ErrAborted = errors.New("whisper: transcription aborted")

	// ErrClosed indicates the context was already released.
	ErrClosed = errors.New("whisper: context closed")
)

// TranscribeOptions controls transcription behavior.
type TranscribeOptions struct {
	Language       string // e.g. "en", "he" (empty = whisper.cpp default: "en")
	DetectLanguage bool   // auto-detect language
	Translate      bool   // translate to English
	Threads        int    // CPU threads (0 = whisper default)
	Prompt         string // initial prompt / vocabulary hint
	Verbose        bool   // enable whisper/ggml logs
}

// Segment is a transcribed piece of text. Start and End are in
// centiseconds (10ms units), as reported by whisper.cpp.
type Segment struct {
	Start int64
	End   int64
	Text  string
}

// TranscribeResult holds the output of a transcription.
type TranscribeResult struct {
	Segments []Segment
}

// Text returns the concatenated text of all segments.
func (r TranscribeResult) Text() string {
	var sb strings.Builder
	for _, s := range r.Segments {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// StreamCallbacks provides real-time feedback during transcription.
// Handlers run on the engine's worker thread and must be safe to call from
// a goroutine other than the one that started the transcription.
type StreamCallbacks struct {
	// OnProgress is called with a percentage (0-100) during inference.
	OnProgress func(progress int)
	// OnSegment is called for each newly finalized segment.
	OnSegment func(segment Segment)
	// ShouldAbort is polled during inference; return true to cancel.
	ShouldAbort func() bool
}
