//go:build !whisper

package whisper

import "context"

// Available reports whether this binary links whisper.cpp.
func Available() bool { return false }

// SystemInfo returns an empty string when whisper.cpp is not linked.
func SystemInfo() string { return "" }

func installLogSink() {}

// Context is a placeholder that fails every call when whisper.cpp is not
// linked into the binary.
type Context struct{}

// New returns ErrNotImplemented.
func New(modelPath string) (*Context, error) {
	return nil, ErrNotImplemented
}

func (c *Context) Close() error { return nil }

func (c *Context) Transcribe(samples []float32, opts TranscribeOptions) (TranscribeResult, error) {
	return TranscribeResult{}, ErrNotImplemented
}

func (c *Context) TranscribeStream(ctx context.Context, samples []float32, opts TranscribeOptions, cb *StreamCallbacks) (TranscribeResult, error) {
	return TranscribeResult{}, ErrNotImplemented
}
