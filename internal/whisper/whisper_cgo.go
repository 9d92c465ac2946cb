//go:build whisper

package whisper

/*
#include <stdlib.h>
#include "whisper_cgo.h"
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"
)

// Available reports whether this binary links whisper.cpp.
func Available() bool { return true }

// SystemInfo returns whisper.cpp's backend/CPU feature summary.
func SystemInfo() string {
	return C.GoString(C.whisper_print_system_info())
}

func installLogSink() {
	C.sona_whisper_install_log_sink()
}

// installCallbacks points the progress, new-segment and abort slots of
// params at the bridge trampolines, all carrying h.
func installCallbacks(params *C.struct_whisper_full_params, h Handle) {
	C.sona_whisper_set_stream_callbacks(params, C.uintptr_t(h))
}

// Context wraps a loaded whisper.cpp model. A Context runs one
// transcription at a time.
type Context struct {
	mu  sync.Mutex
	ctx *C.struct_whisper_context
}

// New loads the ggml model at modelPath.
func New(modelPath string) (*Context, error) {
	cPath := C.CString(modelPath)
	defer C.free(unsafe.Pointer(cPath))

	cparams := C.whisper_context_default_params()
	ctx := C.whisper_init_from_file_with_params(cPath, cparams)
	if ctx == nil {
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, modelPath)
	}
	return &Context{ctx: ctx}, nil
}

// Close releases the model. It is safe to call more than once.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx != nil {
		C.whisper_free(c.ctx)
		c.ctx = nil
	}
	return nil
}

// Transcribe runs inference over 16kHz mono samples in [-1, 1].
func (c *Context) Transcribe(samples []float32, opts TranscribeOptions) (TranscribeResult, error) {
	return c.TranscribeStream(context.Background(), samples, opts, nil)
}

// TranscribeStream runs inference and reports progress and new segments
// through cb while it runs. Cancelling ctx aborts inference at the engine's
// next abort poll; the returned error then matches ErrAborted and the result
// holds whatever segments were finalized before the stop.
func (c *Context) TranscribeStream(ctx context.Context, samples []float32, opts TranscribeOptions, cb *StreamCallbacks) (TranscribeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return TranscribeResult{}, ErrClosed
	}
	if len(samples) == 0 {
		return TranscribeResult{}, fmt.Errorf("%w: no audio samples", ErrTranscribe)
	}
	if err := ctx.Err(); err != nil {
		return TranscribeResult{}, fmt.Errorf("%w: %v", ErrAborted, err)
	}

	SetVerbose(opts.Verbose)

	params := C.whisper_full_default_params(C.WHISPER_SAMPLING_GREEDY)
	params.print_progress = C.bool(false)
	params.print_realtime = C.bool(false)
	params.print_timestamps = C.bool(false)
	params.print_special = C.bool(false)
	params.translate = C.bool(opts.Translate)
	if opts.Threads > 0 {
		params.n_threads = C.int(opts.Threads)
	}

	lang := opts.Language
	if opts.DetectLanguage {
		// "auto" detects and then transcribes; detect_language alone stops
		// after detection.
		lang = "auto"
	}
	if lang != "" {
		cLang := C.CString(lang)
		defer C.free(unsafe.Pointer(cLang))
		params.language = cLang
	}
	if opts.Prompt != "" {
		cPrompt := C.CString(opts.Prompt)
		defer C.free(unsafe.Pointer(cPrompt))
		params.initial_prompt = cPrompt
	}

	wrapped, aborted := withContext(ctx, cb)
	h := registerCallbacks(wrapped)
	defer unregisterCallbacks(h)
	installCallbacks(&params, h)

	rc := C.whisper_full(c.ctx, params, (*C.float)(unsafe.Pointer(&samples[0])), C.int(len(samples)))

	src := nativeSegments{ctx: c.ctx}
	res := TranscribeResult{Segments: make([]Segment, 0, src.NumSegments())}
	for i := 0; i < src.NumSegments(); i++ {
		res.Segments = append(res.Segments, src.Segment(i))
	}
	if aborted() {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%w: %v", ErrAborted, err)
		}
		return res, ErrAborted
	}
	if rc != 0 {
		return res, fmt.Errorf("%w: whisper_full returned %d", ErrTranscribe, int(rc))
	}
	return res, nil
}
