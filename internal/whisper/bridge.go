package whisper

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Handle identifies a StreamCallbacks registration. It travels through the
// native user-data slots as a plain integer; zero means "no callbacks".
type Handle uintptr

// SegmentSource exposes the finalized segments of a running inference.
// The native implementation reads them from the whisper context.
type SegmentSource interface {
	NumSegments() int
	Segment(i int) Segment
}

var (
	callbackMu   sync.Mutex
	callbackMap  = make(map[Handle]*StreamCallbacks)
	nextHandleID atomic.Uint64

	bridgeLogMu sync.RWMutex
	bridgeLog   logrus.FieldLogger = discardLogger()
)

// SetLogger installs the logger used to report panics contained inside
// callback handlers. A nil logger restores the discard logger.
func SetLogger(l logrus.FieldLogger) {
	bridgeLogMu.Lock()
	defer bridgeLogMu.Unlock()
	if l == nil {
		l = discardLogger()
	}
	bridgeLog = l
}

func logger() logrus.FieldLogger {
	bridgeLogMu.RLock()
	defer bridgeLogMu.RUnlock()
	return bridgeLog
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// registerCallbacks stores cb and returns the handle to place in the
// engine's user-data slots.
func registerCallbacks(cb *StreamCallbacks) Handle {
	id := nextHandleID.Add(1)
	// Skip ID 0 which means "no callbacks"
	if id == 0 {
		id = nextHandleID.Add(1)
	}
	h := Handle(id)
	callbackMu.Lock()
	callbackMap[h] = cb
	callbackMu.Unlock()
	return h
}

// unregisterCallbacks releases h. It must only run after the inference call
// that carries h has returned.
func unregisterCallbacks(h Handle) {
	callbackMu.Lock()
	delete(callbackMap, h)
	callbackMu.Unlock()
}

func lookupCallbacks(h Handle) (*StreamCallbacks, bool) {
	callbackMu.Lock()
	cb, ok := callbackMap[h]
	callbackMu.Unlock()
	return cb, ok && cb != nil
}

// contain recovers a panic raised by a host handler so it never unwinds
// into the native engine's stack.
func contain(h Handle, event string) {
	if r := recover(); r != nil {
		logger().WithFields(logrus.Fields{
			"handle": uint64(h),
			"event":  event,
		}).Errorf("whisper callback panic: %v", r)
	}
}

// dispatchProgress forwards a native progress event.
func dispatchProgress(h Handle, progress int) {
	defer contain(h, "progress")
	cb, ok := lookupCallbacks(h)
	if !ok || cb.OnProgress == nil {
		return
	}
	cb.OnProgress(progress)
}

// dispatchSegment forwards the nNew most recent segments of src.
func dispatchSegment(h Handle, src SegmentSource, nNew int) {
	defer contain(h, "segment")
	cb, ok := lookupCallbacks(h)
	if !ok || cb.OnSegment == nil || src == nil || nNew <= 0 {
		return
	}
	n := src.NumSegments()
	first := n - nNew
	if first < 0 {
		first = 0
	}
	for i := first; i < n; i++ {
		cb.OnSegment(src.Segment(i))
	}
}

// dispatchAbort answers the engine's abort poll. Any failure reads as
// "continue".
func dispatchAbort(h Handle) (abort bool) {
	defer func() {
		if r := recover(); r != nil {
			logger().WithFields(logrus.Fields{
				"handle": uint64(h),
				"event":  "abort",
			}).Errorf("whisper callback panic: %v", r)
			abort = false
		}
	}()
	cb, ok := lookupCallbacks(h)
	if !ok || cb.ShouldAbort == nil {
		return false
	}
	return cb.ShouldAbort()
}

// withContext returns callbacks whose abort poll also fires once ctx is
// done. The returned aborted func reports whether an abort was requested.
func withContext(ctx context.Context, cb *StreamCallbacks) (*StreamCallbacks, func() bool) {
	var requested atomic.Bool
	out := &StreamCallbacks{}
	if cb != nil {
		out.OnProgress = cb.OnProgress
		out.OnSegment = cb.OnSegment
	}
	out.ShouldAbort = func() bool {
		if ctx.Err() != nil {
			requested.Store(true)
			return true
		}
		if cb != nil && cb.ShouldAbort != nil && cb.ShouldAbort() {
			requested.Store(true)
			return true
		}
		return false
	}
	return out, requested.Load
}
