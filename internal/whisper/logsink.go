package whisper

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// The verbosity flag and the diagnostic writer are process-wide: every
// session shares them.
var (
	verbose atomic.Bool

	logOutMu sync.Mutex
	logOut   io.Writer = os.Stderr
)

// SetVerbose toggles forwarding of native whisper/ggml log lines and
// (re)installs the native log sink.
func SetVerbose(enabled bool) {
	verbose.Store(enabled)
	installLogSink()
}

// Verbose reports the current process-wide verbosity.
func Verbose() bool {
	return verbose.Load()
}

// SetLogOutput replaces the diagnostic writer native log lines go to and
// returns the previous one. A nil writer restores os.Stderr.
func SetLogOutput(w io.Writer) io.Writer {
	if w == nil {
		w = os.Stderr
	}
	logOutMu.Lock()
	defer logOutMu.Unlock()
	prev := logOut
	logOut = w
	return prev
}

// writeNativeLog is the sink for native log lines. Lines are written
// verbatim, in the order the engine emits them, only while verbose.
func writeNativeLog(text string) {
	if !verbose.Load() {
		return
	}
	logOutMu.Lock()
	defer logOutMu.Unlock()
	_, _ = io.WriteString(logOut, text)
}
