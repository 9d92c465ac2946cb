package whisper

import (
	"bytes"
	"sync"
	"testing"
)

func TestNativeLogDiscardedWhenQuiet(t *testing.T) {
	var buf bytes.Buffer
	prev := SetLogOutput(&buf)
	defer SetLogOutput(prev)
	SetVerbose(false)

	for i := 0; i < 50; i++ {
		writeNativeLog("whisper_init_from_file: loading model\n")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestNativeLogVerbatimInOrder(t *testing.T) {
	var buf bytes.Buffer
	prev := SetLogOutput(&buf)
	defer SetLogOutput(prev)
	SetVerbose(true)
	defer SetVerbose(false)

	lines := []string{"first line\n", "second ", "continued\n", "third\n"}
	for _, l := range lines {
		writeNativeLog(l)
	}
	if got, want := buf.String(), "first line\nsecond continued\nthird\n"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestVerbosityIsGlobal(t *testing.T) {
	SetVerbose(true)
	defer SetVerbose(false)

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Verbose()
		}(i)
	}
	wg.Wait()
	for i, v := range results {
		if !v {
			t.Fatalf("session %d saw verbose=false", i)
		}
	}

	SetVerbose(false)
	if Verbose() {
		t.Fatalf("verbose should be off")
	}
}
