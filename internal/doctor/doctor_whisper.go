//go:build whisper

package doctor

import (
	"fmt"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/gordonklaus/portaudio"
)

func checkPortAudio() Result {
	if err := portaudio.Initialize(); err != nil {
		return Result{Name: "portaudio", Pass: false, Detail: fmt.Sprintf("init failed: %v (install with: brew install portaudio)", err)}
	}
	defer func() {
		_ = portaudio.Terminate()
	}()
	return Result{Name: "portaudio", Pass: true, Detail: portaudio.VersionText()}
}

// checkModel loads the model once to prove the file is a usable ggml model.
func checkModel(path string) Result {
	model, err := whisper.New(path)
	if err != nil {
		return Result{Name: "model load", Pass: false, Detail: err.Error()}
	}
	defer func() { _ = model.Close() }()
	detail := "english-only"
	if model.IsMultilingual() {
		langs := model.Languages()
		detail = fmt.Sprintf("multilingual, %d languages (%s...)", len(langs), strings.Join(first(langs, 5), ", "))
	}
	return Result{Name: "model load", Pass: true, Detail: detail}
}

func first(s []string, n int) []string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
