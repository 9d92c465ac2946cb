// Package doctor checks that the local environment can run sona.
package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"sona/internal/audio"
	"sona/internal/config"
	"sona/internal/whisper"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Detail string `json:"detail"`
}

// Run executes doctor checks.
func Run(cfg *config.Config) []Result {
	modelPath := os.ExpandEnv(cfg.Model.Path)
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkFile("model file", modelPath),
		checkWhisperBuild(),
		checkFFmpeg(cfg.Audio.FFmpegPath),
		checkHookExecutable(cfg.Hook.Command),
		checkPortAudioPkgConfig(),
		checkPortAudio(),
	}
	if results[1].Pass && whisper.Available() {
		results = append(results, checkModel(modelPath))
	}
	return results
}

// Failed reports whether any check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return true
		}
	}
	return false
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkWhisperBuild() Result {
	if !whisper.Available() {
		return Result{Name: "whisper", Pass: false, Detail: "built without -tags whisper; transcription disabled"}
	}
	return Result{Name: "whisper", Pass: true, Detail: strings.TrimSpace(whisper.SystemInfo())}
}

func checkFFmpeg(explicit string) Result {
	path, err := audio.FindFFmpeg(explicit)
	if err != nil {
		// Native 16kHz WAV still works without it.
		return Result{Name: "ffmpeg", Pass: true, Detail: "not found; only WAV input is supported"}
	}
	out, err := exec.Command(path, "-hide_banner", "-version").Output()
	if err != nil {
		return Result{Name: "ffmpeg", Pass: false, Detail: fmt.Sprintf("%s: %v", path, err)}
	}
	first, _, _ := strings.Cut(string(out), "\n")
	return Result{Name: "ffmpeg", Pass: true, Detail: strings.TrimSpace(first)}
}

func checkHookExecutable(cmd string) Result {
	label := "hook.command"
	if cmd == "" {
		return Result{Name: label, Pass: true, Detail: "not set (optional)"}
	}
	path := os.ExpandEnv(cmd)
	// If contains a path separator, treat as explicit path.
	if strings.Contains(path, "/") || strings.Contains(path, "\\") {
		info, err := os.Stat(path)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if info.IsDir() {
			return Result{Name: label, Pass: false, Detail: "is a directory; set hook.command to an executable file"}
		}
		if info.Mode().Perm()&0o111 == 0 {
			return Result{Name: label, Pass: false, Detail: "not executable; chmod +x or choose another command"}
		}
		return Result{Name: label, Pass: true, Detail: path}
	}
	// Else search PATH.
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}

func checkPortAudioPkgConfig() Result {
	pkg, err := exec.LookPath("pkg-config")
	if err != nil {
		return Result{Name: "pkg-config", Pass: true, Detail: "pkg-config not found; skipped"}
	}
	cmd := exec.Command(pkg, "--exists", "portaudio-2.0")
	if err := cmd.Run(); err != nil {
		return Result{Name: "portaudio-dev", Pass: false, Detail: "portaudio-2.0 not found (brew install portaudio / apt install portaudio19-dev)"}
	}
	// Optional display version
	versionCmd := exec.Command(pkg, "--modversion", "portaudio-2.0")
	if out, err := versionCmd.Output(); err == nil {
		return Result{Name: "portaudio-dev", Pass: true, Detail: strings.TrimSpace(string(out))}
	}
	return Result{Name: "portaudio-dev", Pass: true, Detail: "found via pkg-config"}
}
