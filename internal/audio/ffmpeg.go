package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/shlex"
)

// FindFFmpeg locates an ffmpeg binary, checking in this order:
// 1. System ffmpeg from $PATH
// 2. explicit path (config audio.ffmpeg_path / SONA_FFMPEG_PATH), skipped if missing
// 3. Bundled ffmpeg next to the current binary
func FindFFmpeg(explicit string) (string, error) {
	path, err := exec.LookPath("ffmpeg")
	if err == nil {
		return path, nil
	}

	if explicit != "" {
		if _, statErr := os.Stat(explicit); statErr == nil {
			return explicit, nil
		}
		fmt.Fprintf(os.Stderr, "warning: ffmpeg path %q not found, continuing search\n", explicit)
	}

	if exe, exErr := os.Executable(); exErr == nil {
		for _, candidate := range []string{
			filepath.Join(filepath.Dir(exe), "ffmpeg"),
			filepath.Join(filepath.Dir(exe), "ffmpeg.exe"),
		} {
			if _, statErr := os.Stat(candidate); statErr == nil {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
}

// ffmpegArgs builds the argument list that converts input to 16kHz mono
// s16le PCM on stdout.
func ffmpegArgs(input string, opts Options) ([]string, error) {
	extra, err := shlex.Split(opts.FFmpegArgs)
	if err != nil {
		return nil, fmt.Errorf("parse ffmpeg_args: %w", err)
	}
	args := []string{"-nostdin", "-hide_banner"}
	args = append(args, extra...)
	args = append(args,
		"-i", input,
		"-ar", "16000",
		"-ac", "1",
	)
	if opts.EnhanceAudio && opts.EnhanceFilter != "" {
		args = append(args, "-af", opts.EnhanceFilter)
	}
	args = append(args,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)
	return args, nil
}

// convertWithFFmpeg spools the input to a temp file, converts it and
// returns float32 samples.
func convertWithFFmpeg(r io.Reader, ffmpegPath string, opts Options) ([]float32, error) {
	tmp, err := os.CreateTemp("", "sona-*.audio")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, r); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	tmp.Close()

	args, err := ffmpegArgs(tmp.Name(), opts)
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(ffmpegPath, args...)
	if opts.Verbose {
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stderr = io.Discard
	}

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg conversion failed: %w", err)
	}
	return s16leToFloat32(out), nil
}

func s16leToFloat32(raw []byte) []float32 {
	n := len(raw) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
		samples[i] = float32(float64(v) / math.MaxInt16)
	}
	return samples
}
