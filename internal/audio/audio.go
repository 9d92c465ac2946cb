// Package audio turns uploaded or recorded audio into the 16kHz mono
// float32 samples whisper.cpp expects.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"sona/internal/config"
)

// SampleRate is the only rate whisper.cpp accepts.
const SampleRate = 16000

// ErrFFmpegNotFound is returned when conversion needs ffmpeg and none is available.
var ErrFFmpegNotFound = errors.New("ffmpeg not found")

// Options controls decoding.
type Options struct {
	EnhanceAudio  bool   // drop long silences before inference
	FFmpegPath    string // explicit ffmpeg binary; empty = search
	FFmpegArgs    string // extra shell-quoted input args
	EnhanceFilter string // ffmpeg -af filter used when EnhanceAudio is set
	VADMode       int    // webrtc VAD aggressiveness used without ffmpeg
	VADPaddingMS  int
	Verbose       bool // pass ffmpeg stderr through
}

// OptionsFromConfig builds decode options from the [audio] and [vad] sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		FFmpegPath:    cfg.Audio.FFmpegPath,
		FFmpegArgs:    cfg.Audio.FFmpegArgs,
		EnhanceFilter: cfg.Audio.EnhanceFilter,
		VADMode:       cfg.VAD.Aggressiveness,
		VADPaddingMS:  cfg.VAD.PaddingMS,
		Verbose:       cfg.Whisper.Verbose,
	}
}

// Read decodes audio from r into float32 samples at 16kHz mono.
// A native 16kHz/mono/16-bit PCM WAV is decoded directly. Other PCM WAVs go
// through ffmpeg when present, otherwise they are downmixed and resampled
// in-process. Anything else requires ffmpeg.
func Read(r io.ReadSeeker, opts Options) ([]float32, error) {
	pcm, err := decodeWAV(r)
	if err == nil && pcm.isNative() && !opts.EnhanceAudio {
		return pcm.samples, nil
	}

	if _, serr := r.Seek(0, io.SeekStart); serr != nil {
		return nil, serr
	}
	ffmpegPath, ferr := FindFFmpeg(opts.FFmpegPath)
	if ferr == nil {
		return convertWithFFmpeg(r, ffmpegPath, opts)
	}

	if err != nil {
		return nil, fmt.Errorf("unsupported audio format and %w", ferr)
	}

	// PCM WAV but no ffmpeg: convert in-process.
	samples := downmix(pcm.samples, pcm.channels)
	samples = resampleLinear(samples, pcm.sampleRate, SampleRate)
	if opts.EnhanceAudio {
		samples, err = TrimSilence(samples, SampleRate, opts.VADMode, opts.VADPaddingMS)
		if err != nil {
			return nil, err
		}
	}
	return samples, nil
}

// ReadFile opens an audio file by path and returns float32 samples at 16kHz mono.
func ReadFile(path string, opts Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, opts)
}
