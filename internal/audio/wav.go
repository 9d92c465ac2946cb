package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// pcmAudio is a decoded PCM WAV, channels interleaved and normalized.
type pcmAudio struct {
	samples    []float32
	sampleRate int
	channels   int
	bitDepth   int
}

func (p pcmAudio) isNative() bool {
	return p.sampleRate == SampleRate && p.channels == 1 && p.bitDepth == 16
}

// decodeWAV reads a PCM WAV. The reader position is undefined afterwards.
func decodeWAV(r io.ReadSeeker) (pcmAudio, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return pcmAudio{}, errors.New("not a valid WAV file")
	}
	if d.WavAudioFormat != wavFormatPCM {
		return pcmAudio{}, fmt.Errorf("unsupported audio format %d (only PCM=1)", d.WavAudioFormat)
	}
	if d.NumChans == 0 {
		return pcmAudio{}, errors.New("WAV has no channels")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return pcmAudio{}, fmt.Errorf("failed to read PCM data: %w", err)
	}
	depth := int(d.BitDepth)
	if depth == 0 {
		depth = buf.SourceBitDepth
	}
	if depth <= 0 || depth > 32 {
		return pcmAudio{}, fmt.Errorf("unsupported bits per sample %d", depth)
	}
	scale := float32(math.Pow(2, float64(depth-1)))
	// 8-bit PCM is unsigned, centered on 128.
	bias := 0
	if depth == 8 {
		bias = 128
	}
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v-bias) / scale
	}
	return pcmAudio{
		samples:    samples,
		sampleRate: int(d.SampleRate),
		channels:   int(d.NumChans),
		bitDepth:   depth,
	}, nil
}

// WriteWAV stores mono samples in [-1, 1] as a 16-bit PCM WAV.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * math.MaxInt16)
	}
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: 1},
		SourceBitDepth: 16,
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, wavFormatPCM)
	if err := enc.Write(buf); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}
