//go:build whisper

package audio

import (
	"encoding/binary"
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

const vadFrameMS = 20

// TrimSilence drops leading and trailing non-speech using the WebRTC VAD,
// keeping paddingMS of context on each side. Audio with no detected speech
// is returned unchanged.
func TrimSilence(samples []float32, sampleRate, mode, paddingMS int) ([]float32, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("vad init: %w", err)
	}
	if err := v.SetMode(mode); err != nil {
		return nil, fmt.Errorf("vad mode: %w", err)
	}
	frameSamples := sampleRate * vadFrameMS / 1000
	frame := make([]byte, frameSamples*2)
	if ok := v.ValidRateAndFrameLength(sampleRate, len(frame)); !ok {
		return nil, fmt.Errorf("invalid vad frame %dms for sample_rate %d", vadFrameMS, sampleRate)
	}

	first, last := -1, -1
	for start := 0; start+frameSamples <= len(samples); start += frameSamples {
		for i := 0; i < frameSamples; i++ {
			s := samples[start+i]
			if s > 1 {
				s = 1
			} else if s < -1 {
				s = -1
			}
			binary.LittleEndian.PutUint16(frame[i*2:], uint16(int16(s*32767)))
		}
		voice, err := v.Process(sampleRate, frame)
		if err != nil {
			return nil, fmt.Errorf("vad process: %w", err)
		}
		if voice {
			if first < 0 {
				first = start
			}
			last = start + frameSamples
		}
	}
	if first < 0 {
		return samples, nil
	}
	pad := sampleRate * paddingMS / 1000
	first = max(0, first-pad)
	last = min(len(samples), last+pad)
	return samples[first:last], nil
}
