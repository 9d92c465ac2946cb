// Package mic captures microphone audio for local transcription.
package mic

import (
	"errors"
	"strings"
)

// ErrUnavailable is returned when the binary was built without PortAudio.
var ErrUnavailable = errors.New("mic: build with '-tags whisper' to enable microphone capture (PortAudio required)")

// Device describes an input device.
type Device struct {
	Index     int     `json:"index"`
	Name      string  `json:"name"`
	Channels  int     `json:"channels"`
	LatencyMs float64 `json:"latency_ms"`
	Default   bool    `json:"default"`
}

// Options controls a recording.
type Options struct {
	DeviceName string
	SampleRate int
	FrameMS    int
}

// pickDevice prefers a device whose name contains preferred, then the
// default device, then the first input.
func pickDevice(devs []Device, preferred string) (Device, bool) {
	if preferred != "" {
		for _, d := range devs {
			if d.Channels > 0 && strings.Contains(strings.ToLower(d.Name), strings.ToLower(preferred)) {
				return d, true
			}
		}
	}
	for _, d := range devs {
		if d.Default && d.Channels > 0 {
			return d, true
		}
	}
	for _, d := range devs {
		if d.Channels > 0 {
			return d, true
		}
	}
	return Device{}, false
}
