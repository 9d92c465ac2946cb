//go:build !whisper

package audio

// TrimSilence returns samples unchanged when the WebRTC VAD is not compiled in.
func TrimSilence(samples []float32, sampleRate, mode, paddingMS int) ([]float32, error) {
	return samples, nil
}
