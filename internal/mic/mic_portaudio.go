//go:build whisper

package mic

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// List returns the available input devices.
func List() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()
	return listDevices()
}

func listDevices() ([]Device, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	def, _ := portaudio.DefaultInputDevice()
	out := []Device{}
	for i, d := range devs {
		if d.MaxInputChannels < 1 {
			continue
		}
		out = append(out, Device{
			Index:     i,
			Name:      d.Name,
			Channels:  d.MaxInputChannels,
			LatencyMs: d.DefaultLowInputLatency.Seconds() * 1000,
			Default:   def != nil && d.Name == def.Name,
		})
	}
	return out, nil
}

// Record captures mono 16-bit audio until ctx is done and returns it.
func Record(ctx context.Context, opts Options) ([]int16, error) {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.FrameMS <= 0 {
		opts.FrameMS = 20
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	listed, err := listDevices()
	if err != nil {
		return nil, err
	}
	picked, ok := pickDevice(listed, opts.DeviceName)
	if !ok {
		return nil, fmt.Errorf("no input devices found")
	}
	all, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	dev := all[picked.Index]

	frameSamples := opts.SampleRate * opts.FrameMS / 1000
	buf := make([]int16, frameSamples)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(opts.SampleRate),
		FramesPerBuffer: frameSamples,
	}, &buf)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	var captured []int16
	for {
		select {
		case <-ctx.Done():
			return captured, nil
		default:
		}
		if err := stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			return captured, fmt.Errorf("stream read: %w", err)
		}
		captured = append(captured, buf...)
	}
}
