package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// pcmWAV builds a minimal PCM WAV in memory.
func pcmWAV(t *testing.T, rate, channels int, frames [][]int16) []byte {
	t.Helper()
	var data bytes.Buffer
	for _, f := range frames {
		for _, s := range f {
			_ = binary.Write(&data, binary.LittleEndian, s)
		}
	}
	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+data.Len()))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate*channels*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(channels*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(data.Len()))
	b.Write(data.Bytes())
	return b.Bytes()
}

// noFFmpeg hides any system ffmpeg from the lookup.
func noFFmpeg(t *testing.T) {
	t.Helper()
	t.Setenv("PATH", t.TempDir())
}

func TestReadNativeWAV(t *testing.T) {
	noFFmpeg(t)
	raw := pcmWAV(t, 16000, 1, [][]int16{{0}, {16384}, {-16384}, {32767}})
	got, err := Read(bytes.NewReader(raw), Options{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d samples, want 4", len(got))
	}
	if got[0] != 0 || math.Abs(float64(got[1])-0.5) > 1e-3 || math.Abs(float64(got[2])+0.5) > 1e-3 {
		t.Fatalf("unexpected samples: %v", got)
	}
}

func TestReadStereo8kWithoutFFmpeg(t *testing.T) {
	noFFmpeg(t)
	frames := make([][]int16, 800)
	for i := range frames {
		frames[i] = []int16{1000, 3000}
	}
	raw := pcmWAV(t, 8000, 2, frames)
	got, err := Read(bytes.NewReader(raw), Options{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1600 {
		t.Fatalf("got %d samples, want 1600 after 8k->16k", len(got))
	}
	want := float32(2000) / 32768
	if math.Abs(float64(got[10]-want)) > 1e-4 {
		t.Fatalf("downmix sample=%f want %f", got[10], want)
	}
}

func TestReadNonWAVNeedsFFmpeg(t *testing.T) {
	noFFmpeg(t)
	_, err := Read(strings.NewReader("ID3 definitely not a wav file"), Options{})
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Fatalf("expected ErrFFmpegNotFound, got %v", err)
	}
}

func TestWriteWAVRoundTrip(t *testing.T) {
	noFFmpeg(t)
	path := filepath.Join(t.TempDir(), "out.wav")
	in := []float32{0, 0.25, -0.25, 0.5}
	if err := WriteWAV(path, in, SampleRate); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFile(path, Options{})
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("got %d samples, want %d", len(got), len(in))
	}
	for i := range in {
		if math.Abs(float64(got[i]-in[i])) > 1e-3 {
			t.Fatalf("sample %d = %f want %f", i, got[i], in[i])
		}
	}
}

func TestFFmpegArgs(t *testing.T) {
	args, err := ffmpegArgs("/tmp/in", Options{
		FFmpegArgs:    `-ss 1.5 -metadata title="a b"`,
		EnhanceAudio:  true,
		EnhanceFilter: "silenceremove=stop_periods=-1",
	})
	if err != nil {
		t.Fatalf("args: %v", err)
	}
	joined := strings.Join(args, "|")
	if !strings.Contains(joined, "-ss|1.5|-metadata|title=a b|-i|/tmp/in") {
		t.Fatalf("extra args not placed before input: %v", args)
	}
	if !strings.Contains(joined, "-af|silenceremove=stop_periods=-1") {
		t.Fatalf("enhance filter missing: %v", args)
	}
	if args[len(args)-1] != "pipe:1" {
		t.Fatalf("output must be pipe:1, got %v", args)
	}

	if _, err := ffmpegArgs("/tmp/in", Options{FFmpegArgs: `"unterminated`}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFindFFmpegExplicit(t *testing.T) {
	noFFmpeg(t)
	fake := filepath.Join(t.TempDir(), "ffmpeg-custom")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := FindFFmpeg(fake)
	if err != nil || got != fake {
		t.Fatalf("FindFFmpeg=%q,%v want %q", got, err, fake)
	}
}

func TestResampleLinearLength(t *testing.T) {
	in := []float32{0, 1, 2, 3}
	if out := resampleLinear(in, 16000, 8000); len(out) != 2 {
		t.Fatalf("downsample length got %d", len(out))
	}
	if out := resampleLinear(in, 8000, 16000); len(out) != 8 {
		t.Fatalf("upsample length got %d", len(out))
	}
}

func TestResampleLinearEnds(t *testing.T) {
	out := resampleLinear([]float32{0, 10}, 1000, 2000)
	if out[0] != 0 || out[len(out)-1] != 10 {
		t.Fatalf("endpoints not preserved: %v", out)
	}
}

func TestS16leToFloat32(t *testing.T) {
	raw := []byte{0x00, 0x00, 0xff, 0x7f, 0x01, 0x80}
	got := s16leToFloat32(raw)
	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != -1 {
		t.Fatalf("got %v", got)
	}
}

func TestPCM16ToSamples(t *testing.T) {
	pcm := []int16{0, 16384, -32768, 32767}
	out := PCM16ToSamples(pcm, SampleRate)
	if len(out) != 4 || out[1] != 0.5 || out[2] != -1 {
		t.Fatalf("same-rate conversion = %v", out)
	}
	if got := len(PCM16ToSamples(make([]int16, 480), 48000)); got != 160 {
		t.Fatalf("48k -> 16k length = %d, want 160", got)
	}
}

func TestDecodeWAV8BitIsCentered(t *testing.T) {
	data := []byte{128, 255, 0, 192}
	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+len(data)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint32(16000))
	_ = binary.Write(&b, binary.LittleEndian, uint32(16000))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(8))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(len(data)))
	b.Write(data)

	pcm, err := decodeWAV(bytes.NewReader(b.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []float32{0, 127.0 / 128, -1, 0.5}
	if len(pcm.samples) != len(want) {
		t.Fatalf("samples = %v", pcm.samples)
	}
	for i := range want {
		if math.Abs(float64(pcm.samples[i]-want[i])) > 1e-6 {
			t.Fatalf("sample %d = %v, want %v", i, pcm.samples[i], want[i])
		}
	}
}
