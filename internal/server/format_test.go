package server

import (
	"testing"

	"sona/internal/whisper"
)

func TestTimestamps(t *testing.T) {
	cases := []struct {
		cs       int64
		seconds  float64
		srt, vtt string
	}{
		{0, 0, "00:00:00,000", "00:00:00.000"},
		{250, 2.5, "00:00:02,500", "00:00:02.500"},
		{6150, 61.5, "00:01:01,500", "00:01:01.500"},
		{360000, 3600, "01:00:00,000", "01:00:00.000"},
	}
	for _, tc := range cases {
		if got := csToSeconds(tc.cs); got != tc.seconds {
			t.Errorf("csToSeconds(%d) = %v, want %v", tc.cs, got, tc.seconds)
		}
		if got := csToSRTTime(tc.cs); got != tc.srt {
			t.Errorf("csToSRTTime(%d) = %q, want %q", tc.cs, got, tc.srt)
		}
		if got := csToVTTTime(tc.cs); got != tc.vtt {
			t.Errorf("csToVTTTime(%d) = %q, want %q", tc.cs, got, tc.vtt)
		}
	}
}

var twoSegments = []whisper.Segment{
	{Start: 0, End: 250, Text: " Hello world"},
	{Start: 250, End: 510, Text: " How are you"},
}

func TestRenderSRT(t *testing.T) {
	got := renderSRT(twoSegments)
	want := "1\n00:00:00,000 --> 00:00:02,500\nHello world\n\n2\n00:00:02,500 --> 00:00:05,100\nHow are you\n"
	if got != want {
		t.Fatalf("renderSRT:\n%q\nwant\n%q", got, want)
	}
}

func TestRenderVTT(t *testing.T) {
	got := renderVTT(twoSegments)
	want := "WEBVTT\n\n00:00:00.000 --> 00:00:02.500\nHello world\n\n00:00:02.500 --> 00:00:05.100\nHow are you\n"
	if got != want {
		t.Fatalf("renderVTT:\n%q\nwant\n%q", got, want)
	}
}

func TestFormatEmpty(t *testing.T) {
	if got := renderSRT(nil); got != "" {
		t.Fatalf("empty srt = %q", got)
	}
	if got := renderVTT(nil); got != "WEBVTT\n\n" {
		t.Fatalf("empty vtt = %q", got)
	}
}

func TestBuildVerboseJSON(t *testing.T) {
	v := buildVerboseJSON(whisper.TranscribeResult{Segments: twoSegments}, "en", 5.1)
	if v.Text != " Hello world How are you" {
		t.Fatalf("text = %q", v.Text)
	}
	if v.Language != "en" || v.Duration != 5.1 {
		t.Fatalf("language/duration = %q/%v", v.Language, v.Duration)
	}
	if len(v.Segments) != 2 {
		t.Fatalf("segments = %d", len(v.Segments))
	}
	if s := v.Segments[1]; s.ID != 1 || s.Start != 2.5 || s.End != 5.1 {
		t.Fatalf("segment[1] = %+v", s)
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range []string{"json", "text", "srt", "vtt", "verbose_json"} {
		if !validFormat(f) {
			t.Errorf("%s should be valid", f)
		}
	}
	if validFormat("mp3") {
		t.Fatal("mp3 should be invalid")
	}
}

func TestRenderFormats(t *testing.T) {
	res := whisper.TranscribeResult{Segments: twoSegments}
	cases := []struct {
		format, contentType, body string
	}{
		{"", "application/json", "{\"text\":\" Hello world How are you\"}\n"},
		{"text", "text/plain; charset=utf-8", " Hello world How are you"},
		{"srt", "application/x-subrip; charset=utf-8", renderSRT(twoSegments)},
		{"vtt", "text/vtt; charset=utf-8", renderVTT(twoSegments)},
	}
	for _, tc := range cases {
		body, ct, err := Render(tc.format, res, "", 0)
		if err != nil {
			t.Fatalf("%q: %v", tc.format, err)
		}
		if ct != tc.contentType || body != tc.body {
			t.Fatalf("%q: got (%q, %q)", tc.format, body, ct)
		}
	}
	if _, _, err := Render("mp3", res, "", 0); err == nil {
		t.Fatal("expected error for mp3")
	}
}
