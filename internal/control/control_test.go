package control

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sona/internal/audio"
	"sona/internal/config"
	"sona/internal/logging"
	"sona/internal/server"
	"sona/internal/whisper"
)

func tempConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, "config.toml")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg, path
}

func TestServerURL(t *testing.T) {
	cfg, _ := config.Default()
	cfg.Server.Port = 9000
	cfg.Server.Host = "0.0.0.0"
	if got := serverURL(cfg); got != "http://127.0.0.1:9000" {
		t.Fatalf("wildcard = %s", got)
	}
	cfg.Server.Host = "10.0.0.2"
	if got := serverURL(cfg); got != "http://10.0.0.2:9000" {
		t.Fatalf("explicit = %s", got)
	}
}

func TestTailFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sona.log")
	if err := os.WriteFile(path, []byte("a\nb\n\nc\nd\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := tailFile(&buf, path, 2); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "c\nd\n" {
		t.Fatalf("tail = %q", buf.String())
	}
}

func TestSegmentLine(t *testing.T) {
	cases := []struct {
		seg  whisper.Segment
		want string
	}{
		{whisper.Segment{Start: 0, End: 250, Text: " hi "}, "[00:00.00 --> 00:02.50] hi"},
		{whisper.Segment{Start: 6150, End: 360050, Text: "x"}, "[01:01.50 --> 1:00:00.50] x"},
	}
	for _, tc := range cases {
		if got := segmentLine(tc.seg); got != tc.want {
			t.Errorf("segmentLine = %q, want %q", got, tc.want)
		}
	}
}

func TestTranscribeOptionsFlagsOverrideConfig(t *testing.T) {
	cfg, _ := config.Default()
	cfg.Whisper.Language = "en"
	cfg.Whisper.Threads = 2
	cfg.Whisper.DetectLanguage = true

	cmd := NewTranscribeCmd(new(string))
	if err := cmd.ParseFlags([]string{"-l", "he", "--threads", "8", "--detect-language=false"}); err != nil {
		t.Fatal(err)
	}
	opts := transcribeOptions(cmd, cfg)
	if opts.Language != "he" || opts.Threads != 8 || opts.DetectLanguage {
		t.Fatalf("opts = %+v", opts)
	}

	cmd = NewTranscribeCmd(new(string))
	opts = transcribeOptions(cmd, cfg)
	if opts.Language != "en" || opts.Threads != 2 || !opts.DetectLanguage {
		t.Fatalf("defaults = %+v", opts)
	}
}

func TestPrintResult(t *testing.T) {
	res := whisper.TranscribeResult{Segments: []whisper.Segment{{Start: 0, End: 100, Text: " hello"}}}
	var buf bytes.Buffer
	if err := printResult(&buf, "text", res, "", 16000); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "hello\n" {
		t.Fatalf("text = %q", buf.String())
	}
	buf.Reset()
	if err := printResult(&buf, "vtt", res, "", 16000); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "WEBVTT") {
		t.Fatalf("vtt = %q", buf.String())
	}
	if err := printResult(&buf, "mp3", res, "", 0); err == nil {
		t.Fatal("expected format error")
	}
}

func TestRunHookRequiresCommand(t *testing.T) {
	cfg, _ := tempConfig(t)
	if err := runHook(context.Background(), cfg, logging.NewTestLogger(), "hi", "test"); err == nil {
		t.Fatal("expected error without hook.command")
	}
}

func TestModelListing(t *testing.T) {
	cfg, _ := tempConfig(t)
	cfg.Model.Dir = t.TempDir()
	cfg.Model.Path = filepath.Join(cfg.Model.Dir, "ggml-tiny.bin")
	for _, n := range []string{"ggml-tiny.bin", "custom.bin", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(cfg.Model.Dir, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	lines := strings.Join(modelListing(cfg), "\n")
	for _, want := range []string{"* ggml-tiny.bin (downloaded)", "- custom.bin (downloaded)", "- ggml-base.bin"} {
		if !strings.Contains(lines, want) {
			t.Fatalf("listing missing %q:\n%s", want, lines)
		}
	}
	if strings.Contains(lines, "notes.txt") {
		t.Fatalf("non-model file listed:\n%s", lines)
	}
}

func TestDownloadModel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ggml-tiny.bin" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ggml-bytes"))
	}))
	defer ts.Close()
	prev := modelBaseURL
	modelBaseURL = ts.URL
	defer func() { modelBaseURL = prev }()

	dest := filepath.Join(t.TempDir(), "models", "ggml-tiny.bin")
	if err := downloadModel(context.Background(), "ggml-tiny.bin", dest); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "ggml-bytes" {
		t.Fatalf("downloaded %q, %v", data, err)
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Fatal("part file left behind")
	}
	if err := downloadModel(context.Background(), "ggml-base.bin", dest); err == nil {
		t.Fatal("expected 404 error")
	}
}

type fixedEngine struct{}

func (fixedEngine) TranscribeStream(ctx context.Context, samples []float32, opts whisper.TranscribeOptions, cb *whisper.StreamCallbacks) (whisper.TranscribeResult, error) {
	seg := whisper.Segment{Start: 0, End: 50, Text: " remote words"}
	if cb != nil && cb.OnSegment != nil {
		cb.OnSegment(seg)
	}
	return whisper.TranscribeResult{Segments: []whisper.Segment{seg}}, nil
}

func (fixedEngine) Close() error { return nil }

func TestRemoteCmd(t *testing.T) {
	cfg, cfgPath := tempConfig(t)
	srv := server.New(cfg, logging.NewTestLogger(), func(string) (server.Transcriber, error) { return fixedEngine{}, nil })
	model := filepath.Join(t.TempDir(), "m.bin")
	_ = os.WriteFile(model, nil, 0o644)
	if err := srv.LoadModel(model); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wav := filepath.Join(t.TempDir(), "clip.wav")
	if err := audio.WriteWAV(wav, make([]float32, 1600), audio.SampleRate); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		args []string
		want string
	}{
		{[]string{"--url", ts.URL, wav}, " remote words\n"},
		{[]string{"--url", ts.URL, "--stream", wav}, "[0.00 --> 0.50] remote words\n"},
	} {
		cmd := NewRemoteCmd(&cfgPath)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(tc.args)
		if err := cmd.ExecuteContext(context.Background()); err != nil {
			t.Fatalf("%v: %v", tc.args, err)
		}
		if out.String() != tc.want {
			t.Fatalf("%v: out = %q, want %q", tc.args, out.String(), tc.want)
		}
	}
}

func TestConfigShow(t *testing.T) {
	_, cfgPath := tempConfig(t)
	t.Setenv("SONA_PORT", "4242")
	cmd := NewConfigCmd(&cfgPath)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"show"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "port = 4242") {
		t.Fatalf("config show:\n%s", out.String())
	}
}
