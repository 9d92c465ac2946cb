package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnvOverrides(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.ConfigPath = "/tmp/config" // avoid creation

	t.Setenv("SONA_PORT", "0")
	t.Setenv("SONA_HOST", "0.0.0.0")
	t.Setenv("SONA_VERBOSE", "1")
	t.Setenv("SONA_METRICS_ENABLED", "false")
	t.Setenv("SONA_LOG_LEVEL", "debug")
	t.Setenv("SONA_LOG_FORMAT", "json")
	t.Setenv("SONA_FFMPEG_PATH", "/opt/ffmpeg")

	applyEnvOverrides(cfg)

	if cfg.Server.Port != 0 || cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("server override failed: %+v", cfg.Server)
	}
	if !cfg.Whisper.Verbose {
		t.Fatalf("verbose should be enabled via env")
	}
	if cfg.Metrics.Enabled {
		t.Fatalf("metrics should be disabled via env")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging overrides failed: %+v", cfg.Logging)
	}
	if cfg.Audio.FFmpegPath != "/opt/ffmpeg" {
		t.Fatalf("ffmpeg override failed: %q", cfg.Audio.FFmpegPath)
	}
}

func TestInvalidPortIgnored(t *testing.T) {
	cfg, _ := Default()
	t.Setenv("SONA_PORT", "nope")
	applyEnvOverrides(cfg)
	if cfg.Server.Port != DefaultPort {
		t.Fatalf("port=%d want default", cfg.Server.Port)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.toml"

	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.ConfigPath = path
	cfg.Whisper.Language = "he"
	cfg.Hook.Command = "/bin/echo"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Whisper.Language != "he" || loaded.Hook.Command != "/bin/echo" {
		t.Fatalf("expected values to persist: %+v %+v", loaded.Whisper, loaded.Hook)
	}
	if loaded.Paths.ConfigPath != path {
		t.Fatalf("config path=%q", loaded.Paths.ConfigPath)
	}
}

func TestLoadWritesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Fatalf("port=%d", cfg.Server.Port)
	}
}

func TestResolveModel(t *testing.T) {
	cfg, _ := Default()
	cfg.Model.Dir = "/models"
	if got := cfg.ResolveModel("ggml-tiny.bin"); got != filepath.Join("/models", "ggml-tiny.bin") {
		t.Fatalf("bare name resolved to %q", got)
	}
	if got := cfg.ResolveModel("/elsewhere/m.bin"); got != "/elsewhere/m.bin" {
		t.Fatalf("path resolved to %q", got)
	}
}

func TestMaxUploadBytes(t *testing.T) {
	cfg, _ := Default()
	cfg.Server.MaxUploadMB = 2
	if cfg.MaxUploadBytes() != 2<<20 {
		t.Fatalf("got %d", cfg.MaxUploadBytes())
	}
	cfg.Server.MaxUploadMB = 0
	if cfg.MaxUploadBytes() != defaultMaxUploadMB<<20 {
		t.Fatalf("fallback got %d", cfg.MaxUploadBytes())
	}
}

func TestReadyLineOnByDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if !cfg.Server.ReadyJSON {
		t.Fatal("ready_json should default to true")
	}
}
