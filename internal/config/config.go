package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultModelName     = "ggml-base.bin"
	DefaultPort          = 36055
	defaultMaxUploadMB   = 1024
	defaultStateDirLinux = ".local/state/sona"
	defaultConfigDir     = ".config/sona"
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Server struct {
		Host        string `toml:"host"`
		Port        int    `toml:"port"`         // 0 = pick a free port
		MaxUploadMB int    `toml:"max_upload_mb"`
		ReadyJSON   bool   `toml:"ready_json"` // print {"status":"ready","port":N} on stdout
	} `toml:"server"`

	Model struct {
		Path string `toml:"path"`
		Dir  string `toml:"dir"`
	} `toml:"model"`

	Whisper struct {
		Language       string `toml:"language"`
		DetectLanguage bool   `toml:"detect_language"`
		Translate      bool   `toml:"translate"`
		Threads        int    `toml:"threads"`
		Prompt         string `toml:"prompt"`
		Verbose        bool   `toml:"verbose"`
	} `toml:"whisper"`

	Audio struct {
		FFmpegPath    string `toml:"ffmpeg_path"`
		FFmpegArgs    string `toml:"ffmpeg_args"` // extra args, shell-quoted
		EnhanceFilter string `toml:"enhance_filter"`
		DeviceName    string `toml:"device_name"`
		SampleRate    int    `toml:"sample_rate"`
		FrameMS       int    `toml:"frame_ms"`
	} `toml:"audio"`

	VAD struct {
		Enabled        bool `toml:"enabled"`
		Aggressiveness int  `toml:"aggressiveness"`
		PaddingMS      int  `toml:"padding_ms"`
	} `toml:"vad"`

	Hook struct {
		Command    string            `toml:"command"`
		Args       string            `toml:"args"` // shell-quoted
		Prefix     string            `toml:"prefix"`
		TimeoutSec float64           `toml:"timeout_sec"`
		Env        map[string]string `toml:"env"`
		RedactPII  bool              `toml:"redact_pii"`
	} `toml:"hook"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"`
	} `toml:"logging"`

	Paths struct {
		StateDir   string `toml:"state_dir"`
		LogPath    string `toml:"log_path"`
		PidPath    string `toml:"pid_path"`
		ConfigPath string `toml:"-"`
	} `toml:"paths"`

	Metrics struct {
		Enabled bool `toml:"enabled"`
	} `toml:"metrics"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	// macOS prefers ~/Library/Application Support/sona for state/logs
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "sona")
	}

	cfg := &Config{}

	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = DefaultPort
	cfg.Server.MaxUploadMB = defaultMaxUploadMB
	cfg.Server.ReadyJSON = true

	cfg.Model.Dir = filepath.Join(stateDir, "models")
	cfg.Model.Path = filepath.Join(cfg.Model.Dir, DefaultModelName)

	cfg.Whisper.Language = ""
	cfg.Whisper.Threads = 0
	cfg.Whisper.Verbose = false

	cfg.Audio.EnhanceFilter = "silenceremove=stop_periods=-1:stop_duration=0.7:stop_threshold=-45dB"
	cfg.Audio.SampleRate = 16000
	cfg.Audio.FrameMS = 20

	cfg.VAD.Enabled = true
	cfg.VAD.Aggressiveness = 2
	cfg.VAD.PaddingMS = 200

	cfg.Hook.Prefix = ""
	cfg.Hook.TimeoutSec = 5
	cfg.Hook.Env = map[string]string{}

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "sona.log")
	cfg.Paths.PidPath = filepath.Join(stateDir, "sona.pid")

	cfg.Metrics.Enabled = true

	return cfg, nil
}

// Load loads config from file, applying defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	// Read if exists; otherwise write template.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := Save(cfg, path); err != nil {
				return nil, err
			}
			cfg.Paths.ConfigPath = path
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaxUploadBytes returns the request body limit for audio uploads.
func (c *Config) MaxUploadBytes() int64 {
	if c.Server.MaxUploadMB <= 0 {
		return defaultMaxUploadMB << 20
	}
	return int64(c.Server.MaxUploadMB) << 20
}

// ResolveModel maps a bare model file name to the model dir; paths are
// returned unchanged.
func (c *Config) ResolveModel(nameOrPath string) string {
	if strings.ContainsAny(nameOrPath, `/\`) {
		return os.ExpandEnv(nameOrPath)
	}
	return filepath.Join(os.ExpandEnv(c.Model.Dir), nameOrPath)
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath), filepath.Dir(cfg.Paths.PidPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SONA_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SONA_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p >= 0 {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("SONA_MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv("SONA_VERBOSE"); v != "" {
		cfg.Whisper.Verbose = truthy(v)
	}
	if v := os.Getenv("SONA_FFMPEG_PATH"); v != "" {
		cfg.Audio.FFmpegPath = v
	}
	if v := os.Getenv("SONA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SONA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SONA_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = truthy(v)
	}
}

func truthy(v string) bool {
	return v != "0" && strings.ToLower(v) != "false"
}
