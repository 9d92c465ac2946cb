package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sona/internal/config"

	"github.com/sirupsen/logrus"
)

func TestConfigureWritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Default()
	cfg.Paths.StateDir = dir
	cfg.Paths.LogPath = filepath.Join(dir, "logs", "sona.log")
	cfg.Paths.PidPath = filepath.Join(dir, "sona.pid")
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"

	logger, err := Configure(cfg)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level=%s", logger.GetLevel())
	}
	logger.Debug("hello from test")

	data, err := os.ReadFile(cfg.Paths.LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello from test"`) {
		t.Fatalf("unexpected log content: %s", data)
	}
}
