package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"sona/internal/config"
	"sona/internal/logging"
	"sona/internal/run"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewStartCmd starts the server in the background.
func NewStartCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the sona server in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := ensureNotRunning(cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(cfg.Paths.PidPath), 0o755); err != nil {
				return err
			}
			self, err := os.Executable()
			if err != nil {
				return err
			}
			child := exec.Command(self, "serve", "--config", cfg.Paths.ConfigPath, "--ready-json=false")
			// propagate runtime flags via env overrides
			child.Env = append(os.Environ(), overrideEnv(cmd)...)
			child.Stdout = os.Stdout
			child.Stderr = os.Stderr
			if err := child.Start(); err != nil {
				return err
			}
			// Wait a moment and confirm pid file appears.
			waited := 0
			for waited < 20 {
				if _, err := os.Stat(cfg.Paths.PidPath); err == nil {
					break
				}
				time.Sleep(100 * time.Millisecond)
				waited++
			}
			fmt.Printf("sona started (pid %d)\n", child.Process.Pid)
			return nil
		},
	}
	addOverrideFlags(cmd)
	return cmd
}

// NewServeCmd runs the server in the foreground.
func NewServeCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sona HTTP server in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, kv := range overrideEnv(cmd) {
				k, v := splitEnv(kv)
				if err := os.Setenv(k, v); err != nil {
					return fmt.Errorf("set %s: %w", k, err)
				}
			}
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ready-json") {
				cfg.Server.ReadyJSON, _ = cmd.Flags().GetBool("ready-json")
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			return run.Serve(cfg, logger)
		},
	}
	addOverrideFlags(cmd)
	cmd.Flags().Bool("ready-json", true, `print {"status":"ready","port":N} on stdout once listening`)
	return cmd
}

// NewStopCmd stops the background server.
func NewStopCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the sona server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			pid, err := readPID(cfg.Paths.PidPath)
			if err != nil {
				return err
			}
			proc, err := os.FindProcess(pid)
			if err != nil {
				return err
			}
			if err := proc.Signal(syscall.SIGTERM); err != nil {
				return err
			}
			fmt.Println("stop signal sent")
			return nil
		},
	}
}

// NewRestartCmd stops then starts.
func NewRestartCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the sona server",
		RunE: func(cmd *cobra.Command, args []string) error {
			stopCmd := NewStopCmd(cfgPath)
			_ = stopCmd.RunE(stopCmd, args) // ignore error if not running

			if err := waitForShutdown(*cfgPath, 5*time.Second); err != nil {
				return err
			}

			startCmd := NewStartCmd(cfgPath)
			cmd.Flags().Visit(func(f *pflag.Flag) {
				_ = startCmd.Flags().Set(f.Name, f.Value.String())
			})
			return startCmd.RunE(startCmd, args)
		},
	}
	addOverrideFlags(cmd)
	return cmd
}

func addOverrideFlags(cmd *cobra.Command) {
	cmd.Flags().Int("port", -1, "listen port for this run (0 = pick a free port)")
	cmd.Flags().String("host", "", "listen host for this run")
	cmd.Flags().String("model", "", "model path for this run")
	cmd.Flags().Bool("verbose", false, "forward whisper.cpp logs to stderr")
}

// overrideEnv maps changed runtime flags to SONA_* environment overrides.
func overrideEnv(cmd *cobra.Command) []string {
	var env []string
	if f := cmd.Flag("port"); f != nil && f.Changed {
		env = append(env, "SONA_PORT="+f.Value.String())
	}
	if f := cmd.Flag("host"); f != nil && f.Changed {
		env = append(env, "SONA_HOST="+f.Value.String())
	}
	if f := cmd.Flag("model"); f != nil && f.Changed {
		env = append(env, "SONA_MODEL_PATH="+f.Value.String())
	}
	if f := cmd.Flag("verbose"); f != nil && f.Changed {
		env = append(env, "SONA_VERBOSE="+f.Value.String())
	}
	return env
}

func splitEnv(kv string) (string, string) {
	k, v, _ := strings.Cut(kv, "=")
	return k, v
}

func ensureNotRunning(cfg *config.Config) error {
	pid, err := readPID(cfg.Paths.PidPath)
	if err != nil {
		return nil
	}
	if processAlive(pid) {
		return fmt.Errorf("already running with pid %d", pid)
	}
	return nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("pid file %s: %w", path, err)
	}
	return pid, nil
}

func waitForShutdown(cfgPath string, timeout time.Duration) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		pid, err := readPID(cfg.Paths.PidPath)
		if err != nil {
			return nil // pid file gone
		}
		if !processAlive(pid) {
			_ = os.Remove(cfg.Paths.PidPath)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("restart: server did not stop within %s", timeout)
}
