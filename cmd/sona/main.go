package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sona/internal/control"
	"sona/internal/daemon"

	"github.com/spf13/cobra"
)

const version = "0.2.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "sona",
		Short: "Sona: local whisper.cpp transcription server and CLI",
		Long: `Sona transcribes audio locally with whisper.cpp. It runs as an
OpenAI-compatible HTTP server or transcribes files and mic recordings directly.

Key commands:
  serve                        Run the HTTP server in the foreground
  start|stop|restart           Background server lifecycle
  transcribe <file>            Transcribe locally (--format, --stream, --hook)
  remote <file>                Transcribe through a running server
  record                       Record from the mic and transcribe
  models list|download|set     Manage whisper.cpp models
  mic list|set                 Select microphone
  doctor|setup                 Check deps / download the configured model
  health|tail-log|test-hook    Liveness, log tail, manual hook
  config show|path             Inspect configuration

Env overrides: SONA_HOST, SONA_PORT, SONA_MODEL_PATH, SONA_VERBOSE,
               SONA_FFMPEG_PATH, SONA_LOG_LEVEL/FORMAT, SONA_METRICS_ENABLED`,
		Example: `  sona setup
  sona serve --port 0 --ready-json
  sona transcribe meeting.m4a --format srt
  sona remote clip.wav --stream
  sona models download ggml-large-v3-turbo.bin
  sona models set ggml-large-v3-turbo.bin --load
  sona record --duration 10s --hook`,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
	}

	root.Version = version
	root.SetVersionTemplate("sona v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/sona/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(daemon.NewServeCmd(cfgPath))
	root.AddCommand(daemon.NewStartCmd(cfgPath))
	root.AddCommand(daemon.NewStopCmd(cfgPath))
	root.AddCommand(daemon.NewRestartCmd(cfgPath))
	root.AddCommand(control.NewTranscribeCmd(cfgPath))
	root.AddCommand(control.NewRemoteCmd(cfgPath))
	root.AddCommand(control.NewRecordCmd(cfgPath))
	root.AddCommand(control.NewHealthCmd(cfgPath))
	root.AddCommand(control.NewMicCmd(cfgPath))
	root.AddCommand(control.NewModelsCmd(cfgPath))
	root.AddCommand(control.NewSetupCmd(cfgPath))
	root.AddCommand(control.NewDoctorCmd(cfgPath))
	root.AddCommand(control.NewConfigCmd(cfgPath))
	root.AddCommand(control.NewTailLogCmd(cfgPath))
	root.AddCommand(control.NewTestHookCmd(cfgPath))

	applyColorHelp(root)

	// Ctrl-C cancels the command context, which aborts running inference.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root.ExecuteContext(ctx)
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	defaultHelp := root.HelpFunc()
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != root {
			defaultHelp(cmd, args)
			return
		}
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%sSona%s: local whisper.cpp transcription %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sOpenAI-compatible server, file and mic transcription, hooks.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  sona [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  serve [--port N] [--ready-json]  foreground HTTP server")
		writeln("  start|stop|restart               background server lifecycle")
		writeln("  transcribe <file>                local transcription (--format, --stream)")
		writeln("  remote <file>                    transcribe via a running server")
		writeln("  record [--duration 5s]           mic capture + transcription")
		writeln("  models list|download|set         manage whisper.cpp models")
		writeln("  doctor|setup                     check deps / fetch model")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  -c, --config <path>     config file (default ~/.config/sona/config.toml)")
		writeln("  Env: SONA_PORT=0, SONA_MODEL_PATH=/path/ggml.bin, SONA_VERBOSE=1,")
		writeln("       SONA_LOG_LEVEL=debug, SONA_LOG_FORMAT=json, SONA_METRICS_ENABLED=0")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
