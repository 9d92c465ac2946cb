package control

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sona/internal/audio"
	"sona/internal/client"
	"sona/internal/config"
	"sona/internal/hook"
	"sona/internal/logging"
	"sona/internal/server"
	"sona/internal/whisper"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// addTranscribeFlags registers the options shared by transcribe, remote and record.
func addTranscribeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("language", "l", "", "spoken language, e.g. en (default from config)")
	cmd.Flags().String("prompt", "", "initial prompt / vocabulary hint")
	cmd.Flags().Bool("detect-language", false, "auto-detect the spoken language")
	cmd.Flags().StringP("format", "f", "text", "output format: json, text, srt, vtt, verbose_json")
	cmd.Flags().Bool("stream", false, "print segments as they are decoded")
	cmd.Flags().Bool("hook", false, "also send the transcript through the configured hook")
}

// transcribeOptions layers command flags over the [whisper] config section.
func transcribeOptions(cmd *cobra.Command, cfg *config.Config) whisper.TranscribeOptions {
	opts := whisper.TranscribeOptions{
		Language:       cfg.Whisper.Language,
		DetectLanguage: cfg.Whisper.DetectLanguage,
		Translate:      cfg.Whisper.Translate,
		Threads:        cfg.Whisper.Threads,
		Prompt:         cfg.Whisper.Prompt,
		Verbose:        cfg.Whisper.Verbose,
	}
	if v, _ := cmd.Flags().GetString("language"); v != "" {
		opts.Language = v
	}
	if v, _ := cmd.Flags().GetString("prompt"); v != "" {
		opts.Prompt = v
	}
	if f := cmd.Flags().Lookup("detect-language"); f != nil && f.Changed {
		opts.DetectLanguage, _ = cmd.Flags().GetBool("detect-language")
	}
	if f := cmd.Flags().Lookup("translate"); f != nil && f.Changed {
		opts.Translate, _ = cmd.Flags().GetBool("translate")
	}
	if f := cmd.Flags().Lookup("threads"); f != nil && f.Changed {
		opts.Threads, _ = cmd.Flags().GetInt("threads")
	}
	if f := cmd.Flags().Lookup("verbose"); f != nil && f.Changed {
		opts.Verbose, _ = cmd.Flags().GetBool("verbose")
	}
	return opts
}

// NewTranscribeCmd transcribes an audio file in-process.
func NewTranscribeCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <audiofile>",
		Short: "Transcribe an audio file locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if m, _ := cmd.Flags().GetString("model"); m != "" {
				cfg.Model.Path = cfg.ResolveModel(m)
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			if _, _, err := server.Render(format, whisper.TranscribeResult{}, "", 0); err != nil {
				return err
			}

			aopts := audio.OptionsFromConfig(cfg)
			aopts.EnhanceAudio, _ = cmd.Flags().GetBool("enhance")
			samples, err := audio.ReadFile(args[0], aopts)
			if err != nil {
				return err
			}
			opts := transcribeOptions(cmd, cfg)
			stream, _ := cmd.Flags().GetBool("stream")

			res, err := transcribeLocal(cmd.Context(), cfg, logger, samples, opts, streamCallbacks(cmd, stream))
			if err != nil {
				return err
			}
			if !stream {
				if err := printResult(cmd.OutOrStdout(), format, res, opts.Language, len(samples)); err != nil {
					return err
				}
			}
			if wantHook, _ := cmd.Flags().GetBool("hook"); wantHook {
				return runHook(cmd.Context(), cfg, logger, res.Text(), filepath.Base(args[0]))
			}
			return nil
		},
	}
	addTranscribeFlags(cmd)
	cmd.Flags().String("model", "", "model name or path (default from config)")
	cmd.Flags().Bool("enhance", false, "remove long silences before inference")
	cmd.Flags().Bool("translate", false, "translate to English")
	cmd.Flags().Int("threads", 0, "CPU threads (0 = whisper default)")
	cmd.Flags().Bool("verbose", false, "forward whisper.cpp logs to stderr")
	return cmd
}

// transcribeLocal loads the configured model and runs one inference.
func transcribeLocal(ctx context.Context, cfg *config.Config, logger *logrus.Logger, samples []float32, opts whisper.TranscribeOptions, cb *whisper.StreamCallbacks) (whisper.TranscribeResult, error) {
	whisper.SetLogger(logger)
	modelPath := os.ExpandEnv(cfg.Model.Path)
	wctx, err := whisper.New(modelPath)
	if err != nil {
		return whisper.TranscribeResult{}, fmt.Errorf("load %s: %w", modelPath, err)
	}
	defer func() { _ = wctx.Close() }()

	start := time.Now()
	res, err := wctx.TranscribeStream(ctx, samples, opts, cb)
	if err != nil {
		return res, err
	}
	logger.Infof("transcribed %.1fs of audio in %s", float64(len(samples))/audio.SampleRate, time.Since(start))
	return res, nil
}

// streamCallbacks prints segments to stdout and progress to stderr.
func streamCallbacks(cmd *cobra.Command, stream bool) *whisper.StreamCallbacks {
	if !stream {
		return nil
	}
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	return &whisper.StreamCallbacks{
		OnProgress: func(p int) {
			fmt.Fprintf(errOut, "\rprogress: %3d%%", p)
			if p >= 100 {
				fmt.Fprintln(errOut)
			}
		},
		OnSegment: func(seg whisper.Segment) {
			fmt.Fprintln(out, segmentLine(seg))
		},
	}
}

func segmentLine(seg whisper.Segment) string {
	return fmt.Sprintf("[%s --> %s] %s", clock(seg.Start), clock(seg.End), strings.TrimSpace(seg.Text))
}

// clock renders centiseconds as MM:SS.cc, growing an hour field when needed.
func clock(cs int64) string {
	h := cs / 360000
	m := cs / 6000 % 60
	s := cs / 100 % 60
	c := cs % 100
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, c)
	}
	return fmt.Sprintf("%02d:%02d.%02d", m, s, c)
}

func printResult(w io.Writer, format string, res whisper.TranscribeResult, language string, nSamples int) error {
	if format == "" || format == "text" {
		_, err := fmt.Fprintln(w, strings.TrimSpace(res.Text()))
		return err
	}
	body, _, err := server.Render(format, res, language, float64(nSamples)/audio.SampleRate)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, body)
	return err
}

func runHook(ctx context.Context, cfg *config.Config, logger *logrus.Logger, text, source string) error {
	r := hook.NewRunner(cfg, logger)
	if !r.Enabled() {
		return fmt.Errorf("no hook configured; set [hook] command in %s", cfg.Paths.ConfigPath)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("empty transcript; hook skipped")
	}
	return r.Run(ctx, hook.Job{Text: text, Source: source, Timestamp: time.Now()})
}

// NewRemoteCmd transcribes through a running server.
func NewRemoteCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote <audiofile>",
		Short: "Transcribe an audio file through a running sona server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			url, _ := cmd.Flags().GetString("url")
			if url == "" {
				url = serverURL(cfg)
			}
			format, _ := cmd.Flags().GetString("format")
			stream, _ := cmd.Flags().GetBool("stream")
			enhance, _ := cmd.Flags().GetBool("enhance")
			opts := transcribeOptions(cmd, cfg)
			req := client.TranscribeRequest{
				File:           args[0],
				Language:       opts.Language,
				Prompt:         opts.Prompt,
				ResponseFormat: format,
				DetectLanguage: opts.DetectLanguage,
				EnhanceAudio:   enhance,
			}
			c := client.New(url)
			out := cmd.OutOrStdout()

			var text string
			if stream {
				text, err = c.Stream(cmd.Context(), req, func(ev server.StreamEvent) {
					if ev.Type == server.EventSegment {
						fmt.Fprintf(out, "[%.2f --> %.2f] %s\n", ev.Start, ev.End, strings.TrimSpace(ev.Text))
					}
				})
			} else {
				text, err = c.Transcribe(cmd.Context(), req)
				if err == nil {
					fmt.Fprintln(out, strings.TrimRight(text, "\n"))
				}
			}
			if err != nil {
				return err
			}
			if wantHook, _ := cmd.Flags().GetBool("hook"); wantHook {
				logger, err := logging.Configure(cfg)
				if err != nil {
					return err
				}
				return runHook(cmd.Context(), cfg, logger, text, filepath.Base(args[0]))
			}
			return nil
		},
	}
	addTranscribeFlags(cmd)
	cmd.Flags().String("url", "", "server base URL (default from config)")
	cmd.Flags().Bool("enhance", false, "ask the server to remove long silences")
	return cmd
}
