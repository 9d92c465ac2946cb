package control

import (
	"context"
	"fmt"
	"time"

	"sona/internal/audio"
	"sona/internal/config"
	"sona/internal/logging"
	"sona/internal/mic"

	"github.com/spf13/cobra"
)

// NewRecordCmd records from the microphone and transcribes the clip.
func NewRecordCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from the microphone and transcribe",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			duration, _ := cmd.Flags().GetDuration("duration")
			outPath, _ := cmd.Flags().GetString("out")
			noTranscribe, _ := cmd.Flags().GetBool("no-transcribe")

			opts := mic.Options{
				DeviceName: cfg.Audio.DeviceName,
				SampleRate: cfg.Audio.SampleRate,
				FrameMS:    cfg.Audio.FrameMS,
			}
			if opts.SampleRate <= 0 {
				opts.SampleRate = audio.SampleRate
			}
			recCtx, cancel := context.WithTimeout(cmd.Context(), duration)
			defer cancel()
			fmt.Fprintf(cmd.ErrOrStderr(), "recording for %s (ctrl-c to stop early)...\n", duration)
			pcm, err := mic.Record(recCtx, opts)
			if err != nil {
				return err
			}
			samples := audio.PCM16ToSamples(pcm, opts.SampleRate)
			if cfg.VAD.Enabled {
				samples, err = audio.TrimSilence(samples, audio.SampleRate, cfg.VAD.Aggressiveness, cfg.VAD.PaddingMS)
				if err != nil {
					return err
				}
			}
			logger.Infof("recorded %.1fs", float64(len(samples))/audio.SampleRate)

			if outPath != "" {
				if err := audio.WriteWAV(outPath, samples, audio.SampleRate); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", outPath)
			}
			if noTranscribe {
				return nil
			}
			if len(samples) == 0 {
				return fmt.Errorf("no speech captured")
			}

			// The recording window is over; inference gets the parent context.
			format, _ := cmd.Flags().GetString("format")
			stream, _ := cmd.Flags().GetBool("stream")
			topts := transcribeOptions(cmd, cfg)
			res, err := transcribeLocal(cmd.Context(), cfg, logger, samples, topts, streamCallbacks(cmd, stream))
			if err != nil {
				return err
			}
			if !stream {
				if err := printResult(cmd.OutOrStdout(), format, res, topts.Language, len(samples)); err != nil {
					return err
				}
			}
			if wantHook, _ := cmd.Flags().GetBool("hook"); wantHook {
				return runHook(cmd.Context(), cfg, logger, res.Text(), "mic")
			}
			return nil
		},
	}
	addTranscribeFlags(cmd)
	cmd.Flags().Duration("duration", 5*time.Second, "how long to record")
	cmd.Flags().StringP("out", "o", "", "also save the clip as a 16kHz WAV")
	cmd.Flags().Bool("no-transcribe", false, "only record")
	return cmd
}
