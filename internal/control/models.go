package control

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"sona/internal/client"
	"sona/internal/config"

	"github.com/spf13/cobra"
)

// modelBaseURL hosts the ggml whisper models.
var modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// simple registry of known ggml models.
var modelRegistry = []string{
	"ggml-tiny.bin",
	"ggml-tiny.en.bin",
	"ggml-base.bin",
	"ggml-base.en.bin",
	"ggml-small.bin",
	"ggml-small-q5_1.bin",
	"ggml-medium-q5_0.bin",
	"ggml-large-v3-turbo.bin",
	"ggml-large-v3-turbo-q8_0.bin",
}

func knownModel(name string) bool {
	for _, n := range modelRegistry {
		if n == name {
			return true
		}
	}
	return false
}

// NewModelsCmd wires up the models subcommands (list/download/set).
func NewModelsCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List/download/set whisper models",
	}
	cmd.AddCommand(newModelsListCmd(cfgPath))
	cmd.AddCommand(newModelsDownloadCmd(cfgPath))
	cmd.AddCommand(newModelsSetCmd(cfgPath))
	return cmd
}

func newModelsListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known models and those present locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			for _, line := range modelListing(cfg) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

// modelListing merges the registry with files found in the model dir.
func modelListing(cfg *config.Config) []string {
	dir := os.ExpandEnv(cfg.Model.Dir)
	local := map[string]bool{}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".bin" {
			local[e.Name()] = true
		}
	}
	names := append([]string{}, modelRegistry...)
	for n := range local {
		if !knownModel(n) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	active := filepath.Base(os.ExpandEnv(cfg.Model.Path))
	out := make([]string, 0, len(names))
	for _, n := range names {
		mark := "-"
		if n == active {
			mark = "*"
		}
		line := fmt.Sprintf("%s %s", mark, n)
		if local[n] {
			line += " (downloaded)"
		}
		out = append(out, line)
	}
	return out
}

func newModelsDownloadCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "download <model>",
		Short: "Download a model from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			name := args[0]
			if !knownModel(name) {
				return fmt.Errorf("unknown model %q; run models list", name)
			}
			dest := filepath.Join(os.ExpandEnv(cfg.Model.Dir), name)
			fmt.Fprintf(cmd.OutOrStdout(), "downloading %s -> %s\n", name, dest)
			return downloadModel(cmd.Context(), name, dest)
		},
	}
}

// downloadModel fetches name into dest through a .part file.
func downloadModel(ctx context.Context, name, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelBaseURL+"/"+name, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}

func newModelsSetCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <model-name-or-path>",
		Short: "Set model.path in config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			val := cfg.ResolveModel(args[0])
			cfg.Model.Path = val
			if err := config.Save(cfg, cfg.Paths.ConfigPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model set to %s\n", val)
			if load, _ := cmd.Flags().GetBool("load"); load {
				if err := client.New(serverURL(cfg)).LoadModel(cmd.Context(), val); err != nil {
					return fmt.Errorf("load on running server: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "running server switched model")
			}
			return nil
		},
	}
	cmd.Flags().Bool("load", false, "also switch the running server to this model")
	return cmd
}

// NewSetupCmd downloads the configured model if missing.
func NewSetupCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Download the configured whisper model if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			modelPath := os.ExpandEnv(cfg.Model.Path)
			if _, err := os.Stat(modelPath); err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "model already present at", modelPath)
				return nil
			}
			name := filepath.Base(modelPath)
			if !knownModel(name) {
				name = config.DefaultModelName
			}
			fmt.Fprintf(cmd.OutOrStdout(), "downloading %s to %s\n", name, modelPath)
			if err := downloadModel(cmd.Context(), name, modelPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "model download complete")
			return nil
		},
	}
}
