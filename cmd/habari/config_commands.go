package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"habari/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			_, statErr := os.Stat(target)
			switch {
			case statErr == nil && !overwrite:
				return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
			case statErr != nil && !errors.Is(statErr, fs.ErrNotExist):
				return fmt.Errorf("check %s: %w", target, statErr)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			defaults := config.Default()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintf(out, "Next: export %s, or put it in %s, then run `habari config validate`.\n",
				defaults.Stream.KeyEnv, filepath.Join(filepath.Dir(target), ".env"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

// initTarget resolves --path, falling back to the default config location.
func initTarget(flagValue string) (string, error) {
	if flagValue = strings.TrimSpace(flagValue); flagValue == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(flagValue)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configFlagValue())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Feeds (%d):\n", len(cfg.Feeds.URLs))
			for _, url := range cfg.Feeds.URLs {
				fmt.Fprintf(out, "  - %s\n", url)
			}
			fmt.Fprintf(out, "Translation: %s, %s -> %s\n", cfg.Translate.Provider, cfg.Translate.SourceLanguage, cfg.Translate.TargetLanguage)
			fmt.Fprintf(out, "Speech chain: %s\n", strings.Join(cfg.TTS.Engines, " -> "))
			fmt.Fprintf(out, "Ingest: %s\n", cfg.Stream.IngestURL)
			fmt.Fprintf(out, "Stream key present: %s\n", yesNo(cfg.HasStreamKey()))
			if !cfg.HasStreamKey() {
				fmt.Fprintf(out, "Set %s before running habari\n", cfg.Stream.KeyEnv)
			}
			fmt.Fprintf(out, "Cooldown %s, empty-cycle back-off %s, publish back-off %s\n", cfg.SegmentCooldown(), cfg.EmptyCycleBackoff(), cfg.PublishFailureBackoff())
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
