package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"scenecast/internal/config"
)

var skipConfigLoad = map[string]string{"skipConfigLoad": "true"}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration utilities"}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var path string
	var overwrite bool
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := initTarget(path)
			if err != nil {
				return err
			}
			if !overwrite {
				if err := refuseExisting(target); err != nil {
					return err
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set llm.api_key and pexels.api_key (or OPENROUTER_API_KEY and PEXELS_KEY) before generating videos.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

// initTarget expands path, or picks the default location when it is blank.
func initTarget(path string) (string, error) {
	var (
		target string
		err    error
	)
	if path = strings.TrimSpace(path); path == "" {
		target, err = config.DefaultConfigPath()
	} else {
		target, err = config.ExpandPath(path)
	}
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return target, nil
}

func refuseExisting(target string) error {
	_, err := os.Stat(target)
	switch {
	case err == nil:
		return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("check config path: %w", err)
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load and validate the configuration",
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file not found; defaults were used")
			}
			for _, line := range [][2]string{
				{"LLM", fmt.Sprintf("%s (%s)", cfg.LLM.Provider, cfg.LLM.Model)},
				{"Clips", fmt.Sprintf("%s, %s", cfg.Clips.Source, cfg.Clips.Orientation)},
				{"Output", cfg.Paths.OutputDir},
			} {
				fmt.Fprintf(out, "%s: %s\n", line[0], line[1])
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
