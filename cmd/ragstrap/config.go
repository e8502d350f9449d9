// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/ragstrap/ragstrap/internal/config"

	"github.com/spf13/cobra"
)

const maskedToken = "********"

// newConfigCommand creates the `ragstrap config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ragstrap configuration",
		Long: `Manage ragstrap configuration.

Configuration is stored in:
  - Linux: ~/.config/ragstrap/config.cue
  - macOS: ~/Library/Application Support/ragstrap/config.cue
  - Windows: %APPDATA%\ragstrap\config.cue

A config.cue in the working directory is used when the user file is absent.
RAGSTRAP_* environment variables and GITHUB_TOKEN (also read from .env)
override file values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(err)
			}
			path, _ := config.ResolvePath(config.LoadOptions{ConfigFilePath: app.flags.configFile})
			showConfig(cmd.OutOrStdout(), cfg, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, created, err := config.CreateDefaultConfig()
			if err != nil {
				return app.fail(err)
			}
			w := cmd.OutOrStdout()
			if !created {
				fmt.Fprintf(w, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
				return nil
			}
			fmt.Fprintf(w, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return app.fail(err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Config directory: %s\n", cfgDir)
			fmt.Fprintf(w, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(masked(cfg)))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, cfg *config.Config, path string) {
	cfg = masked(cfg)
	key := CmdStyle.Render
	value := SuccessStyle.Render

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", key("references_dir"), value(cfg.ReferencesDir))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("github"))
	fmt.Fprintf(w, "  api_url: %s\n", value(cfg.GitHub.APIURL))
	fmt.Fprintf(w, "  token: %s\n", orNone(cfg.GitHub.Token, value))
	fmt.Fprintf(w, "  user_agent: %s\n", orNone(cfg.GitHub.UserAgent, value))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("capture"))
	fmt.Fprintf(w, "  mode: %s\n", value(cfg.Capture.Mode.String()))
	fmt.Fprintf(w, "  build_command: %s\n", value(cfg.Capture.BuildCommand))
	if cfg.Capture.HelpTimeout > 0 {
		fmt.Fprintf(w, "  help_timeout: %s\n", value(cfg.Capture.HelpTimeout.String()))
	} else {
		fmt.Fprintf(w, "  help_timeout: %s\n", SubtitleStyle.Render("(none)"))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", value(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(w, "  verbose: %s\n", value(fmt.Sprintf("%v", cfg.UI.Verbose)))
}

// masked returns a copy of cfg with the token hidden.
func masked(cfg *config.Config) *config.Config {
	c := *cfg
	if c.GitHub.Token != "" {
		c.GitHub.Token = maskedToken
	}
	return &c
}

func orNone(s string, render func(...string) string) string {
	if s == "" {
		return SubtitleStyle.Render("(none)")
	}
	return render(s)
}
