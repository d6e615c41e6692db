// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cellarhq/cellar/internal/config"
)

// newConfigCommand creates the `cellar config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage cellar configuration",
		Long: `Manage cellar configuration.

Configuration is stored in:
  - Linux: $XDG_CONFIG_HOME/cellar/config.cue (~/.config/cellar/config.cue)
  - macOS: ~/Library/Application Support/cellar/config.cue
  - Windows: %APPDATA%\cellar\config.cue

Every key can be overridden by a CELLAR_<KEY> environment variable,
e.g. CELLAR_PREFIX or CELLAR_UI_VERBOSE.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			source := cfg.Source
			if source == "" {
				source = "defaults and environment"
			}
			fmt.Fprintf(app.stdout, "%s\n\n", SubtitleStyle.Render("// source: "+source))
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  exactArgs(0),
		RunE: func(*cobra.Command, []string) error {
			path, created, err := config.CreateDefaultConfig("")
			if err != nil {
				return commandError("create configuration", "", err)
			}
			if !created {
				fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render("Configuration already exists:"), path)
				return nil
			}
			fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Created"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  exactArgs(0),
		RunE: func(*cobra.Command, []string) error {
			if app.configPath != "" {
				fmt.Fprintln(app.stdout, app.configPath)
				return nil
			}
			dir, err := config.ConfigDir()
			if err != nil {
				return commandError("locate configuration", "", err)
			}
			fmt.Fprintln(app.stdout, filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	return cfgCmd
}
