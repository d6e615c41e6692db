// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for cellar.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cellar",
		Short: "Build and install software from formulas",
		Long: TitleStyle.Render("cellar") + SubtitleStyle.Render(" - Build and install software from formulas") + `

cellar reads a formula describing how to fetch, build and install one
piece of software, checks the tools it needs, runs its build in a
throwaway work directory and copies the results into a prefix.

Formulas are CUE (.cue) or HCL (.hcl) files. They are referenced by path
or by name, in which case ./Formula and the configured formula_paths are
searched.

` + SubtitleStyle.Render("Examples:") + `
  cellar install example1           Build and install Formula/example1.cue
  cellar install ./go-md2man.hcl    Install from an explicit recipe file
  cellar test example1              Re-run the test of an installed formula
  cellar list                       List formulas installed into the prefix
  cellar config show                Show the effective configuration`,
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			app.configure()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "stream build output and enable debug logging")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/cellar/config.cue)")
	rootCmd.PersistentFlags().StringVar(&app.prefix, "prefix", "", "install prefix (overrides the prefix config key)")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	rootCmd.AddCommand(
		newInstallCommand(app),
		newTestCommand(app),
		newInfoCommand(app),
		newValidateCommand(app),
		newDepsCommand(app),
		newListCommand(app),
		newUninstallCommand(app),
		newSearchCommand(app),
		newConfigCommand(app),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(app.renderError),
	); err != nil {
		os.Exit(int(exitCodeOf(err)))
	}
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}
