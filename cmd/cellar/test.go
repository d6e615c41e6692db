// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cellarhq/cellar/internal/installer"
)

func newTestCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "test <formula>",
		Short: "Run the test of an installed formula",
		Long: `Run the test of an installed formula against the files in the prefix.

The test runs in a temporary directory with PREFIX set and the prefix's
bin directory first on PATH. A formula without a test passes trivially.
A failing test exits with status 7.`,
		Args:              exactArgs(1),
		ValidArgsFunction: app.completeFormulas,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd, app, args[0])
		},
	}
}

func runTest(cmd *cobra.Command, app *App, ref string) error {
	cfg, f, err := app.loadFormula(cmd.Context(), ref)
	if err != nil {
		return err
	}

	outcome, err := app.installService().Verify(cmd.Context(), f, cfg.Prefix)
	if outcome != nil {
		renderTestOutcome(app, outcome)
	}
	if err != nil {
		return commandError("test formula", f.Name.String(), err)
	}
	return nil
}

func renderTestOutcome(app *App, t *installer.TestOutcome) {
	if t.Passed {
		fmt.Fprintf(app.stdout, "%s %s %s\n", SuccessStyle.Render(markOK), "test passed:", CmdStyle.Render(t.Command))
	} else {
		fmt.Fprintf(app.stdout, "%s %s %s\n", ErrorStyle.Render(markFail), "test failed:", CmdStyle.Render(t.Command))
	}
	if app.verbose && strings.TrimSpace(t.Output) != "" {
		fmt.Fprintln(app.stdout, VerboseStyle.Render(strings.TrimRight(t.Output, "\n")))
	}
}
