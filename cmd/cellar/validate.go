// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <formula>",
		Short: "Check a formula and print its install plan",
		Long: `Check a formula and print its install plan without side effects.

Every problem found in the recipe is reported at once. A valid formula
prints the typed plan install would execute:
fetch, set-env*, run-command*, copy-artifact+, verify.

A formula must copy at least one artifact, all run steps must come before
the first artifact, and no two artifacts may share an install path.`,
		Args:              exactArgs(1),
		ValidArgsFunction: app.completeFormulas,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, f, err := app.loadFormula(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(app.stdout, "%s %s\n", TitleStyle.Render("Plan for"), TitleStyle.Render(f.Name.String()))
			for i, step := range f.Plan() {
				fmt.Fprintf(app.stdout, "  %2d. %s%s\n", i+1, stepKindStyle.Render(step.Kind.String()), step.Description)
			}
			fmt.Fprintf(app.stdout, "%s %s is valid\n", SuccessStyle.Render(markOK), f.FilePath)
			return nil
		},
	}
}
