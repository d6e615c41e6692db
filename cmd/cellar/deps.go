// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cellarhq/cellar/internal/resolver"
	"github.com/cellarhq/cellar/pkg/formula"
)

func newDepsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "deps <formula>",
		Short: "Show the status of a formula's dependencies",
		Long: `Show the status of a formula's dependencies on this machine.

Each dependency is looked up on PATH and, when it declares a version
constraint, its version is probed. Unsatisfied build dependencies exit
with status 3; unsatisfied runtime dependencies are only reported.`,
		Args:              exactArgs(1),
		ValidArgsFunction: app.completeFormulas,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeps(cmd, app, args[0])
		},
	}
}

func runDeps(cmd *cobra.Command, app *App, ref string) error {
	_, f, err := app.loadFormula(cmd.Context(), ref)
	if err != nil {
		return err
	}
	if len(f.DependsOn) == 0 {
		fmt.Fprintf(app.stdout, "%s declares no dependencies\n", f.Name)
		return nil
	}

	deps, err := app.Checker.Check(cmd.Context(), f.DependsOn)
	if err != nil {
		return commandError("check dependencies", f.Name.String(), err)
	}

	var missing []resolver.Status
	for _, st := range deps.Statuses {
		renderStatus(app, st)
		if !st.OK() && st.Dependency.Kind == formula.DependencyBuild {
			missing = append(missing, st)
		}
	}
	if len(missing) > 0 {
		return commandError("resolve dependencies", f.Name.String(),
			&resolver.UnresolvedDependencyError{Formula: f.Name.String(), Missing: missing})
	}
	return nil
}

func renderStatus(app *App, st resolver.Status) {
	mark := SuccessStyle.Render(markOK)
	detail := st.Path
	if st.Version != "" {
		detail += " (" + st.Version + ")"
	}
	if !st.OK() {
		mark = ErrorStyle.Render(markFail)
		if st.Dependency.Kind == formula.DependencyRuntime {
			mark = WarningStyle.Render(markWarn)
		}
		detail = st.Problem
	}
	fmt.Fprintf(app.stdout, "  %s %s%s %s\n", mark, nameColumnStyle.Render(st.Dependency.String()), SubtitleStyle.Render(st.Dependency.Kind.String()), detail)
}
