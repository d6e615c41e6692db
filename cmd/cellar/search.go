// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search [text]",
		Short: "List the formulas found in the search directories",
		Long: `List the formulas found in ./Formula and the configured formula_paths,
optionally only those whose name contains text. A name defined in more
than one directory resolves to the first one; the others are reported
as shadowed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			d, err := app.discovery(cfg)
			if err != nil {
				return commandError("search formulas", "", err)
			}

			res := d.All()
			for _, diag := range res.Diagnostics {
				app.warn("%s", diag.Message)
			}

			var filter string
			if len(args) == 1 {
				filter = args[0]
			}
			shown := 0
			for _, f := range res.Formulas {
				if !strings.Contains(f.Name, filter) {
					continue
				}
				fmt.Fprintf(app.stdout, "%s%s\n", nameColumnStyle.Render(f.Name), SubtitleStyle.Render(f.Path))
				shown++
			}
			if shown == 0 {
				fmt.Fprintf(app.stdout, "%s\n", SubtitleStyle.Render("No formulas found in "+strings.Join(d.SearchDirs(), ", ")))
			}
			return nil
		},
	}
}
