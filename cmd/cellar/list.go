// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cellarhq/cellar/internal/installer"
)

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List formulas installed into the prefix",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}

			receipts, errs := installer.List(cfg.Prefix)
			for _, e := range errs {
				app.warn("%v", e)
			}
			if len(receipts) == 0 {
				fmt.Fprintf(app.stdout, "%s\n", SubtitleStyle.Render("No formulas installed in "+cfg.Prefix))
				return nil
			}
			for _, r := range receipts {
				fmt.Fprintf(app.stdout, "%s%-12s %s\n",
					nameColumnStyle.Render(r.Name),
					r.Version,
					SubtitleStyle.Render(fmt.Sprintf("%d file(s), installed %s", len(r.Files), r.InstalledAt.Local().Format("2006-01-02 15:04"))))
			}
			return nil
		},
	}
}
