// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUninstallCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall <formula>",
		Aliases: []string{"remove", "rm"},
		Short:   "Remove the files an install placed in the prefix",
		Long: `Remove the files recorded in the install receipt of a formula, any
directories left empty by that, and the receipt itself.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}

			receipt, err := app.installService().Uninstall(args[0], cfg.Prefix)
			if err != nil {
				return commandError("uninstall formula", args[0], err)
			}
			fmt.Fprintf(app.stdout, "%s Uninstalled %s %s\n",
				SuccessStyle.Render(markOK),
				TitleStyle.Render(receipt.Name),
				SubtitleStyle.Render(fmt.Sprintf("(%d file(s) removed)", len(receipt.Files))))
			return nil
		},
	}
}
