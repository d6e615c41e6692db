// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/cellarhq/cellar/internal/installer"
	"github.com/cellarhq/cellar/pkg/formula"
)

func newInfoCommand(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:               "info <formula>",
		Short:             "Show formula metadata and install status",
		Args:              exactArgs(1),
		ValidArgsFunction: app.completeFormulas,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, f, err := app.loadFormula(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			receipt, err := installer.ReadReceipt(cfg.Prefix, f.Name.String())
			if err != nil && !errors.Is(err, installer.ErrNotInstalled) {
				app.warn("%v", err)
			}
			md := formulaMarkdown(f, receipt, cfg.Prefix)
			if raw {
				fmt.Fprint(app.stdout, md)
				return nil
			}

			r, err := glamour.NewTermRenderer(
				glamour.WithStylePath(app.glamourStyle()),
				glamour.WithWordWrap(100),
			)
			if err != nil {
				return commandError("render formula info", f.Name.String(), err)
			}
			out, err := r.Render(md)
			if err != nil {
				return commandError("render formula info", f.Name.String(), err)
			}
			fmt.Fprint(app.stdout, out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the markdown source instead of rendering it")
	return cmd
}

// formulaMarkdown describes a formula; receipt is nil when it is not installed.
func formulaMarkdown(f *formula.Formula, receipt *installer.Receipt, prefix string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s", f.Name)
	if f.Version != "" {
		fmt.Fprintf(&sb, " %s", f.Version)
	}
	sb.WriteString("\n\n")
	if f.Desc != "" {
		sb.WriteString(f.Desc + "\n\n")
	}
	if f.Homepage != "" {
		fmt.Fprintf(&sb, "**Homepage:** %s\n\n", f.Homepage)
	}
	fmt.Fprintf(&sb, "**Recipe:** `%s`\n\n", f.FilePath)

	sb.WriteString("## Source\n\n")
	fmt.Fprintf(&sb, "- %s: `%s`\n", f.Using, f.SourceURL())
	if f.Revision != "" {
		fmt.Fprintf(&sb, "- revision: `%s`\n", f.Revision)
	}
	if f.Head != "" {
		fmt.Fprintf(&sb, "- head: `%s`\n", f.Head)
	}
	fmt.Fprintf(&sb, "- stage: `%s`\n", f.StageDir())
	fmt.Fprintf(&sb, "- runtime: %s\n\n", f.EffectiveRuntime())

	if len(f.DependsOn) > 0 {
		sb.WriteString("## Dependencies\n\n")
		for _, d := range f.DependsOn {
			fmt.Fprintf(&sb, "- `%s` (%s)\n", d, d.Kind)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Install plan\n\n")
	for i, step := range f.Plan() {
		fmt.Fprintf(&sb, "%d. **%s** `%s`\n", i+1, step.Kind, step.Description)
	}
	sb.WriteString("\n## Status\n\n")
	if receipt == nil {
		fmt.Fprintf(&sb, "Not installed in `%s`.\n", prefix)
		return sb.String()
	}
	fmt.Fprintf(&sb, "Installed in `%s` on %s", prefix, receipt.InstalledAt.Format("2006-01-02 15:04 MST"))
	if receipt.Commit != "" {
		fmt.Fprintf(&sb, " from commit `%s`", receipt.Commit)
	}
	sb.WriteString(":\n\n")
	for _, file := range receipt.Files {
		fmt.Fprintf(&sb, "- `%s`\n", file)
	}
	return sb.String()
}
