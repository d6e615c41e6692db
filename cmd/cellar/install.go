// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/cellarhq/cellar/internal/builder"
	"github.com/cellarhq/cellar/internal/pipeline"
	"github.com/cellarhq/cellar/pkg/formula"
)

type installFlags struct {
	head        bool
	timeout     time.Duration
	keepWorkDir bool
	runtime     string
}

func newInstallCommand(app *App) *cobra.Command {
	var flags installFlags

	cmd := &cobra.Command{
		Use:   "install <formula>",
		Short: "Build a formula and install it into the prefix",
		Long: `Build a formula and install it into the prefix.

The formula's dependencies are checked first; nothing is built when a
build dependency is missing. The source is fetched into a fresh work
directory, the install steps run in order, and the artifacts are copied
into the prefix only after every build step succeeded. Finally the
formula's test runs against the installed files; a failing test is
reported as a warning.`,
		Example: `  cellar install example1
  cellar install ./Formula/go-md2man.hcl --prefix /opt/tools
  cellar install example1 --head --timeout 10m`,
		Args:              exactArgs(1),
		ValidArgsFunction: app.completeFormulas,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, app, args[0], flags)
		},
	}

	cmd.Flags().BoolVar(&flags.head, "head", false, "build from the formula's head source instead of the pinned revision")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "abort the build and install after this duration (overrides the timeout config key)")
	cmd.Flags().BoolVar(&flags.keepWorkDir, "keep-workdir", false, "keep the work directory for inspection")
	cmd.Flags().StringVar(&flags.runtime, "runtime", "", "runtime for formulas that declare none (native, virtual)")

	return cmd
}

func runInstall(cmd *cobra.Command, app *App, ref string, flags installFlags) error {
	ctx := cmd.Context()
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	found, err := app.findFormula(cfg, ref)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Prefix:         cfg.Prefix,
		WorkRoot:       cfg.WorkRoot,
		KeepWorkDir:    cfg.KeepWorkDir || flags.keepWorkDir,
		Timeout:        cfg.Timeout,
		Head:           flags.head,
		DefaultRuntime: formula.RuntimeMode(cfg.DefaultRuntime),
	}
	if cmd.Flags().Changed("timeout") {
		opts.Timeout = flags.timeout
	}
	if flags.runtime != "" {
		mode := formula.RuntimeMode(flags.runtime)
		if !mode.IsValid() {
			return usageError(fmt.Errorf("invalid --runtime %q (expected native or virtual)", flags.runtime))
		}
		opts.DefaultRuntime = mode
	}

	res, err := app.runner().Run(ctx, found.Path, opts)
	renderRun(app.stdout, res)
	if err != nil {
		return commandError("install formula", ref, err)
	}

	for _, w := range res.Deps.Warnings {
		app.warn("runtime dependency %s", w)
	}
	for _, w := range res.Install.Warnings {
		app.warn("%v", w)
	}
	fmt.Fprintf(app.stdout, "%s %s %s into %s\n",
		SuccessStyle.Render(markOK),
		"Installed",
		TitleStyle.Render(res.Formula.Name.String()),
		cfg.Prefix)
	if opts.KeepWorkDir {
		fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("Work directory kept at"), res.WorkDir)
	}
	return nil
}

// renderRun prints the header and step list of a pipeline run.
func renderRun(w io.Writer, res *pipeline.Result) {
	if res == nil || res.Formula == nil {
		return
	}
	header := res.Formula.Name.String()
	if res.Formula.Version != "" {
		header += " " + res.Formula.Version
	}
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("==> "+header), SubtitleStyle.Render("(run "+res.RunID+")"))

	var steps []builder.StepResult
	switch {
	case res.Install != nil:
		steps = res.Install.Steps
	case res.Build != nil:
		steps = res.Build.Steps
	}
	testFailed := res.Install != nil && res.Install.Test != nil && !res.Install.Test.Passed
	for _, s := range steps {
		renderStep(w, s, s.Kind == formula.StepVerify && testFailed)
	}
}

// renderStep prints one step line. A step with a non-zero exit is a
// failure; warned marks a step that failed without stopping the run.
func renderStep(w io.Writer, s builder.StepResult, warned bool) {
	mark := SuccessStyle.Render(markOK)
	switch {
	case warned:
		mark = WarningStyle.Render(markWarn)
	case !s.ExitCode.IsSuccess():
		mark = ErrorStyle.Render(markFail)
	}
	line := fmt.Sprintf("  %s %s%s", mark, stepKindStyle.Render(s.Kind.String()), s.Command)
	if !s.ExitCode.IsSuccess() {
		line += ErrorStyle.Render(fmt.Sprintf(" (exit %s)", s.ExitCode))
	}
	if s.Duration >= 10*time.Millisecond {
		line += " " + SubtitleStyle.Render(s.Duration.Round(time.Millisecond).String())
	}
	fmt.Fprintln(w, line)
}
