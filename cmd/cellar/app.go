// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cellarhq/cellar/internal/builder"
	"github.com/cellarhq/cellar/internal/config"
	"github.com/cellarhq/cellar/internal/discovery"
	"github.com/cellarhq/cellar/internal/installer"
	"github.com/cellarhq/cellar/internal/issue"
	"github.com/cellarhq/cellar/internal/pipeline"
	"github.com/cellarhq/cellar/internal/resolver"
	"github.com/cellarhq/cellar/pkg/formula"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer: every Cobra command handler receives an App reference and
	// delegates through its service interfaces.
	App struct {
		Config    ConfigProvider
		Runner    Runner
		Installer InstallService
		Checker   DependencyChecker

		stdout    io.Writer
		stderr    io.Writer
		getwd     func() (string, error)
		setLogger func(*slog.Logger)

		// Per-invocation state filled from persistent flags.
		verbose    bool
		configPath string
		prefix     string
		cfg        *config.Config
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config    ConfigProvider
		Runner    Runner
		Installer InstallService
		Checker   DependencyChecker
		Stdout    io.Writer
		Stderr    io.Writer
		Getwd     func() (string, error)
		SetLogger func(*slog.Logger)
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// Runner runs the install pipeline; *pipeline.Pipeline implements it.
	Runner interface {
		Run(ctx context.Context, path string, opts pipeline.Options) (*pipeline.Result, error)
	}

	// InstallService verifies and removes installed formulas; *installer.Installer
	// implements it.
	InstallService interface {
		Verify(ctx context.Context, f *formula.Formula, prefix string) (*installer.TestOutcome, error)
		Uninstall(formulaName, prefix string) (*installer.Receipt, error)
	}

	// DependencyChecker reports the status of dependencies; *resolver.Resolver
	// implements it.
	DependencyChecker interface {
		Check(ctx context.Context, deps []formula.Dependency) (*resolver.ResolvedDeps, error)
	}
)

// NewApp creates an App with defaults for omitted dependencies. The runner
// and installer defaults are built per invocation so that --verbose can
// stream subprocess output.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Checker == nil {
		deps.Checker = resolver.New(nil)
	}
	if deps.Getwd == nil {
		deps.Getwd = os.Getwd
	}
	if deps.SetLogger == nil {
		deps.SetLogger = slog.SetDefault
	}

	return &App{
		Config:    deps.Config,
		Runner:    deps.Runner,
		Installer: deps.Installer,
		Checker:   deps.Checker,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
		getwd:     deps.Getwd,
		setLogger: deps.SetLogger,
	}
}

// configure installs the process-wide logger. Library packages log through
// slog; the CLI renders those records with charmbracelet/log.
func (a *App) configure() {
	level := log.WarnLevel
	if a.verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(a.stderr, log.Options{
		Level:  level,
		Prefix: config.AppName,
	})
	a.setLogger(slog.New(logger))
}

// loadConfig loads the configuration once per invocation and applies the
// persistent flags on top of it.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		return nil, commandError("load configuration", a.configPath, err)
	}
	if a.prefix != "" {
		cfg.Prefix = a.prefix
	}
	if !a.verbose && cfg.UI.Verbose {
		a.verbose = true
		a.configure()
	}
	switch cfg.UI.ColorScheme {
	case config.ColorSchemeDark:
		lipgloss.SetHasDarkBackground(true)
	case config.ColorSchemeLight:
		lipgloss.SetHasDarkBackground(false)
	}
	a.cfg = cfg
	slog.Debug("configuration loaded", "source", cfg.Source, "prefix", cfg.Prefix)
	return cfg, nil
}

// runner returns the injected Runner or a pipeline wired to the real components.
func (a *App) runner() Runner {
	if a.Runner != nil {
		return a.Runner
	}
	var (
		builderOpts   []builder.Option
		installerOpts []installer.Option
	)
	if a.verbose {
		builderOpts = append(builderOpts, builder.WithStreams(a.stderr, a.stderr))
		installerOpts = append(installerOpts, installer.WithStreams(a.stderr, a.stderr))
	}
	return pipeline.New(
		pipeline.WithBuilder(builder.New(builderOpts...)),
		pipeline.WithInstaller(installer.New(installerOpts...)),
	)
}

// installService returns the injected InstallService or the real installer.
func (a *App) installService() InstallService {
	if a.Installer != nil {
		return a.Installer
	}
	if a.verbose {
		return installer.New(installer.WithStreams(a.stderr, a.stderr))
	}
	return installer.New()
}

// discovery returns a Discovery rooted at the working directory.
func (a *App) discovery(cfg *config.Config) (*discovery.Discovery, error) {
	wd, err := a.getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return discovery.New(wd, cfg.FormulaPaths), nil
}

// findFormula resolves a formula reference to a recipe file.
func (a *App) findFormula(cfg *config.Config, ref string) (*discovery.DiscoveredFormula, error) {
	d, err := a.discovery(cfg)
	if err != nil {
		return nil, commandError("find formula", ref, err)
	}
	found, err := d.Find(ref)
	if err != nil {
		return nil, commandError("find formula", ref, err)
	}
	slog.Debug("formula found", "ref", ref, "path", found.Path, "source", found.Source)
	return found, nil
}

// loadFormula finds and parses a formula. Formulas without a runtime get
// the configured default.
func (a *App) loadFormula(ctx context.Context, ref string) (*config.Config, *formula.Formula, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	found, err := a.findFormula(cfg, ref)
	if err != nil {
		return nil, nil, err
	}
	f, err := formula.Load(found.Path)
	if err != nil {
		return nil, nil, commandError("load formula", ref, err)
	}
	if f.Runtime == "" && cfg.DefaultRuntime != "" {
		f = f.WithRuntime(formula.RuntimeMode(cfg.DefaultRuntime))
	}
	return cfg, f, nil
}

// completeFormulas completes formula names found in the search directories.
func (a *App) completeFormulas(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := a.loadConfig(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveDefault
	}
	d, err := a.discovery(cfg)
	if err != nil {
		return nil, cobra.ShellCompDirectiveDefault
	}
	var names []string
	for _, f := range d.All().Formulas {
		if strings.HasPrefix(f.Name, toComplete) {
			names = append(names, f.Name)
		}
	}
	return names, cobra.ShellCompDirectiveDefault
}

// renderError is the fang error handler. Errors already reported by a
// command carry no message and are skipped.
func (a *App) renderError(w io.Writer, _ fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, a.verbose))

	if !a.verbose {
		return
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return
	}
	if entry := ae.CatalogIssue(); entry != nil {
		rendered, renderErr := entry.Render(a.glamourStyle())
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", ae.Issue, "error", renderErr)
			return
		}
		fmt.Fprint(w, rendered)
	}
}

// glamourStyle maps the configured color scheme to a glamour style name.
func (a *App) glamourStyle() string {
	if a.cfg == nil {
		return "auto"
	}
	switch a.cfg.UI.ColorScheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}

// warn prints a non-fatal problem to stderr.
func (a *App) warn(format string, args ...any) {
	fmt.Fprintf(a.stderr, "%s %s\n", WarningStyle.Render("Warning:"), fmt.Sprintf(format, args...))
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
