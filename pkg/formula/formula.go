// SPDX-License-Identifier: MPL-2.0

package formula

import (
	"errors"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cellarhq/cellar/pkg/types"
)

const (
	// SourceGit clones the source with git, optionally pinned to a revision.
	SourceGit SourceKind = "git"
	// SourceLocal copies a directory tree from the local filesystem.
	SourceLocal SourceKind = "local"

	// RuntimeNative runs build commands with the host shell.
	RuntimeNative RuntimeMode = "native"
	// RuntimeVirtual runs build commands in the embedded shell interpreter.
	RuntimeVirtual RuntimeMode = "virtual"

	// DefaultStage is the work dir sub-directory the source is placed in
	// when a formula does not declare one.
	DefaultStage types.RelativePath = "src"

	// StateDir is the prefix directory holding receipts. Artifacts are
	// never installed under it.
	StateDir = ".cellar"
)

// ErrNoHeadSource is returned by WithHeadSource for formulas without a head URL.
var ErrNoHeadSource = errors.New("formula declares no head source")

type (
	// SourceKind names how the source is materialized.
	SourceKind string

	// RuntimeMode selects the shell used for run-command steps.
	RuntimeMode string

	// Formula is a parsed recipe. It is treated as immutable once loaded;
	// helpers that derive a variant return a copy.
	Formula struct {
		// Name identifies the formula, its receipt and its lock file.
		Name types.FormulaName `json:"name"`
		// Desc is a one-line description.
		Desc string `json:"desc,omitempty"`
		// Homepage is the project URL shown by `cellar info`.
		Homepage string `json:"homepage,omitempty"`
		// URL is the source locator: a git URL or, for local sources, a
		// directory (relative paths resolve against the formula file).
		URL string `json:"url"`
		// Using is the source kind; defaults to git.
		Using SourceKind `json:"using,omitempty"`
		// Revision pins a git commit, tag or branch. Optional.
		Revision string `json:"revision,omitempty"`
		// Version is a display label only. It is never compared, so
		// conventions like "master" are legal.
		Version string `json:"version,omitempty"`
		// Head is an alternate git URL installed with --head.
		Head string `json:"head,omitempty"`
		// Stage is the work dir sub-directory the source is placed in.
		Stage types.RelativePath `json:"stage,omitempty"`
		// Runtime selects the shell for run and test steps. Empty means the
		// configured default, see EffectiveRuntime.
		Runtime RuntimeMode `json:"runtime,omitempty"`
		// DependsOn lists the tools the formula needs, in declaration order.
		DependsOn []Dependency `json:"depends_on,omitempty"`
		// Env declares build environment variables. Values are expanded
		// against the build environment, e.g. "$BUILDPATH".
		Env map[string]string `json:"env,omitempty"`
		// Install is the ordered list of typed install steps.
		Install []Step `json:"install,omitempty"`
		// Test is the post-install verification; nil means a trivial check.
		Test *TestStep `json:"test,omitempty"`

		// FilePath is the file the formula was loaded from.
		FilePath string `json:"-"`
	}

	// TestStep verifies an installed formula.
	TestStep struct {
		// Run is the shell command to execute.
		Run string `json:"run"`
		// ExpectOutput is an optional regular expression stdout must match.
		ExpectOutput string `json:"expect_output,omitempty"`
	}
)

// String returns the string representation of the SourceKind.
func (k SourceKind) String() string { return string(k) }

// IsValid reports whether the SourceKind is known.
func (k SourceKind) IsValid() bool { return k == SourceGit || k == SourceLocal }

// String returns the string representation of the RuntimeMode.
func (m RuntimeMode) String() string { return string(m) }

// IsValid reports whether the RuntimeMode is known.
func (m RuntimeMode) IsValid() bool { return m == RuntimeNative || m == RuntimeVirtual }

// InStateDir reports whether the prefix-relative path p lies in StateDir.
func InStateDir(p types.RelativePath) bool {
	clean := path.Clean(strings.ReplaceAll(strings.TrimSpace(p.String()), "\\", "/"))
	return clean == StateDir || strings.HasPrefix(clean, StateDir+"/")
}

// StageDir returns the stage directory, falling back to DefaultStage.
func (f *Formula) StageDir() types.RelativePath {
	if f.Stage == "" {
		return DefaultStage
	}
	return f.Stage
}

// SourceURL returns the source locator. Relative local paths are resolved
// against the directory of the formula file.
func (f *Formula) SourceURL() string {
	if f.Using != SourceLocal {
		return f.URL
	}
	url := strings.TrimPrefix(f.URL, "file://")
	if filepath.IsAbs(url) || f.FilePath == "" {
		return url
	}
	return filepath.Join(filepath.Dir(f.FilePath), url)
}

// BuildDependencies returns the dependencies needed during the build.
func (f *Formula) BuildDependencies() []Dependency {
	return f.dependenciesOfKind(DependencyBuild)
}

// RuntimeDependencies returns the dependencies needed to use the result.
func (f *Formula) RuntimeDependencies() []Dependency {
	return f.dependenciesOfKind(DependencyRuntime)
}

func (f *Formula) dependenciesOfKind(kind DependencyKind) []Dependency {
	var out []Dependency
	for _, d := range f.DependsOn {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// BuildSteps returns the set-env and run-command steps in order.
func (f *Formula) BuildSteps() []Step {
	var out []Step
	for _, s := range f.Install {
		if k := s.Kind(); k == StepSetEnv || k == StepRun {
			out = append(out, s)
		}
	}
	return out
}

// Artifacts returns the copy-artifact steps in order.
func (f *Formula) Artifacts() []Step {
	var out []Step
	for _, s := range f.Install {
		if s.Kind() == StepCopyArtifact {
			out = append(out, s)
		}
	}
	return out
}

// EffectiveRuntime returns the declared runtime, or native when none is
// declared.
func (f *Formula) EffectiveRuntime() RuntimeMode {
	if f.Runtime == "" {
		return RuntimeNative
	}
	return f.Runtime
}

// WithRuntime returns a copy that runs its steps with mode.
func (f *Formula) WithRuntime(mode RuntimeMode) *Formula {
	c := f.clone()
	c.Runtime = mode
	return c
}

// HasCustomTest reports whether the formula declares a test step.
func (f *Formula) HasCustomTest() bool {
	return f.Test != nil && strings.TrimSpace(f.Test.Run) != ""
}

// WithHeadSource returns a copy that builds from the head URL with no
// pinned revision.
func (f *Formula) WithHeadSource() (*Formula, error) {
	if f.Head == "" {
		return nil, ErrNoHeadSource
	}
	c := f.clone()
	c.URL = f.Head
	c.Using = SourceGit
	c.Revision = ""
	c.Version = "HEAD"
	return c, nil
}

func (f *Formula) clone() *Formula {
	c := *f
	c.DependsOn = slices.Clone(f.DependsOn)
	c.Env = maps.Clone(f.Env)
	c.Install = make([]Step, len(f.Install))
	for i, s := range f.Install {
		s.SetEnv = maps.Clone(s.SetEnv)
		c.Install[i] = s
	}
	if f.Test != nil {
		t := *f.Test
		c.Test = &t
	}
	return &c
}

// applyDefaults fills the defaults both recipe syntaxes share. The runtime
// is left empty so callers can apply a configured default.
func (f *Formula) applyDefaults() {
	if f.Using == "" {
		f.Using = SourceGit
	}
	for i := range f.DependsOn {
		if f.DependsOn[i].Kind == "" {
			f.DependsOn[i].Kind = DependencyBuild
		}
	}
}
