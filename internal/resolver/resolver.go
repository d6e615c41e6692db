// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cellarhq/cellar/pkg/formula"
)

// ErrUnresolvedDependency is the sentinel error wrapped by UnresolvedDependencyError.
var ErrUnresolvedDependency = errors.New("unresolved dependency")

type (
	// Status is the resolution outcome of one dependency.
	Status struct {
		Dependency formula.Dependency
		// Path is where the executable was found; empty when missing.
		Path string
		// Version is the canonical version reported by the tool, when probed.
		Version string
		// Problem describes why the dependency is unsatisfied; empty when ok.
		Problem string
	}

	// ResolvedDeps is the result of a resolution in declaration order.
	ResolvedDeps struct {
		Statuses []Status
		// Warnings lists unsatisfied runtime dependencies; they do not fail
		// the resolution.
		Warnings []string
	}

	// Resolver checks dependencies against a Host.
	Resolver struct {
		host Host
	}

	// UnresolvedDependencyError lists every unsatisfied build dependency.
	UnresolvedDependencyError struct {
		Formula string
		Missing []Status
	}
)

// New creates a Resolver. A nil host means the real machine.
func New(host Host) *Resolver {
	if host == nil {
		host = NewExecHost()
	}
	return &Resolver{host: host}
}

// OK reports whether the dependency is satisfied.
func (s Status) OK() bool { return s.Problem == "" }

// Resolve checks every dependency of f. Missing or unsatisfied build
// dependencies fail with *UnresolvedDependencyError listing all of them;
// runtime dependencies only produce warnings.
func (r *Resolver) Resolve(ctx context.Context, f *formula.Formula) (*ResolvedDeps, error) {
	out, err := r.Check(ctx, f.DependsOn)
	if err != nil {
		return nil, err
	}

	var missing []Status
	for _, s := range out.Statuses {
		if s.OK() {
			continue
		}
		if s.Dependency.Kind == formula.DependencyRuntime {
			out.Warnings = append(out.Warnings, fmt.Sprintf("runtime dependency %s: %s", s.Dependency.Name, s.Problem))
			continue
		}
		missing = append(missing, s)
	}
	if len(missing) > 0 {
		return nil, &UnresolvedDependencyError{Formula: f.Name.String(), Missing: missing}
	}
	return out, nil
}

// Check returns the status of each dependency without judging them.
func (r *Resolver) Check(ctx context.Context, deps []formula.Dependency) (*ResolvedDeps, error) {
	out := &ResolvedDeps{Statuses: make([]Status, 0, len(deps))}
	for _, d := range deps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out.Statuses = append(out.Statuses, r.check(ctx, d))
	}
	return out, nil
}

func (r *Resolver) check(ctx context.Context, d formula.Dependency) Status {
	st := Status{Dependency: d}

	constraint, hasConstraint, err := d.Constraint()
	if err != nil {
		st.Problem = err.Error()
		return st
	}

	path, err := r.host.LookPath(d.Name)
	if err != nil {
		st.Problem = "not found in PATH"
		return st
	}
	st.Path = path

	if !hasConstraint {
		slog.Debug("dependency found", "name", d.Name, "path", path)
		return st
	}

	raw, err := r.host.Version(ctx, path)
	if err != nil {
		st.Problem = fmt.Sprintf("cannot determine version: %v", err)
		return st
	}
	st.Version = formula.CanonicalVersion(raw)
	switch {
	case st.Version == "":
		st.Problem = fmt.Sprintf("no version number in %q", firstLine(raw))
	case !constraint.Satisfied(st.Version):
		st.Problem = fmt.Sprintf("version %s does not satisfy %s", st.Version, d.Version)
	default:
		slog.Debug("dependency satisfied", "name", d.Name, "path", path, "version", st.Version, "constraint", constraint.String())
	}
	return st
}

// Names returns the names of the missing dependencies.
func (e *UnresolvedDependencyError) Names() []string {
	names := make([]string, len(e.Missing))
	for i, s := range e.Missing {
		names[i] = s.Dependency.Name
	}
	return names
}

// Error implements the error interface.
func (e *UnresolvedDependencyError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "dependencies not satisfied for formula '%s':", e.Formula)
	for _, s := range e.Missing {
		fmt.Fprintf(&sb, "\n  • %s - %s", s.Dependency, s.Problem)
	}
	return sb.String()
}

// Unwrap returns ErrUnresolvedDependency for errors.Is() compatibility.
func (e *UnresolvedDependencyError) Unwrap() error { return ErrUnresolvedDependency }

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
