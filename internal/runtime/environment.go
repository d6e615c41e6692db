// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

const (
	// EnvBuildPath names the synthetic build root, the run's work dir.
	EnvBuildPath = "BUILDPATH"
	// EnvFormula names the formula being built.
	EnvFormula = "CELLAR_FORMULA"
)

// Environment is the scoped variable set a command runs with, plus the
// directory it runs in. Values are never written to the process environment.
type Environment struct {
	vars    map[string]string
	WorkDir string
}

// NewEnvironment returns an Environment holding a copy of vars.
func NewEnvironment(vars map[string]string, workDir string) *Environment {
	c := maps.Clone(vars)
	if c == nil {
		c = make(map[string]string)
	}
	return &Environment{vars: c, WorkDir: workDir}
}

// Get returns the value of name and whether it is set.
func (e *Environment) Get(name string) (string, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Vars returns a copy of the variables.
func (e *Environment) Vars() map[string]string {
	return maps.Clone(e.vars)
}

// Slice returns the variables as sorted "KEY=VALUE" strings.
func (e *Environment) Slice() []string {
	return EnvToSlice(e.vars)
}

// Expand shell-expands s against the environment. Parameter expansion
// ("$BUILDPATH", "${GOPATH:-x}") is supported; command substitution is not.
func (e *Environment) Expand(s string) (string, error) {
	word, err := syntax.NewParser().Document(strings.NewReader(s))
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", s, err)
	}
	cfg := &expand.Config{Env: expand.ListEnviron(e.Slice()...)}
	out, err := expand.Document(cfg, word)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", s, err)
	}
	return out, nil
}

// With returns a new Environment with vars added. Values are expanded in
// sorted key order; each sees the variables already present, not its
// siblings.
func (e *Environment) With(vars map[string]string) (*Environment, error) {
	next := NewEnvironment(e.vars, e.WorkDir)
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		v, err := e.Expand(vars[k])
		if err != nil {
			return nil, fmt.Errorf("env %s: %w", k, err)
		}
		next.vars[k] = v
	}
	return next, nil
}

// WithDir returns a copy of the Environment running in dir.
func (e *Environment) WithDir(dir string) *Environment {
	return NewEnvironment(e.vars, dir)
}

// EnvToSlice converts a map of environment variables to a sorted slice.
func EnvToSlice(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		result = append(result, k+"="+env[k])
	}
	return result
}

// SliceToEnv parses "KEY=VALUE" strings. Malformed entries are skipped and
// later duplicates win.
func SliceToEnv(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}
