// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"os"

	"github.com/cellarhq/cellar/pkg/formula"
)

type (
	// EnvBuilder builds the scoped environment of a build run. Precedence,
	// lowest first:
	//
	//  1. Host environment
	//  2. BUILDPATH (the work dir) and CELLAR_FORMULA
	//  3. The formula's declared env, expanded against 1-2
	EnvBuilder interface {
		Build(f *formula.Formula, workDir string) (*Environment, error)
	}

	// DefaultEnvBuilder implements the standard precedence.
	DefaultEnvBuilder struct {
		// Environ returns the host environment as "KEY=VALUE" strings.
		// When nil, os.Environ() is used.
		Environ func() []string
	}

	// MockEnvBuilder is a test helper that returns a fixed environment.
	MockEnvBuilder struct {
		// Env is the environment map to return from Build.
		Env map[string]string
		// Err is the error to return from Build (if non-nil).
		Err error
	}
)

// NewDefaultEnvBuilder creates a new DefaultEnvBuilder.
func NewDefaultEnvBuilder() *DefaultEnvBuilder {
	return &DefaultEnvBuilder{}
}

// Build constructs the environment for f running in workDir.
func (b *DefaultEnvBuilder) Build(f *formula.Formula, workDir string) (*Environment, error) {
	environ := b.Environ
	if environ == nil {
		environ = os.Environ
	}

	env := SliceToEnv(environ())
	env[EnvBuildPath] = workDir
	env[EnvFormula] = f.Name.String()

	return NewEnvironment(env, workDir).With(f.Env)
}

// Build returns the mock environment or error.
func (m *MockEnvBuilder) Build(_ *formula.Formula, workDir string) (*Environment, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return NewEnvironment(m.Env, workDir), nil
}
