// SPDX-License-Identifier: MPL-2.0

package formula

import (
	"errors"
	"fmt"
	"maps"
	"path"
	"regexp"
	"slices"
)

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var (
	errMissingName    = errors.New("name is required")
	errMissingURL     = errors.New("url is required")
	errNoInstallSteps = errors.New("at least one install step is required")
	errNoArtifacts    = errors.New("at least one artifact step is required")
)

// Validate checks the formula and returns every problem found. An empty
// result means the formula can be planned and executed.
func (f *Formula) Validate() []error {
	var errs []error

	if f.Name == "" {
		errs = append(errs, errMissingName)
	} else if ok, nameErrs := f.Name.IsValid(); !ok {
		errs = append(errs, nameErrs...)
	}
	if f.URL == "" {
		errs = append(errs, errMissingURL)
	}
	if !f.Using.IsValid() {
		errs = append(errs, fmt.Errorf("using: unknown source kind %q (want git or local)", f.Using))
	}
	if f.Using == SourceLocal && f.Revision != "" {
		errs = append(errs, fmt.Errorf("revision %q cannot be pinned on a local source", f.Revision))
	}
	if f.Runtime != "" && !f.Runtime.IsValid() {
		errs = append(errs, fmt.Errorf("runtime: unknown runtime %q (want native or virtual)", f.Runtime))
	}
	if f.Stage != "" {
		if ok, stageErrs := f.Stage.IsValid(); !ok {
			errs = append(errs, prefixed("stage", stageErrs)...)
		}
	}

	errs = append(errs, f.validateDependencies()...)
	errs = append(errs, validateEnv("env", f.Env)...)
	errs = append(errs, f.validateSteps()...)

	if f.Test != nil && f.Test.ExpectOutput != "" {
		if _, err := regexp.Compile(f.Test.ExpectOutput); err != nil {
			errs = append(errs, fmt.Errorf("test.expect_output: %w", err))
		}
	}
	return errs
}

func (f *Formula) validateDependencies() []error {
	var errs []error
	seen := make(map[string]bool, len(f.DependsOn))
	for i, d := range f.DependsOn {
		field := fmt.Sprintf("depends_on[%d]", i)
		if d.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", field))
			continue
		}
		if seen[d.Name] {
			errs = append(errs, fmt.Errorf("%s: %q is declared more than once", field, d.Name))
		}
		seen[d.Name] = true
		if !d.Kind.IsValid() {
			errs = append(errs, fmt.Errorf("%s: unknown dependency kind %q (want build or runtime)", field, d.Kind))
		}
		if _, _, err := d.Constraint(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}
	return errs
}

func (f *Formula) validateSteps() []error {
	if len(f.Install) == 0 {
		return []error{errNoInstallSteps}
	}

	var errs []error
	sawArtifact := false
	destinations := make(map[string]int)
	for i, s := range f.Install {
		field := fmt.Sprintf("install[%d]", i)
		switch s.Kind() {
		case StepRun:
			if sawArtifact {
				errs = append(errs, fmt.Errorf("%s: run step %q follows a copy-artifact step; artifacts are copied after the build", field, s.Run))
			}
			if s.Dir != "" {
				if ok, dirErrs := s.Dir.IsValid(); !ok {
					errs = append(errs, prefixed(field+".dir", dirErrs)...)
				}
			}
		case StepSetEnv:
			errs = append(errs, validateEnv(field+".setenv", s.SetEnv)...)
		case StepCopyArtifact:
			sawArtifact = true
			if ok, pathErrs := s.Artifact.IsValid(); !ok {
				errs = append(errs, prefixed(field+".artifact", pathErrs)...)
			}
			dest := s.InstallName()
			if ok, asErrs := dest.IsValid(); !ok {
				errs = append(errs, prefixed(field+".as", asErrs)...)
				continue
			}
			if InStateDir(dest) {
				errs = append(errs, fmt.Errorf("%s.as: %q is inside %s, which holds install receipts", field, dest, StateDir))
			}
			key := path.Clean(string(dest))
			if first, dup := destinations[key]; dup {
				errs = append(errs, fmt.Errorf("%s.as: %q is already installed by install[%d]", field, dest, first))
			} else {
				destinations[key] = i
			}
		default:
			errs = append(errs, fmt.Errorf("%s: a step declares exactly one of run, setenv or artifact", field))
		}
	}
	if !sawArtifact {
		errs = append(errs, errNoArtifacts)
	}
	return errs
}

func validateEnv(field string, env map[string]string) []error {
	var errs []error
	for _, k := range slices.Sorted(maps.Keys(env)) {
		if !envNamePattern.MatchString(k) {
			errs = append(errs, fmt.Errorf("%s: invalid variable name %q", field, k))
		}
	}
	return errs
}

func prefixed(field string, errs []error) []error {
	out := make([]error, len(errs))
	for i, err := range errs {
		out[i] = fmt.Errorf("%s: %w", field, err)
	}
	return out
}
