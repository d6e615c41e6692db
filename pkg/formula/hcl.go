// SPDX-License-Identifier: MPL-2.0

package formula

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/cellarhq/cellar/pkg/types"
)

// HCL step block labels.
const (
	hclStepRun      = "run"
	hclStepSetEnv   = "setenv"
	hclStepArtifact = "artifact"
)

type (
	// hclFormulaFile is the top-level structure of an HCL formula. Remain
	// bodies swallow attributes and blocks this version does not know.
	hclFormulaFile struct {
		Name      string            `hcl:"name,optional"`
		Desc      string            `hcl:"desc,optional"`
		Homepage  string            `hcl:"homepage,optional"`
		URL       string            `hcl:"url,optional"`
		Using     string            `hcl:"using,optional"`
		Revision  string            `hcl:"revision,optional"`
		Version   string            `hcl:"version,optional"`
		Head      string            `hcl:"head,optional"`
		Stage     string            `hcl:"stage,optional"`
		Runtime   string            `hcl:"runtime,optional"`
		Env       map[string]string `hcl:"env,optional"`
		DependsOn []*hclDependency  `hcl:"depends_on,block"`
		Steps     []*hclStep        `hcl:"step,block"`
		Test      *hclTest          `hcl:"test,block"`
		Remain    hcl.Body          `hcl:",remain"`
	}

	hclDependency struct {
		Name    string   `hcl:"name,label"`
		Kind    string   `hcl:"kind,optional"`
		Version string   `hcl:"version,optional"`
		Remain  hcl.Body `hcl:",remain"`
	}

	// hclStep is `step "run" { command = "make build" }`,
	// `step "setenv" { vars = { ... } }` or
	// `step "artifact" { path = "bin/x" as = "x" }`.
	hclStep struct {
		Type    string            `hcl:"type,label"`
		Command string            `hcl:"command,optional"`
		Dir     string            `hcl:"dir,optional"`
		Vars    map[string]string `hcl:"vars,optional"`
		Path    string            `hcl:"path,optional"`
		As      string            `hcl:"as,optional"`
		Remain  hcl.Body          `hcl:",remain"`
	}

	hclTest struct {
		Run          string   `hcl:"run"`
		ExpectOutput string   `hcl:"expect_output,optional"`
		Remain       hcl.Body `hcl:",remain"`
	}
)

// ParseHCL decodes an HCL formula. Defaults are applied but the result is
// not validated. Template sequences are not evaluated, so environment
// references are written "$BUILDPATH" rather than "${BUILDPATH}".
func ParseHCL(data []byte, filename string) (*Formula, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL formula: %w", diags)
	}

	var parsed hclFormulaFile
	if diags = gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL formula: %w", diags)
	}

	f := &Formula{
		Name:     types.FormulaName(parsed.Name),
		Desc:     parsed.Desc,
		Homepage: parsed.Homepage,
		URL:      parsed.URL,
		Using:    SourceKind(parsed.Using),
		Revision: parsed.Revision,
		Version:  parsed.Version,
		Head:     parsed.Head,
		Stage:    types.RelativePath(parsed.Stage),
		Runtime:  RuntimeMode(parsed.Runtime),
		Env:      parsed.Env,
	}
	for _, d := range parsed.DependsOn {
		f.DependsOn = append(f.DependsOn, Dependency{Name: d.Name, Kind: DependencyKind(d.Kind), Version: d.Version})
	}
	for i, s := range parsed.Steps {
		step, err := s.toStep()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		f.Install = append(f.Install, step)
	}
	if parsed.Test != nil {
		f.Test = &TestStep{Run: parsed.Test.Run, ExpectOutput: parsed.Test.ExpectOutput}
	}
	return f, nil
}

func (s *hclStep) toStep() (Step, error) {
	switch s.Type {
	case hclStepRun:
		return Step{Run: s.Command, Dir: types.RelativePath(s.Dir)}, nil
	case hclStepSetEnv:
		return Step{SetEnv: s.Vars}, nil
	case hclStepArtifact:
		return Step{Artifact: types.RelativePath(s.Path), As: types.RelativePath(s.As)}, nil
	default:
		return Step{}, fmt.Errorf("unknown step type %q (want %s, %s or %s)", s.Type, hclStepRun, hclStepSetEnv, hclStepArtifact)
	}
}
