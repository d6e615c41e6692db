// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{FormulaNotFoundId, false, "Formula not found"},
		{FormulaParseErrorId, false, "Failed to parse the formula"},
		{DependenciesNotSatisfiedId, false, "Dependencies not satisfied"},
		{SourceFetchFailedId, false, "Source fetch failed"},
		{BuildStepFailedId, false, "Build step failed"},
		{MissingArtifactId, false, "Artifact missing"},
		{ConcurrentInstallId, false, "Another install is running"},
		{TestStepFailedId, false, "Test step failed"},
		{NotInstalledId, false, "Formula not installed"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{ShellNotFoundId, false, "Shell not found"},
		{Id(9999), true, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			issue := Get(tt.id)

			if tt.wantNil {
				if issue != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}

			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if issue.Id() != tt.id {
				t.Errorf("Id() = %d, want %d", issue.Id(), tt.id)
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain '%s'", tt.id, tt.contains)
			}
		})
	}
}

func TestValues(t *testing.T) {
	issues := Values()

	if len(issues) != int(ShellNotFoundId) {
		t.Fatalf("Values() returned %d issues, want %d", len(issues), ShellNotFoundId)
	}
	for i, issue := range issues {
		if issue.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want ordering by id", i, issue.Id())
		}
	}
}

func TestIssue_LinksAreCloned(t *testing.T) {
	issue := &Issue{
		id:       Id(9999),
		docLinks: []HttpLink{"https://docs.example.com"},
		extLinks: []HttpLink{"https://external.example.com"},
	}

	links := issue.DocLinks()
	links[0] = "modified"
	if issue.DocLinks()[0] != "https://docs.example.com" {
		t.Error("DocLinks() should return a clone")
	}

	ext := issue.ExtLinks()
	ext[0] = "modified"
	if issue.ExtLinks()[0] != "https://external.example.com" {
		t.Error("ExtLinks() should return a clone")
	}
}

func TestIssue_Render(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	t.Run("catalog issue", func(t *testing.T) {
		rendered, err := Get(BuildStepFailedId).Render("")
		if err != nil {
			t.Fatalf("Render() returned error: %v", err)
		}
		if !strings.Contains(rendered, "--keep-workdir") {
			t.Error("Render() output should contain the suggestion")
		}
		if strings.Contains(rendered, "See also") {
			t.Error("Render() without links should not contain 'See also'")
		}
	})

	t.Run("with links", func(t *testing.T) {
		testIssue := &Issue{
			id:       Id(9999),
			mdMsg:    "# Test Issue\n\nThis is a test.",
			docLinks: []HttpLink{"https://docs.example.com"},
			extLinks: []HttpLink{"https://external.example.com"},
		}

		rendered, err := testIssue.Render("")
		if err != nil {
			t.Fatalf("Render() returned error: %v", err)
		}
		for _, want := range []string{"## See also", "- https://docs.example.com", "- https://external.example.com"} {
			if !strings.Contains(rendered, want) {
				t.Errorf("Render() output missing %q", want)
			}
		}
	})
}
