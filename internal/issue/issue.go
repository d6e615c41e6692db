// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	FormulaNotFoundId Id = iota + 1
	FormulaParseErrorId
	DependenciesNotSatisfiedId
	SourceFetchFailedId
	BuildStepFailedId
	MissingArtifactId
	ConcurrentInstallId
	TestStepFailedId
	NotInstalledId
	ConfigLoadFailedId
	ShellNotFoundId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a markdown explanation of a failure class shown by the CLI.
	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue with glamour using the given style ("dark",
// "light", "auto" or a style file path).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(slices.Clone(i.docLinks), i.extLinks...) {
			md.WriteString("- " + string(link) + "\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	formulaNotFoundIssue = &Issue{
		id: FormulaNotFoundId,
		mdMsg: `
# Formula not found!

A formula is referenced by a path to a recipe file or by name.

## Search locations for names (in order):
1. ./Formula/<name>.cue and ./Formula/<name>.hcl
2. The directories listed in ` + "`formula_paths`" + ` of your config file

## Things you can try:
- Pass the recipe file directly:
~~~
$ cellar install ./Formula/example1.cue
~~~
- Check the configured directories:
~~~
$ cellar config show
~~~`,
	}

	formulaParseErrorIssue = &Issue{
		id: FormulaParseErrorId,
		mdMsg: `
# Failed to parse the formula!

The recipe is not valid CUE or HCL, or it is missing required fields.

## Every formula needs:
- ` + "`name`" + ` and a source ` + "`url`" + `
- at least one install step and one artifact, e.g.
~~~cue
install: [
	{run: "make build"},
	{artifact: "bin/example1"},
]
~~~

## Things you can try:
- Check the formula without side effects:
~~~
$ cellar validate <formula>
~~~`,
	}

	dependenciesNotSatisfiedIssue = &Issue{
		id: DependenciesNotSatisfiedId,
		mdMsg: `
# Dependencies not satisfied!

Build dependencies must be executables on your PATH, at a version that
satisfies the formula's constraint. Nothing was built.

## Things you can try:
- See which tools are missing:
~~~
$ cellar deps <formula>
~~~
- Install the missing tools with your system package manager and retry.`,
	}

	sourceFetchFailedIssue = &Issue{
		id: SourceFetchFailedId,
		mdMsg: `
# Source fetch failed!

The formula source could not be cloned or copied.

## Things you can try:
- Check the URL and that the pinned revision exists upstream.
- For private repositories set ` + "`GITHUB_TOKEN`" + `, ` + "`GITLAB_TOKEN`" + ` or ` + "`GIT_TOKEN`" + `,
  or make an SSH key available in ~/.ssh.
- For local sources, relative paths resolve against the formula file.`,
	}

	buildStepFailedIssue = &Issue{
		id: BuildStepFailedId,
		mdMsg: `
# Build step failed!

A build command exited with a non-zero status. Later steps did not run and
nothing was installed.

## Things you can try:
- Re-run with ` + "`--verbose`" + ` to stream the build output.
- Keep the work dir to inspect it:
~~~
$ cellar install --keep-workdir <formula>
~~~
- Raise ` + "`--timeout`" + ` when the build was cut off.`,
	}

	missingArtifactIssue = &Issue{
		id: MissingArtifactId,
		mdMsg: `
# Artifact missing!

The build succeeded but did not produce every file the formula declares.
The prefix was left untouched.

## Things you can try:
- Check the ` + "`artifact`" + ` paths; they are relative to the staged source.
- Inspect the build tree with ` + "`--keep-workdir`" + `.`,
	}

	concurrentInstallIssue = &Issue{
		id: ConcurrentInstallId,
		mdMsg: `
# Another install is running!

Installs of one formula into one prefix are serialized. Wait for the other
run to finish and retry.`,
	}

	testStepFailedIssue = &Issue{
		id: TestStepFailedId,
		mdMsg: `
# Test step failed!

The formula's test did not pass against the installed files. The installed
files were kept.

## Things you can try:
- Run the test again with output:
~~~
$ cellar test --verbose <formula>
~~~`,
	}

	notInstalledIssue = &Issue{
		id: NotInstalledId,
		mdMsg: `
# Formula not installed!

No install receipt exists for this formula in the prefix.

## Things you can try:
~~~
$ cellar list
$ cellar install <formula>
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Print the effective configuration:
~~~
$ cellar config show
~~~
- Regenerate a default file:
~~~
$ cellar config init
~~~`,
	}

	shellNotFoundIssue = &Issue{
		id: ShellNotFoundId,
		mdMsg: `
# Shell not found!

The native runtime runs build commands with ` + "`sh`" + ` or ` + "`bash`" + ` from PATH.

## Things you can try:
- Install a POSIX shell, or
- set ` + "`runtime: \"virtual\"`" + ` in the formula to use the embedded shell.`,
	}

	issues = map[Id]*Issue{
		formulaNotFoundIssue.Id():          formulaNotFoundIssue,
		formulaParseErrorIssue.Id():        formulaParseErrorIssue,
		dependenciesNotSatisfiedIssue.Id(): dependenciesNotSatisfiedIssue,
		sourceFetchFailedIssue.Id():        sourceFetchFailedIssue,
		buildStepFailedIssue.Id():          buildStepFailedIssue,
		missingArtifactIssue.Id():          missingArtifactIssue,
		concurrentInstallIssue.Id():        concurrentInstallIssue,
		testStepFailedIssue.Id():           testStepFailedIssue,
		notInstalledIssue.Id():             notInstalledIssue,
		configLoadFailedIssue.Id():         configLoadFailedIssue,
		shellNotFoundIssue.Id():            shellNotFoundIssue,
	}
)

// Values returns every issue ordered by id.
func Values() []*Issue {
	out := maps.Values(issues)
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id - b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
