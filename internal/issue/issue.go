// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ManifestNotFoundId Id = iota + 1
	ManifestParseErrorId
	InvalidChunkGraphId
	UnsatisfiableGraphId
	DuplicateSourcesId
	BackendUnavailableId
	CompilerLaunchFailedId
	CompilationFailedId
	OutputRemapFailedId
	ConfigLoadFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

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

// Render renders the issue's Markdown with glamour. stylePath is a glamour
// style name ("dark", "light", "auto") or a path to a style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, links := range [][]HttpLink{i.docLinks, i.extLinks} {
			for _, link := range links {
				md.WriteString("- <" + string(link) + ">\n")
			}
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# Chunk graph manifest not found!

chunklink reads the chunk graph your bundler emitted as a JSON manifest.

## Things you can try:
- Check the path passed to ` + "`chunklink build`" + `
- Make sure the bundler plugin that writes the manifest ran first
- List the compilation units of a manifest without compiling:
~~~
$ chunklink units path/to/chunks.json
~~~`,
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse the chunk graph manifest!

The manifest is not valid JSON or does not match the expected shape.

## Common issues:
- ` + "`kind`" + ` is not one of ` + "`default`" + ` or ` + "`namespace`" + `
- A dependency kind is not ` + "`static`" + `, ` + "`dynamic`" + ` or ` + "`declaration`" + `
- A module sets both ` + "`source`" + ` and ` + "`file`" + `
- Unknown field names

## Minimal manifest:
~~~json
{
  "chunks": [
    {"id": 0, "name": "main", "entry": true, "files": ["main.js"], "groups": ["main"],
     "modules": [{"id": "./src/index.js", "source": "console.log('hi');"}]}
  ],
  "groups": [{"id": "main", "chunks": [0]}]
}
~~~`,
	}

	invalidChunkGraphIssue = &Issue{
		id: InvalidChunkGraphId,
		mdMsg: `
# Invalid chunk graph!

The manifest parsed, but its chunks and groups do not reference each other
consistently.

## Things you can try:
- Make sure every group a chunk lists is declared under ` + "`groups`" + `
- Make sure every chunk id a group lists is declared under ` + "`chunks`" + `
- Check that no two chunks declare the same output file`,
	}

	unsatisfiableGraphIssue = &Issue{
		id: UnsatisfiableGraphId,
		mdMsg: `
# Compilation units cannot be ordered!

Every compilation unit must come after the units it depends on. Either a unit
names a parent that does not exist, or the parent relations form a cycle.

## Things you can try:
- Run with ` + "`--verbose`" + ` to print the unit definitions
- Check the ` + "`parents`" + ` and ` + "`children`" + ` of the chunk groups named above
- Inspect the units without compiling:
~~~
$ chunklink units path/to/chunks.json
~~~`,
	}

	duplicateSourcesIssue = &Issue{
		id: DuplicateSourcesId,
		mdMsg: `
# A source appears in more than one chunk!

Each source file may belong to exactly one compilation unit. The compiler
refuses inputs that repeat a path.

## Things you can try:
- Move shared modules into a common chunk with your bundler's split-chunks settings
- Make sure each module has a unique ` + "`path`" + `, ` + "`file`" + ` or ` + "`id`" + ``,
	}

	backendUnavailableIssue = &Issue{
		id: BackendUnavailableId,
		mdMsg: `
# No compiler backend available!

chunklink tries the backends listed in ` + "`compiler.platforms`" + ` in order.

## Backends:
- **native**: the ` + "`closure-compiler`" + ` executable on your PATH
- **managed**: ` + "`java -jar <compiler.managed.jar>`" + `
- **embedded**: the built-in compiler, always available

## Things you can try:
- Install the native compiler, or set ` + "`compiler.managed.jar`" + `
- Force the built-in compiler:
~~~
$ chunklink build --backend embedded chunks.json
~~~`,
	}

	compilerLaunchFailedIssue = &Issue{
		id: CompilerLaunchFailedId,
		mdMsg: `
# Failed to start the compiler!

The compiler process could not be launched.

## Things you can try:
- Check ` + "`compiler.native.command`" + ` or ` + "`compiler.managed.java`" + ` in your configuration
- Run ` + "`chunklink backends`" + ` to see which backends are usable`,
	}

	compilationFailedIssue = &Issue{
		id: CompilationFailedId,
		mdMsg: `
# Compilation failed!

The compiler reported errors. Each error above names the generated file and,
when known, the original source location.

## Things you can try:
- Fix the reported source errors and rebuild
- Lower the optimization level:
~~~cue
compiler: flags: compilation_level: "SIMPLE"
~~~`,
	}

	outputRemapFailedIssue = &Issue{
		id: OutputRemapFailedId,
		mdMsg: `
# Failed to map compiler output back to chunks!

A compiled file could not be matched to a chunk, or its source map was invalid.

## Things you can try:
- Make sure chunk output filenames are unique
- Rebuild with ` + "`--verbose`" + ` to see which files were produced`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the chunklink configuration file.

## Configuration file locations:
- Linux: ~/.config/chunklink/config.cue
- macOS: ~/Library/Application Support/chunklink/config.cue
- Windows: %APPDATA%\chunklink\config.cue
- Project: ./chunklink.cue

## Things you can try:
- Create a default configuration:
~~~
$ chunklink config init
~~~

- Check the configuration syntax

## Example configuration:
~~~cue
compiler: {
  platforms: ["native", "embedded"]
  flags: compilation_level: "ADVANCED"
}

ui: {
  color_scheme: "auto"
  verbose: false
}
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

You don't have permission to perform this operation.

## Things you can try:
- Check the permissions of the output directory
- Choose another output directory with ` + "`--out`" + ``,
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():     manifestNotFoundIssue,
		manifestParseErrorIssue.Id():   manifestParseErrorIssue,
		invalidChunkGraphIssue.Id():    invalidChunkGraphIssue,
		unsatisfiableGraphIssue.Id():   unsatisfiableGraphIssue,
		duplicateSourcesIssue.Id():     duplicateSourcesIssue,
		backendUnavailableIssue.Id():   backendUnavailableIssue,
		compilerLaunchFailedIssue.Id(): compilerLaunchFailedIssue,
		compilationFailedIssue.Id():    compilationFailedIssue,
		outputRemapFailedIssue.Id():    outputRemapFailedIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		permissionDeniedIssue.Id():     permissionDeniedIssue,
	}
)

// Values returns every catalogued issue ordered by id.
func Values() []*Issue {
	values := make([]*Issue, 0, len(issues))
	for i := range maps.Values(issues) {
		values = append(values, i)
	}
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
