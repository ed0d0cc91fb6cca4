// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// EmbeddedBackend compiles in-process with esbuild's transform API, one
// transform per compilation unit. The unit's wrapper is applied before the
// transform so the emitted source map covers the wrapped output.
type EmbeddedBackend struct{}

// NewEmbeddedBackend creates the embedded backend.
func NewEmbeddedBackend() *EmbeddedBackend { return &EmbeddedBackend{} }

// Name returns "embedded".
func (*EmbeddedBackend) Name() string { return string(KindEmbedded) }

// Available is always true.
func (*EmbeddedBackend) Available() bool { return true }

type fragmentSpan struct {
	path  string
	start int
	lines int
}

// Compile transforms every unit of req.
func (b *EmbeddedBackend) Compile(ctx context.Context, req *Request) (*Result, error) {
	units, err := ParseUnits(req.Units)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		units = []Unit{{Name: "main", Count: len(req.Sources)}}
	}

	total := 0
	for _, u := range units {
		total += u.Count
	}
	if total != len(req.Sources) {
		return nil, fmt.Errorf("units declare %d sources, request carries %d", total, len(req.Sources))
	}

	opts := transformOptions(req.Flags)
	wrappers := req.Flags.Wrappers()
	prefix := req.Flags.Get(FlagChunkOutputPathPrefix)

	res := &Result{}
	next := 0
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sources := req.Sources[next : next+u.Count]
		next += u.Count

		code, spans := assemble(wrappers[u.Name], sources)
		unitOpts := opts
		unitOpts.Sourcefile = u.Name + ".js"

		out := api.Transform(code, unitOpts)
		for _, m := range out.Errors {
			res.Diagnostics = append(res.Diagnostics, messageDiagnostic(m, LevelError, spans))
		}
		for _, m := range out.Warnings {
			res.Diagnostics = append(res.Diagnostics, messageDiagnostic(m, LevelWarning, spans))
		}
		if len(out.Errors) > 0 {
			continue
		}
		res.Files = append(res.Files, OutputFile{
			Path:      prefix + u.Name + ".js",
			Src:       string(out.Code),
			SourceMap: string(out.Map),
		})
	}
	return res, nil
}

func assemble(wrapper string, sources []Source) (string, []fragmentSpan) {
	before, after, ok := strings.Cut(wrapper, "%s")
	if !ok {
		before, after = "", ""
	}

	var b strings.Builder
	b.WriteString(before)
	line := strings.Count(before, "\n")
	spans := make([]fragmentSpan, 0, len(sources))
	for i, s := range sources {
		if i > 0 {
			b.WriteByte('\n')
			line++
		}
		n := strings.Count(s.Src, "\n") + 1
		spans = append(spans, fragmentSpan{path: s.Path, start: line, lines: n})
		b.WriteString(s.Src)
		line += n - 1
	}
	b.WriteString(after)
	return b.String(), spans
}

func transformOptions(flags Flags) api.TransformOptions {
	opts := api.TransformOptions{
		Loader:    api.LoaderJS,
		Sourcemap: api.SourceMapExternal,
		Target:    languageOut(flags.Get(FlagLanguageOut)),
	}
	switch strings.ToUpper(flags.Get(FlagCompilationLevel)) {
	case "WHITESPACE_ONLY", "WHITESPACE":
		opts.MinifyWhitespace = true
	case "ADVANCED", "ADVANCED_OPTIMIZATIONS":
		opts.MinifyWhitespace = true
		opts.MinifySyntax = true
		opts.MinifyIdentifiers = true
	case "BUNDLE":
	default:
		opts.MinifyWhitespace = true
		opts.MinifySyntax = true
	}
	return opts
}

func languageOut(v string) api.Target {
	switch strings.ToUpper(v) {
	case "ECMASCRIPT3", "ECMASCRIPT5", "ECMASCRIPT5_STRICT", "ES5":
		return api.ES5
	case "ECMASCRIPT_2015", "ECMASCRIPT6", "ES6", "ES2015":
		return api.ES2015
	case "ECMASCRIPT_2016", "ES2016":
		return api.ES2016
	case "ECMASCRIPT_2017", "ES2017":
		return api.ES2017
	case "ECMASCRIPT_2018", "ES2018":
		return api.ES2018
	case "ECMASCRIPT_2019", "ES2019":
		return api.ES2019
	case "ECMASCRIPT_2020", "ES2020":
		return api.ES2020
	case "ECMASCRIPT_2021", "ES2021":
		return api.ES2021
	case "ECMASCRIPT_2022", "ES2022":
		return api.ES2022
	default:
		return api.ESNext
	}
}

// messageDiagnostic maps an esbuild message back onto the fragment that
// contains the reported line.
func messageDiagnostic(m api.Message, level Level, spans []fragmentSpan) Diagnostic {
	d := Diagnostic{Level: level, Description: m.Text}
	if m.Location == nil {
		return d
	}
	d.Source = m.Location.File
	d.Line = m.Location.Line
	line := m.Location.Line - 1
	for _, s := range spans {
		if line >= s.start && line < s.start+s.lines {
			d.Source = s.path
			d.Line = line - s.start + 1
			break
		}
	}
	return d
}
