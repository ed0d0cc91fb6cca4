// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"encoding/json"
	"log/slog"
	"slices"
	"strings"

	"github.com/chunklink/chunklink/internal/compiler"
	"github.com/chunklink/chunklink/pkg/chunkgraph"
)

// Placeholders understood by RewriteTemplates.
const (
	// PlaceholderID is the JSON-quoted module id.
	PlaceholderID = "{id}"
	// PlaceholderBody is the rewritten module body.
	PlaceholderBody = "{body}"
	// PlaceholderTarget is the JSON-quoted id of the dependency target.
	PlaceholderTarget = "{target}"
	// PlaceholderLoad is an expression yielding a promise that resolves
	// once every chunk of a dynamic dependency has loaded.
	PlaceholderLoad = "{load}"
)

type (
	// Fragment is one unit of source text submitted to the compiler.
	Fragment struct {
		Path      string
		Text      string
		SourceMap string
	}

	// RewriteTemplates describe how namespace modules are rewritten.
	RewriteTemplates struct {
		// Module registers a module body on the shared namespace. Empty leaves
		// the body unwrapped.
		Module string
		// Dependencies replaces a dependency's byte range, by kind. A kind
		// with no entry leaves its ranges untouched; an empty template
		// deletes them.
		Dependencies map[chunkgraph.DependencyKind]string
	}

	// ModuleRenderer turns one module into its fragment text.
	ModuleRenderer interface {
		Render(m *chunkgraph.Module, tmpl RewriteTemplates) string
	}

	// DefaultRenderer emits module bodies unchanged.
	DefaultRenderer struct{}

	// NamespaceRenderer registers the module on the shared namespace and
	// rewrites its dependency references to namespace lookups.
	NamespaceRenderer struct{}

	// Renderers selects a ModuleRenderer by module kind.
	Renderers map[chunkgraph.ModuleKind]ModuleRenderer
)

// Source converts the fragment to the compiler's wire form.
func (f Fragment) Source() compiler.Source {
	return compiler.Source{Path: f.Path, Src: f.Text, SourceMap: f.SourceMap}
}

// DefaultTemplates returns the templates matching the synthesized runtime.
func DefaultTemplates() RewriteTemplates {
	return RewriteTemplates{
		Module: "__chunklink.m[{id}] = function(module, exports, __chunklink_require){\n{body}\n};",
		Dependencies: map[chunkgraph.DependencyKind]string{
			chunkgraph.DependencyStatic:      "__chunklink_require({target})",
			chunkgraph.DependencyDynamic:     "{load}.then(function(){ return __chunklink_require({target}); })",
			chunkgraph.DependencyDeclaration: "",
		},
	}
}

// DefaultRenderers returns a renderer for every module kind.
func DefaultRenderers() Renderers {
	return Renderers{
		chunkgraph.ModuleKindDefault:   DefaultRenderer{},
		chunkgraph.ModuleKindNamespace: NamespaceRenderer{},
	}
}

// For returns the renderer for kind, falling back to DefaultRenderer.
func (r Renderers) For(kind chunkgraph.ModuleKind) ModuleRenderer {
	if kind == "" {
		kind = chunkgraph.ModuleKindDefault
	}
	if mr, ok := r[kind]; ok && mr != nil {
		return mr
	}
	return DefaultRenderer{}
}

// Render returns the module body.
func (DefaultRenderer) Render(m *chunkgraph.Module, _ RewriteTemplates) string {
	return m.Source
}

// Render rewrites every dependency range it has a template for, from the end
// of the body backwards so earlier offsets stay valid, then wraps the body in
// the module registration template. Ranges outside the body, or overlapping
// a range already rewritten, are left alone.
func (NamespaceRenderer) Render(m *chunkgraph.Module, tmpl RewriteTemplates) string {
	body := m.Source

	deps := slices.Clone(m.Dependencies)
	slices.SortStableFunc(deps, func(a, b chunkgraph.Dependency) int { return b.Start - a.Start })

	limit := len(body)
	for _, dep := range deps {
		if dep.Start < 0 || dep.End < dep.Start || dep.End > limit {
			slog.Debug("skipping dependency range", "module", m.ID, "start", dep.Start, "end", dep.End)
			continue
		}
		t, ok := tmpl.Dependencies[dep.Kind]
		if !ok {
			continue
		}
		if dep.Target == "" && dep.Kind != chunkgraph.DependencyDeclaration {
			continue
		}
		r := strings.NewReplacer(
			PlaceholderTarget, jsString(string(dep.Target)),
			PlaceholderLoad, loadExpression(dep.Chunks),
		)
		body = body[:dep.Start] + r.Replace(t) + body[dep.End:]
		limit = dep.Start
	}

	if tmpl.Module == "" {
		return body
	}
	return strings.NewReplacer(
		PlaceholderID, jsString(string(m.ID)),
		PlaceholderBody, body,
	).Replace(tmpl.Module)
}

// loadExpression builds the promise that resolves once chunks have loaded.
func loadExpression(chunks []chunkgraph.ChunkID) string {
	switch len(chunks) {
	case 0:
		return "Promise.resolve()"
	case 1:
		return "__chunklink.l(" + chunks[0].String() + ")"
	default:
		calls := make([]string, 0, len(chunks))
		for _, id := range chunks {
			calls = append(calls, "__chunklink.l("+id.String()+")")
		}
		return "Promise.all([" + strings.Join(calls, ", ") + "])"
	}
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
