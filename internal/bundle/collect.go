// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/chunklink/chunklink/pkg/chunkgraph"
)

// filenamePlaceholder matches [hash], [chunkhash], [id] and [name], with an
// optional :N length suffix.
var filenamePlaceholder = regexp.MustCompile(`\[(hash|chunkhash|id|name)(?::(\d+))?\]`)

// Collect returns the ordered source fragments of chunk c: first, when c has
// lazily loaded descendants, one fragment registering each of them with the
// loader runtime; then one fragment per module in declared order, rendered by
// the renderer registered for the module's kind.
func Collect(g *chunkgraph.Graph, c *chunkgraph.Chunk, ids *Allocator, renderers Renderers, tmpl RewriteTemplates) []Fragment {
	fragments := make([]Fragment, 0, len(c.Modules)+1)

	if async := g.AsyncChunks(c); len(async) > 0 {
		template := g.Output.ChunkFilenameTemplate()
		var b strings.Builder
		for _, ac := range async {
			fmt.Fprintf(&b, "__chunklink.r(%d, %s);\n", ac.ID, ChunkPathExpression(template, ac))
		}
		fragments = append(fragments, Fragment{
			Path: fmt.Sprintf("__chunklink_register_%d.js", ids.Next()),
			Text: b.String(),
		})
	}

	for i := range c.Modules {
		m := &c.Modules[i]
		fragments = append(fragments, Fragment{
			Path:      m.SourcePath(),
			Text:      renderers.For(m.EffectiveKind()).Render(m, tmpl),
			SourceMap: m.SourceMap,
		})
	}
	return fragments
}

// ChunkPathExpression renders a filename template for chunk c as a
// JavaScript expression evaluated on the client when the chunk is loaded.
// Chunk-specific placeholders become string literals; [hash] refers to the
// compilation hash the runtime holds; the public path is prepended.
func ChunkPathExpression(template string, c *chunkgraph.Chunk) string {
	parts := []string{"__chunklink.p"}
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			parts = append(parts, jsString(literal.String()))
			literal.Reset()
		}
	}

	last := 0
	for _, loc := range filenamePlaceholder.FindAllStringSubmatchIndex(template, -1) {
		literal.WriteString(template[last:loc[0]])
		last = loc[1]

		name := template[loc[2]:loc[3]]
		length := -1
		if loc[4] >= 0 {
			length, _ = strconv.Atoi(template[loc[4]:loc[5]])
		}

		switch name {
		case "hash":
			flush()
			if length >= 0 {
				parts = append(parts, fmt.Sprintf("__chunklink.h.slice(0, %d)", length))
			} else {
				parts = append(parts, "__chunklink.h")
			}
		case "chunkhash":
			literal.WriteString(truncate(c.Hash, length))
		case "id":
			literal.WriteString(c.ID.String())
		case "name":
			literal.WriteString(truncate(c.DisplayName(), length))
		}
	}
	literal.WriteString(template[last:])
	flush()

	return strings.Join(parts, " + ")
}

func truncate(s string, n int) string {
	if n < 0 || n >= len(s) {
		return s
	}
	return s[:n]
}
