// SPDX-License-Identifier: MPL-2.0

// Package remap attaches compiler output files to the chunks they were
// compiled from.
//
// Outputs are correlated by unit name through the table built during
// linearization. Outputs that do not correlate fall back to a best-effort
// filename heuristic.
package remap

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/chunklink/chunklink/internal/compiler"
	"github.com/chunklink/chunklink/pkg/chunkgraph"
)

// ErrSourceMap is the sentinel error wrapped by SourceMapError.
var ErrSourceMap = errors.New("invalid source map")

// syntheticUnitFile matches the counter-based filenames some compilers give
// units that have no natural filename.
var syntheticUnitFile = regexp.MustCompile(`chunk-(\d+)\.js$`)

type (
	// Table correlates compiler outputs with chunks.
	Table struct {
		// Root is the name of the synthetic root unit.
		Root string
		// Units maps unit names to chunks.
		Units map[string]chunkgraph.ChunkID
		// Prefix is the output path prefix the compiler puts before unit names.
		Prefix string
	}

	// Asset is one finished chunk file.
	Asset struct {
		Name      string
		Source    string
		SourceMap string
		Chunk     chunkgraph.ChunkID
	}

	// SourceMapError reports an output whose source map is not valid JSON.
	SourceMapError struct {
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *SourceMapError) Error() string {
	return fmt.Sprintf("invalid source map for %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrSourceMap and the decoding error.
func (e *SourceMapError) Unwrap() []error { return []error{ErrSourceMap, e.Err} }

// Remap turns compiler outputs into chunk assets. Entry chunks get the root
// unit's compiled body prepended. The root output itself, and outputs that
// match no chunk with a JavaScript file, produce no asset.
func Remap(files []compiler.OutputFile, g *chunkgraph.Graph, table Table) ([]Asset, error) {
	preamble := ""
	for _, f := range files {
		if unitName(f.Path, table.Prefix) == table.Root {
			preamble = rootPreamble(f.Src)
			break
		}
	}

	assets := make([]Asset, 0, len(files))
	claimed := make(map[chunkgraph.ChunkID]bool)
	for _, f := range files {
		name := unitName(f.Path, table.Prefix)
		if name == table.Root {
			continue
		}

		c := correlate(name, g, table)
		if c == nil {
			c = matchByFilename(f.Path, g)
		}
		if c == nil {
			slog.Debug("compiler output matches no chunk", "path", f.Path)
			continue
		}
		assetName, ok := c.JSFile()
		if !ok {
			slog.Debug("chunk has no javascript file", "path", f.Path, "chunk", c.ID)
			continue
		}
		if claimed[c.ID] {
			slog.Debug("chunk already has an asset", "path", f.Path, "chunk", c.ID)
			continue
		}
		claimed[c.ID] = true

		sourceMap, err := rewriteFile(f.SourceMap, assetName)
		if err != nil {
			return nil, &SourceMapError{Path: f.Path, Err: err}
		}

		src := f.Src
		if c.Entry {
			src = preamble + src
		}
		assets = append(assets, Asset{Name: assetName, Source: src, SourceMap: sourceMap, Chunk: c.ID})
	}
	return assets, nil
}

// unitName recovers the unit name from an output path.
func unitName(p, prefix string) string {
	p = strings.TrimPrefix(p, "./")
	prefix = strings.TrimPrefix(prefix, "./")
	if prefix != "" {
		p = strings.TrimPrefix(p, prefix)
	}
	return strings.TrimSuffix(p, ".js")
}

func correlate(name string, g *chunkgraph.Graph, table Table) *chunkgraph.Chunk {
	id, ok := table.Units[name]
	if !ok {
		return nil
	}
	c, _ := g.Chunk(id)
	return c
}

// matchByFilename is the best-effort fallback: compare the normalized output
// path to each chunk's declared files, then try a chunk-<id>.js name.
func matchByFilename(p string, g *chunkgraph.Graph) *chunkgraph.Chunk {
	want := normalize(p)
	for _, c := range g.Chunks {
		for _, f := range c.Files {
			if normalize(f) == want {
				return c
			}
		}
	}
	if m := syntheticUnitFile.FindStringSubmatch(p); m != nil {
		if id, err := strconv.Atoi(m[1]); err == nil {
			c, _ := g.Chunk(chunkgraph.ChunkID(id))
			return c
		}
	}
	return nil
}

// normalize drops a leading "./" and any JavaScript extension, so main.js,
// ./main.mjs and main all compare equal.
func normalize(p string) string {
	p = path.Clean(strings.TrimPrefix(p, "./"))
	if chunkgraph.IsJSFile(p) {
		p = strings.TrimSuffix(p, path.Ext(p))
	}
	return p
}

// rootPreamble returns the root body, or nothing when the body is only a
// strict-mode directive.
func rootPreamble(body string) string {
	switch strings.TrimSpace(body) {
	case "", `'use strict';`, `"use strict";`:
		return ""
	}
	return body
}

// rewriteFile sets the source map's file field to name.
func rewriteFile(sourceMap, name string) (string, error) {
	if strings.TrimSpace(sourceMap) == "" {
		return "", nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(sourceMap), &fields); err != nil {
		return "", err
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}
	quoted, err := json.Marshal(name)
	if err != nil {
		return "", err
	}
	fields["file"] = quoted
	out, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
