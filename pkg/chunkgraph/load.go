// SPDX-License-Identifier: MPL-2.0

package chunkgraph

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chunklink/chunklink/pkg/cueutil"
)

//go:embed chunkgraph_schema.cue
var schema []byte

// ErrModuleSource is returned when a module declares both an inline source
// and a source file.
var ErrModuleSource = errors.New("module declares both source and file")

// Load reads, validates and resolves the manifest at path. Module files and
// source map files are resolved relative to the manifest's directory.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chunk graph manifest: %w", err)
	}
	return Parse(data, path, filepath.Dir(path))
}

// Parse validates data against the manifest schema, loads module files
// relative to baseDir and resolves the graph.
func Parse(data []byte, filename, baseDir string) (*Graph, error) {
	result, err := cueutil.ParseAndDecode[Graph](schema, data, "#Graph", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	g := result.Value

	for _, c := range g.Chunks {
		for i := range c.Modules {
			if err := loadModuleFiles(&c.Modules[i], baseDir); err != nil {
				return nil, fmt.Errorf("chunk %d: %w", c.ID, err)
			}
		}
	}

	if err := g.Resolve(); err != nil {
		return nil, err
	}
	return g, nil
}

// Files returns every file the manifest pulls in besides itself. Watch mode
// uses it to decide which paths trigger a rebuild.
func (g *Graph) Files(baseDir string) []string {
	var files []string
	for _, c := range g.Chunks {
		for _, m := range c.Modules {
			for _, f := range []string{m.File, m.SourceMapFile} {
				if f != "" {
					files = append(files, resolvePath(baseDir, f))
				}
			}
		}
	}
	return files
}

func loadModuleFiles(m *Module, baseDir string) error {
	if m.File != "" {
		if m.Source != "" {
			return fmt.Errorf("module %q: %w", m.ID, ErrModuleSource)
		}
		src, err := os.ReadFile(resolvePath(baseDir, m.File))
		if err != nil {
			return fmt.Errorf("module %q: %w", m.ID, err)
		}
		m.Source = string(src)
	}
	if m.SourceMapFile != "" && m.SourceMap == "" {
		sm, err := os.ReadFile(resolvePath(baseDir, m.SourceMapFile))
		if err != nil {
			return fmt.Errorf("module %q: %w", m.ID, err)
		}
		m.SourceMap = string(sm)
	}
	return nil
}

func resolvePath(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, filepath.FromSlash(p))
}
