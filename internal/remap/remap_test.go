// SPDX-License-Identifier: MPL-2.0

package remap

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunklink/chunklink/internal/compiler"
	"github.com/chunklink/chunklink/pkg/chunkgraph"
)

const manifest = `{
	"chunks": [
		{"id": 0, "name": "main", "entry": true, "files": ["main.js", "main.js.map"], "groups": ["main"]},
		{"id": 4, "files": ["lazy.js"], "groups": ["lazy"]},
		{"id": 7, "files": ["styles.css"], "groups": ["lazy"]}
	],
	"groups": [
		{"id": "main", "chunks": [0], "children": ["lazy"]},
		{"id": "lazy", "chunks": [4, 7], "parents": ["main"]}
	]
}`

func loadGraph(t *testing.T) *chunkgraph.Graph {
	t.Helper()
	g, err := chunkgraph.Parse([]byte(manifest), "manifest.json", t.TempDir())
	require.NoError(t, err)
	return g
}

func table() Table {
	return Table{
		Root:  "required-base",
		Units: map[string]chunkgraph.ChunkID{"main": 0, "lazy": 4, "chunk-7": 7},
	}
}

func mapFile(t *testing.T, sourceMap string) string {
	t.Helper()
	var sm struct {
		File string `json:"file"`
	}
	require.NoError(t, json.Unmarshal([]byte(sourceMap), &sm))
	return sm.File
}

func TestRemap_EntryGetsRootPreamble(t *testing.T) {
	t.Parallel()
	files := []compiler.OutputFile{
		{Path: "./required-base.js", Src: "var base=1;", SourceMap: `{"version":3,"file":"required-base.js"}`},
		{Path: "./main.js", Src: "main();", SourceMap: `{"version":3,"file":"main.js","mappings":"AAAA"}`},
		{Path: "./lazy.js", Src: "lazy();", SourceMap: `{"version":3,"file":"lazy.js"}`},
	}

	assets, err := Remap(files, loadGraph(t), table())
	require.NoError(t, err)
	require.Len(t, assets, 2, "root output is not an asset")

	assert.Equal(t, "main.js", assets[0].Name)
	assert.Equal(t, "var base=1;main();", assets[0].Source)
	assert.Equal(t, "main.js", mapFile(t, assets[0].SourceMap))

	assert.Equal(t, "lazy.js", assets[1].Name)
	assert.Equal(t, "lazy();", assets[1].Source, "lazy chunks carry no preamble")
	assert.Equal(t, chunkgraph.ChunkID(4), assets[1].Chunk)
}

func TestRemap_StrictOnlyRootIsElided(t *testing.T) {
	t.Parallel()
	for _, body := range []string{`'use strict';`, `"use strict";` + "\n"} {
		files := []compiler.OutputFile{
			{Path: "required-base.js", Src: body},
			{Path: "main.js", Src: "main();"},
		}
		assets, err := Remap(files, loadGraph(t), table())
		require.NoError(t, err)
		require.Len(t, assets, 1)
		assert.Equal(t, "main();", assets[0].Source)
		assert.Empty(t, assets[0].SourceMap)
	}
}

func TestRemap_RewritesFileToAssetName(t *testing.T) {
	t.Parallel()
	tbl := table()
	tbl.Units = map[string]chunkgraph.ChunkID{"renamed": 4}
	files := []compiler.OutputFile{{Path: "renamed.js", Src: "x", SourceMap: `{"file":"renamed.js","version":3}`}}

	assets, err := Remap(files, loadGraph(t), tbl)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "lazy.js", mapFile(t, assets[0].SourceMap))
}

// The filename fallback is best-effort: it applies only when correlation
// through the unit table fails.
func TestRemap_FilenameFallback(t *testing.T) {
	t.Parallel()
	empty := Table{Root: "required-base"}
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "declared file", path: "./lazy.js", want: "lazy.js"},
		{name: "missing extension", path: "main", want: "main.js"},
		{name: "synthetic unit id", path: "out/chunk-4.js", want: "lazy.js"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assets, err := Remap([]compiler.OutputFile{{Path: tt.path, Src: "x"}}, loadGraph(t), empty)
			require.NoError(t, err)
			require.Len(t, assets, 1)
			assert.Equal(t, tt.want, assets[0].Name)
		})
	}
}

func TestRemap_SkipsUnmatched(t *testing.T) {
	t.Parallel()
	files := []compiler.OutputFile{
		{Path: "unknown.js", Src: "x"},
		{Path: "chunk-7.js", Src: "css only"},
		{Path: "chunk-99.js", Src: "gone"},
	}
	assets, err := Remap(files, loadGraph(t), table())
	require.NoError(t, err)
	assert.Empty(t, assets)
}

func TestRemap_InvalidSourceMap(t *testing.T) {
	t.Parallel()
	files := []compiler.OutputFile{{Path: "main.js", Src: "x", SourceMap: "{not json"}}
	_, err := Remap(files, loadGraph(t), table())

	var smErr *SourceMapError
	require.True(t, errors.As(err, &smErr))
	assert.Equal(t, "main.js", smErr.Path)
	assert.ErrorIs(t, err, ErrSourceMap)
}

func TestUnitName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "main", unitName("./main.js", ""))
	assert.Equal(t, "main", unitName("./out/main.js", "./out/"))
	assert.Equal(t, "js/app", unitName("js/app.js", ""))
}

func TestRemap_ModuleExtensions(t *testing.T) {
	t.Parallel()
	const esm = `{
		"chunks": [
			{"id": 0, "name": "main", "entry": true, "files": ["main.mjs", "main.mjs.map"], "groups": ["main"]},
			{"id": 1, "name": "worker", "entry": true, "files": ["worker.cjs"], "groups": ["worker"]}
		],
		"groups": [{"id": "main", "chunks": [0]}, {"id": "worker", "chunks": [1]}]
	}`
	g, err := chunkgraph.Parse([]byte(esm), "manifest.json", t.TempDir())
	require.NoError(t, err)

	files := []compiler.OutputFile{
		{Path: "./main.js", Src: "main();", SourceMap: `{"version":3,"file":"main.js"}`},
		{Path: "./worker.js", Src: "work();"},
	}

	assets, err := Remap(files, g, Table{Root: "required-base", Units: map[string]chunkgraph.ChunkID{"main": 0}})
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "main.mjs", assets[0].Name, "correlated through the unit table")
	assert.Equal(t, "main.mjs", mapFile(t, assets[0].SourceMap))
	assert.Equal(t, "worker.cjs", assets[1].Name, "matched by filename")
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"main.js":       "main",
		"./main.mjs":    "main",
		"js/worker.CJS": "js/worker",
		"main":          "main",
		"styles.css":    "styles.css",
		"main.js.map":   "main.js.map",
	} {
		assert.Equal(t, want, normalize(in), in)
	}
}
