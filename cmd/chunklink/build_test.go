// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunklink/chunklink/internal/bundle"
	"github.com/chunklink/chunklink/internal/compiler"
	"github.com/chunklink/chunklink/internal/config"
	"github.com/chunklink/chunklink/internal/issue"
	"github.com/chunklink/chunklink/internal/remap"
)

func TestBuild_EmbeddedBackend(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	h := newHarness(t, embeddedConfig(outDir), nil)
	manifest := writeManifest(t, singleEntryManifest)

	require.NoError(t, h.run("build", manifest))

	chunk, err := os.ReadFile(filepath.Join(outDir, "main.js"))
	require.NoError(t, err)
	assert.Contains(t, string(chunk), "hello")
	assert.Contains(t, string(chunk), "//# sourceMappingURL=main.js.map")

	sourceMap, err := os.ReadFile(filepath.Join(outDir, "main.js.map"))
	require.NoError(t, err)
	assert.Contains(t, string(sourceMap), `"version"`)

	assert.Contains(t, h.stdout.String(), "main.js")
	assert.Empty(t, h.stderr.String())
}

func TestBuild_OutFlagAndNoSourceMaps(t *testing.T) {
	t.Parallel()

	h := newHarness(t, embeddedConfig("unused"), nil)
	manifest := writeManifest(t, singleEntryManifest)
	outDir := filepath.Join(t.TempDir(), "public", "js")

	require.NoError(t, h.run("build", manifest, "--out", outDir, "--source-maps=false"))

	chunk, err := os.ReadFile(filepath.Join(outDir, "main.js"))
	require.NoError(t, err)
	assert.NotContains(t, string(chunk), "sourceMappingURL")
	assert.NoFileExists(t, filepath.Join(outDir, "main.js.map"))
}

func TestBuild_MissingManifest(t *testing.T) {
	t.Parallel()

	h := newHarness(t, embeddedConfig(t.TempDir()), nil)
	err := h.run("build", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, issue.ManifestNotFoundId, svcErr.IssueID)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, h.stderr.String(), "load chunk graph")
}

func TestBuild_InvalidManifest(t *testing.T) {
	t.Parallel()

	h := newHarness(t, embeddedConfig(t.TempDir()), nil)
	err := h.run("build", writeManifest(t, `{"chunks": []}`))

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, issue.ManifestParseErrorId, svcErr.IssueID)
}

func TestBuild_InvalidBackendFlag(t *testing.T) {
	t.Parallel()

	h := newHarness(t, embeddedConfig(t.TempDir()), nil)
	err := h.run("build", writeManifest(t, singleEntryManifest), "--backend", "wasm")
	assert.ErrorIs(t, err, compiler.ErrInvalidKind)
}

func TestBuild_NoBackendAvailable(t *testing.T) {
	t.Parallel()

	factory := &stubBackendFactory{backends: map[compiler.Kind]compiler.Backend{
		compiler.KindNative: &stubBackend{name: "native"},
	}}
	cfg := embeddedConfig(t.TempDir())
	cfg.Compiler.Platforms = []config.BackendKind{config.BackendNative}
	h := newHarness(t, cfg, factory)

	err := h.run("build", writeManifest(t, singleEntryManifest))
	assert.ErrorIs(t, err, compiler.ErrNoBackend)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, issue.BackendUnavailableId, svcErr.IssueID)
}

func TestBuild_ConfigLoadFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	h.config.err = fmt.Errorf("%w: bad color", config.ErrInvalidConfig)

	err := h.run("--config", "ci.cue", "build", "chunks.json")

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, issue.ConfigLoadFailedId, svcErr.IssueID)
	assert.Equal(t, "ci.cue", h.config.opts.ConfigFilePath)
}

func TestCompilerFlags(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Compiler.Flags = map[string][]string{
		"compilation_level": {"SIMPLE"},
		"define":            {"A=1"},
	}

	flags, err := compilerFlags(cfg, []string{"compilation_level=ADVANCED", "extern=a.js", "extern=b.js"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ADVANCED"}, flags["compilation_level"])
	assert.Equal(t, []string{"A=1"}, flags["define"])
	assert.Equal(t, []string{"a.js", "b.js"}, flags["extern"])
	assert.Equal(t, []string{"SIMPLE"}, cfg.Compiler.Flags["compilation_level"], "configuration is not modified")

	_, err = compilerFlags(cfg, []string{"novalue"})
	assert.Error(t, err)
	_, err = compilerFlags(cfg, []string{"=value"})
	assert.Error(t, err)
}

func TestWriteAssets(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	assets := []remap.Asset{
		{Name: "main.js", Source: "go();", SourceMap: `{"version":3}`},
		{Name: "js/lazy.abcd.js", Source: "later();\n", SourceMap: `{"version":3}`},
		{Name: "nomap.js", Source: "x();"},
	}

	written, err := writeAssets(dir, assets, true)
	require.NoError(t, err)
	assert.Len(t, written, 5)

	lazy, err := os.ReadFile(filepath.Join(dir, "js", "lazy.abcd.js"))
	require.NoError(t, err)
	assert.Equal(t, "later();\n//# sourceMappingURL=lazy.abcd.js.map\n", string(lazy))
	assert.FileExists(t, filepath.Join(dir, "js", "lazy.abcd.js.map"))

	nomap, err := os.ReadFile(filepath.Join(dir, "nomap.js"))
	require.NoError(t, err)
	assert.Equal(t, "x();", string(nomap))
}

func TestWriteAssets_RejectsEscapingNames(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"../outside.js", "/abs/path.js"} {
		_, err := writeAssets(t.TempDir(), []remap.Asset{{Name: name, Source: "x"}}, false)
		assert.Error(t, err, name)
	}
}

func TestReportError(t *testing.T) {
	t.Parallel()

	dup := &bundle.DuplicateSourceError{Path: "./a.js", Units: []string{"main", "lazy"}}
	err := reportError([]error{compiler.Diagnostic{Description: "oops", Level: compiler.LevelError}, dup})
	assert.ErrorIs(t, err, bundle.ErrDuplicateSource)

	err = reportError([]error{compiler.Diagnostic{Description: "oops", Level: compiler.LevelError}})
	assert.ErrorIs(t, err, compiler.ErrCompilationFailed)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, issue.CompilationFailedId, svcErr.IssueID)
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want issue.Id
	}{
		{fmt.Errorf("x: %w", os.ErrPermission), issue.PermissionDeniedId},
		{&bundle.UnsatisfiableGraphError{Missing: map[string][]string{"a": {"b"}}}, issue.UnsatisfiableGraphId},
		{&compiler.NoBackendError{Preference: []compiler.Kind{compiler.KindNative}}, issue.BackendUnavailableId},
		{&compiler.LaunchError{Command: "closure-compiler", Err: errors.New("not found")}, issue.CompilerLaunchFailedId},
		{&remap.SourceMapError{Path: "main.js", Err: errors.New("bad")}, issue.OutputRemapFailedId},
		{errors.New("unrelated"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, classifyError(tt.err))
		})
	}
}

func TestHumanSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "2.0 KiB", humanSize(2048))
	assert.Equal(t, "1.5 MiB", humanSize(3<<19))
}
