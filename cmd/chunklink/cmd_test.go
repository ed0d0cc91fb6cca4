// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/chunklink/chunklink/internal/compiler"
	"github.com/chunklink/chunklink/internal/config"
)

const singleEntryManifest = `{
	"chunks": [{
		"id": 0, "name": "main", "entry": true, "files": ["main.js"], "groups": ["main"],
		"modules": [{"id": "./index.js", "source": "console.log(\"hello\");"}]
	}],
	"groups": [{"id": "main", "chunks": [0]}]
}`

type (
	// stubConfigProvider returns a fixed configuration and records the
	// options it was called with.
	stubConfigProvider struct {
		cfg  *config.Config
		err  error
		opts config.LoadOptions
	}

	// stubBackend is a backend with fixed availability. It never compiles.
	stubBackend struct {
		name      string
		available bool
	}

	stubBackendFactory struct {
		backends map[compiler.Kind]compiler.Backend
	}

	cliHarness struct {
		app    *App
		stdout *bytes.Buffer
		stderr *bytes.Buffer
		config *stubConfigProvider
	}
)

func (s *stubConfigProvider) Load(_ context.Context, opts config.LoadOptions) (*config.Config, error) {
	s.opts = opts
	return s.cfg, s.err
}

func (b *stubBackend) Name() string    { return b.name }
func (b *stubBackend) Available() bool { return b.available }
func (b *stubBackend) Compile(context.Context, *compiler.Request) (*compiler.Result, error) {
	return &compiler.Result{}, nil
}

func (f *stubBackendFactory) Registry(*config.Config, *log.Logger) (*compiler.Registry, error) {
	reg := compiler.NewRegistry()
	for _, kind := range []compiler.Kind{compiler.KindNative, compiler.KindManaged, compiler.KindEmbedded} {
		if b, ok := f.backends[kind]; ok {
			reg.Register(kind, b)
		}
	}
	return reg, nil
}

// newHarness builds an App around cfg with captured output. A nil
// factory selects the production backends.
func newHarness(t *testing.T, cfg *config.Config, factory BackendFactory) *cliHarness {
	t.Helper()
	h := &cliHarness{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		config: &stubConfigProvider{cfg: cfg},
	}
	app, err := NewApp(Dependencies{
		Config:   h.config,
		Backends: factory,
		Stdout:   h.stdout,
		Stderr:   h.stderr,
	})
	require.NoError(t, err)
	h.app = app
	return h
}

func (h *cliHarness) run(args ...string) error {
	root := NewRootCommand(h.app)
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

// embeddedConfig is the default configuration restricted to the in-process
// backend and writing below outDir.
func embeddedConfig(outDir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Compiler.Platforms = []config.BackendKind{config.BackendEmbedded}
	cfg.Output.Dir = outDir
	return cfg
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "chunks.json")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}
