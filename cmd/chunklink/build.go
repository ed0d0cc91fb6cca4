// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/chunklink/chunklink/internal/bundle"
	"github.com/chunklink/chunklink/internal/compiler"
	"github.com/chunklink/chunklink/internal/config"
	"github.com/chunklink/chunklink/internal/issue"
	"github.com/chunklink/chunklink/internal/remap"
	"github.com/chunklink/chunklink/internal/report"
	"github.com/chunklink/chunklink/internal/watch"
	"github.com/chunklink/chunklink/pkg/chunkgraph"
)

type (
	// buildFlagValues holds the flags of `chunklink build`.
	buildFlagValues struct {
		outDir     string
		backend    string
		watch      bool
		sourceMaps bool
		flags      []string
	}

	// builder runs build steps for one manifest. Watch mode reuses it for
	// every rebuild.
	builder struct {
		pipeline   *bundle.Pipeline
		manifest   string
		outDir     string
		sourceMaps bool
		stdout     io.Writer
		stderr     io.Writer
		logger     *log.Logger
	}
)

func newBuildCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &buildFlagValues{}
	buildCmd := &cobra.Command{
		Use:   "build <manifest>",
		Short: "Link a chunk graph into optimized output chunks",
		Long: `Link the chunk graph described by <manifest> into one compiler
invocation and write the resulting chunk files.

Each output chunk is written under the output directory at the path the
bundler assigned to it, next to its source map.`,
		Example: `  chunklink build chunks.json
  chunklink build chunks.json --out public/js --backend embedded
  chunklink build chunks.json --flag compilation_level=ADVANCED --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), rootFlags)
			if err != nil {
				return app.fail(err, nil, rootFlags)
			}
			if !cmd.Flags().Changed("source-maps") {
				flags.sourceMaps = cfg.Output.SourceMaps
			}
			return app.fail(runBuild(cmd.Context(), app, cfg, rootFlags, flags, args[0]), cfg, rootFlags)
		},
	}

	buildCmd.Flags().StringVarP(&flags.outDir, "out", "o", "", "output directory (default from output.dir)")
	buildCmd.Flags().StringVar(&flags.backend, "backend", "", "compiler backend to use: native, managed or embedded")
	buildCmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "rebuild when the manifest or a module file changes")
	buildCmd.Flags().BoolVar(&flags.sourceMaps, "source-maps", true, "write source maps next to the chunks (default from output.source_maps)")
	buildCmd.Flags().StringArrayVar(&flags.flags, "flag", nil, "extra compiler flag as name=value (repeatable)")

	return buildCmd
}

func runBuild(ctx context.Context, app *App, cfg *config.Config, rootFlags *rootFlagValues, flags *buildFlagValues, manifest string) error {
	logger := app.logger(cfg, rootFlags)

	compilerFlags, err := compilerFlags(cfg, flags.flags)
	if err != nil {
		return err
	}

	backend, err := app.selectBackend(cfg, flags.backend, logger)
	if err != nil {
		return err
	}
	if flags.watch {
		// Rebuilds that change nothing the compiler sees are answered from
		// the cache.
		cached, cacheErr := compiler.NewCachingBackend(backend, cfg.Compiler.CacheSize)
		if cacheErr != nil {
			return cacheErr
		}
		backend = cached
	}

	absManifest, err := filepath.Abs(manifest)
	if err != nil {
		return fmt.Errorf("resolve manifest path: %w", err)
	}
	outDir := flags.outDir
	if outDir == "" {
		outDir = cfg.Output.Dir
	}

	b := &builder{
		pipeline: &bundle.Pipeline{
			Invoker: compiler.NewInvoker(backend, logger),
			Flags:   compilerFlags,
			Logger:  logger,
		},
		manifest:   absManifest,
		outDir:     outDir,
		sourceMaps: flags.sourceMaps,
		stdout:     app.stdout,
		stderr:     app.stderr,
		logger:     logger,
	}

	if !flags.watch {
		_, err := b.build(ctx)
		return err
	}
	return runWatchMode(ctx, app, cfg, rootFlags, b)
}

// compilerFlags merges compiler.flags from the configuration with the
// repeatable --flag name=value arguments. Command-line values for a name
// replace the configured ones.
func compilerFlags(cfg *config.Config, extra []string) (compiler.Flags, error) {
	flags := compiler.Flags(cfg.Compiler.Flags).Clone()
	overridden := make(map[string]bool)
	for _, kv := range extra {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --flag %q: expected name=value", kv)
		}
		if !overridden[name] {
			delete(flags, name)
			overridden[name] = true
		}
		flags.Add(name, value)
	}
	return flags, nil
}

// build runs one build step. It returns the files the step read, which
// watch mode tracks, even when the step fails.
func (b *builder) build(ctx context.Context) ([]string, error) {
	tracked := []string{b.manifest}
	start := time.Now()

	g, err := loadManifest(b.manifest)
	if err != nil {
		return tracked, err
	}
	baseDir := filepath.Dir(b.manifest)
	tracked = append(tracked, g.Files(baseDir)...)

	res, err := b.pipeline.Run(ctx, g)
	if err != nil {
		return tracked, newServiceError(err, classifyError(err))
	}

	renderReport(b.stderr, res.Report, baseDir)
	if errs := res.Report.Errors(); len(errs) > 0 {
		return tracked, reportError(errs)
	}

	written, err := writeAssets(b.outDir, res.Assets, b.sourceMaps)
	if err != nil {
		return tracked, err
	}
	for _, f := range written {
		b.logger.Debug("wrote file", "path", f)
	}

	fmt.Fprintf(b.stdout, "%s Linked %d unit(s) into %d chunk(s) in %s %s\n",
		SuccessStyle.Render("✓"), len(res.Units), len(res.Assets),
		CmdStyle.Render(b.outDir), VerboseStyle.Render(time.Since(start).Round(time.Millisecond).String()))
	for _, a := range res.Assets {
		fmt.Fprintf(b.stdout, "  %s %s\n", CmdStyle.Render(a.Name), VerboseStyle.Render(humanSize(len(a.Source))))
	}
	return tracked, nil
}

// loadManifest loads the chunk graph at path and attaches the matching
// issue entry on failure.
func loadManifest(manifest string) (*chunkgraph.Graph, error) {
	g, err := chunkgraph.Load(manifest)
	if err == nil {
		return g, nil
	}

	suggestion := "Check the manifest against the chunk graph schema"
	if errors.Is(err, os.ErrNotExist) {
		suggestion = "Export the chunk graph from the bundler first, or fix the path"
	}
	return nil, newServiceError(issue.NewErrorContext().
		WithOperation("load chunk graph").
		WithResource(manifest).
		WithSuggestion(suggestion).
		Wrap(err).
		BuildError(), classifyManifestError(err))
}

// reportError summarizes a failed build step. Duplicate sources take
// precedence since the compiler never ran.
func reportError(errs []error) error {
	for _, e := range errs {
		if errors.Is(e, bundle.ErrDuplicateSource) {
			return newServiceError(fmt.Errorf("%w: %d problem(s) reported", bundle.ErrDuplicateSource, len(errs)), issue.DuplicateSourcesId)
		}
	}
	return newServiceError(fmt.Errorf("%w: %d error(s) reported", compiler.ErrCompilationFailed, len(errs)), issue.CompilationFailedId)
}

// renderReport prints warnings, then errors. Compiler diagnostics show
// their source paths relative to baseDir.
func renderReport(w io.Writer, rep *report.Collector, baseDir string) {
	for _, e := range rep.Warnings() {
		fmt.Fprintf(w, "%s %s\n", WarningStyle.Render("warning:"), describe(e, baseDir))
	}
	for _, e := range rep.Errors() {
		fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("error:"), describe(e, baseDir))
	}
}

func describe(err error, baseDir string) string {
	var d compiler.Diagnostic
	if errors.As(err, &d) {
		return d.Render(baseDir)
	}
	return err.Error()
}

// writeAssets writes every asset below dir. With sourceMaps set, each
// chunk gets a "<name>.map" sibling and a sourceMappingURL comment. It
// returns the written paths.
func writeAssets(dir string, assets []remap.Asset, sourceMaps bool) ([]string, error) {
	var written []string
	for _, a := range assets {
		rel := filepath.FromSlash(a.Name)
		if !filepath.IsLocal(rel) {
			return written, fmt.Errorf("refusing to write chunk %q outside the output directory", a.Name)
		}
		target := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, fmt.Errorf("create output directory: %w", err)
		}

		src := a.Source
		if sourceMaps && a.SourceMap != "" {
			if !strings.HasSuffix(src, "\n") {
				src += "\n"
			}
			src += "//# sourceMappingURL=" + path.Base(a.Name) + ".map\n"
			if err := os.WriteFile(target+".map", []byte(a.SourceMap), 0o644); err != nil {
				return written, fmt.Errorf("write source map: %w", err)
			}
			written = append(written, target+".map")
		}
		if err := os.WriteFile(target, []byte(src), 0o644); err != nil {
			return written, fmt.Errorf("write chunk: %w", err)
		}
		written = append(written, target)
	}
	return written, nil
}

func humanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// runWatchMode builds once, then rebuilds whenever the manifest or one of
// the module files it references changes. The tracked set is refreshed
// after every rebuild since the manifest may reference new files. It blocks
// until ctx is cancelled.
func runWatchMode(ctx context.Context, app *App, cfg *config.Config, rootFlags *rootFlagValues, b *builder) error {
	style := issueStyle(cfg)

	fmt.Fprintf(app.stdout, "%s Watch mode: initial build of %s\n", VerboseHighlightStyle.Render("→"), b.manifest)
	tracked, err := b.build(ctx)
	if err != nil {
		// The user may fix the error and save again.
		renderError(app.stderr, err, rootFlags.verbose, style)
	}

	fmt.Fprintf(app.stdout, "\n%s Watching for changes (Ctrl+C to stop)...\n\n", VerboseHighlightStyle.Render("→"))

	var w *watch.Watcher
	w, err = watch.New(watch.Config{
		Files:    tracked,
		Ignore:   cfg.Watch.Ignore,
		Debounce: cfg.Watch.Debounce,
		Logger:   b.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(app.stdout, "%s Detected %d change(s). Rebuilding...\n", VerboseHighlightStyle.Render("→"), len(changed))
			next, buildErr := b.build(ctx)
			if buildErr != nil {
				renderError(app.stderr, buildErr, rootFlags.verbose, style)
			}
			if setErr := w.SetFiles(next); setErr != nil {
				b.logger.Warn("update watched files", "err", setErr)
			}
			fmt.Fprintf(app.stdout, "\n%s Watching for changes...\n\n", VerboseHighlightStyle.Render("→"))
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	return w.Run(ctx)
}
