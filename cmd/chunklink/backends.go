// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/chunklink/chunklink/internal/compiler"
	"github.com/chunklink/chunklink/internal/config"
	"github.com/chunklink/chunklink/internal/issue"
)

// configBackendFactory builds every backend from the compiler section of
// the configuration.
type configBackendFactory struct{}

// Registry implements BackendFactory.
func (configBackendFactory) Registry(cfg *config.Config, logger *log.Logger) (*compiler.Registry, error) {
	native, err := compiler.NewNativeBackend(cfg.Compiler.Native.Command)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("configure native compiler").
			WithResource(cfg.Compiler.Native.Command).
			WithSuggestion("Check the quoting of compiler.native.command").
			Wrap(err).
			BuildError()
	}
	native.Logger = logger

	managed, err := compiler.NewManagedBackend(cfg.Compiler.Managed.Java, cfg.Compiler.Managed.Jar)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("configure managed compiler").
			WithResource(cfg.Compiler.Managed.Java).
			WithSuggestion("Check the quoting of compiler.managed.java").
			Wrap(err).
			BuildError()
	}
	managed.Logger = logger

	reg := compiler.NewRegistry()
	reg.Register(compiler.KindNative, native)
	reg.Register(compiler.KindManaged, managed)
	reg.Register(compiler.KindEmbedded, compiler.NewEmbeddedBackend())
	return reg, nil
}

// preference returns the backend order to try. A non-empty override pins
// the build to that single backend.
func preference(cfg *config.Config, override string) ([]compiler.Kind, error) {
	if override != "" {
		kind := compiler.Kind(override)
		if ok, errs := kind.IsValid(); !ok {
			return nil, errs[0]
		}
		return []compiler.Kind{kind}, nil
	}
	if len(cfg.Compiler.Platforms) == 0 {
		return compiler.DefaultPreference(), nil
	}
	kinds := make([]compiler.Kind, 0, len(cfg.Compiler.Platforms))
	for _, p := range cfg.Compiler.Platforms {
		kinds = append(kinds, compiler.Kind(p))
	}
	return kinds, nil
}

// selectBackend builds the registry and picks the first available backend
// in preference order.
func (a *App) selectBackend(cfg *config.Config, override string, logger *log.Logger) (compiler.Backend, error) {
	prefs, err := preference(cfg, override)
	if err != nil {
		return nil, err
	}
	reg, err := a.Backends.Registry(cfg, logger)
	if err != nil {
		return nil, err
	}
	backend, err := reg.Select(prefs)
	if err != nil {
		return nil, newServiceError(err, issue.BackendUnavailableId)
	}
	logger.Debug("selected compiler backend", "backend", backend.Name())
	return backend, nil
}

func newBackendsCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List compiler backends and their availability",
		Long: `List the compiler backends in preference order.

The first available backend is the one 'chunklink build' uses unless
--backend pins another one. Preference comes from compiler.platforms.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd.Context(), rootFlags)
			if err != nil {
				return app.fail(err, nil, rootFlags)
			}
			return app.fail(listBackends(app, cfg, rootFlags), cfg, rootFlags)
		},
	}
}

func listBackends(app *App, cfg *config.Config, rootFlags *rootFlagValues) error {
	logger := app.logger(cfg, rootFlags)
	reg, err := app.Backends.Registry(cfg, logger)
	if err != nil {
		return err
	}
	prefs, err := preference(cfg, "")
	if err != nil {
		return err
	}

	// Preferred kinds first, then anything else the registry knows.
	order := slices.Clone(prefs)
	for _, k := range reg.Kinds() {
		if !slices.Contains(order, k) {
			order = append(order, k)
		}
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Compiler backends"))
	fmt.Fprintln(app.stdout)

	selected := false
	for _, kind := range order {
		backend, getErr := reg.Get(kind)
		if getErr != nil {
			continue
		}
		status := ErrorStyle.Render("unavailable")
		if backend.Available() {
			status = SuccessStyle.Render("available")
		}
		marker := " "
		if !selected && backend.Available() && slices.Contains(prefs, kind) {
			marker = SuccessStyle.Render("✓")
			selected = true
		}
		detail := ""
		if pb, ok := backend.(*compiler.ProcessBackend); ok {
			detail = VerboseStyle.Render(fmt.Sprint(pb.Argv()))
		}
		if !slices.Contains(prefs, kind) {
			detail += " " + SubtitleStyle.Render("(not in compiler.platforms)")
		}
		fmt.Fprintf(app.stdout, "%s %s %s %s\n", marker, CmdStyle.Render(fmt.Sprintf("%-9s", kind)), status, detail)
	}

	if !selected {
		fmt.Fprintln(app.stdout)
		fmt.Fprintln(app.stdout, WarningStyle.Render("No preferred backend is available; builds will fail."))
	}
	return nil
}
