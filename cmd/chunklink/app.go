// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/chunklink/chunklink/internal/compiler"
	"github.com/chunklink/chunklink/internal/config"
	"github.com/chunklink/chunklink/internal/issue"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives an App and reaches
	// configuration and compiler backends through it.
	App struct {
		Config   ConfigProvider
		Backends BackendFactory
		stdout   io.Writer
		stderr   io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config   ConfigProvider
		Backends BackendFactory
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// BackendFactory builds the compiler backend registry for one command
	// from the loaded configuration.
	BackendFactory interface {
		Registry(cfg *config.Config, logger *log.Logger) (*compiler.Registry, error)
	}

	// rootFlagValues holds the persistent flags shared by every subcommand.
	rootFlagValues struct {
		verbose    bool
		configPath string
		envFiles   []string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Backends == nil {
		deps.Backends = configBackendFactory{}
	}

	return &App{
		Config:   deps.Config,
		Backends: deps.Backends,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
	}, nil
}

// loadConfig loads the configuration honoring --config. Failures carry the
// configuration issue entry.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, newServiceError(err, issue.ConfigLoadFailedId)
	}
	return cfg, nil
}

// logger returns the diagnostics logger for one command. --verbose and the
// ui.verbose setting both enable debug output.
func (a *App) logger(cfg *config.Config, flags *rootFlagValues) *log.Logger {
	verbose := flags.verbose || (cfg != nil && cfg.UI.Verbose)
	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: config.AppName})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// issueStyle returns the glamour style used for issue help text.
func issueStyle(cfg *config.Config) string {
	if cfg != nil && cfg.UI.ColorScheme == config.ColorSchemeLight {
		return "light"
	}
	return "dark"
}

// fail renders err to stderr and converts it into an ExitError, which the
// root error handler does not print again.
func (a *App) fail(err error, cfg *config.Config, flags *rootFlagValues) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	renderError(a.stderr, err, flags.verbose, issueStyle(cfg))
	return &ExitError{Code: 1, Err: err}
}
