// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootFlags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "chunklink",
		Short: "Link bundler chunk graphs through an optimizing compiler",
		Long: TitleStyle.Render("chunklink") + SubtitleStyle.Render(" - link bundler chunk graphs through an optimizing compiler") + `

chunklink takes the chunk graph a JavaScript bundler produced, flattens every
module into one shared namespace and compiles all chunks in a single
compiler invocation. Each output chunk is written back under the name the
bundler gave it, with its source map.

` + SubtitleStyle.Render("Examples:") + `
  chunklink build chunks.json            Link and compile the graph
  chunklink build chunks.json --watch    Rebuild on every change
  chunklink units chunks.json            Show the compilation units
  chunklink backends                     List compiler backends
  chunklink config show                  Show current configuration`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadEnvFiles(rootFlags.envFiles)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&rootFlags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", "", "config file (replaces the user and project files)")
	rootCmd.PersistentFlags().StringArrayVar(&rootFlags.envFiles, "env-file", nil, "load environment variables from a dotenv file before reading configuration (repeatable)")

	rootCmd.AddCommand(newBuildCommand(app, rootFlags))
	rootCmd.AddCommand(newUnitsCommand(app, rootFlags))
	rootCmd.AddCommand(newBackendsCommand(app, rootFlags))
	rootCmd.AddCommand(newConfigCommand(app, rootFlags))

	return rootCmd
}

// loadEnvFiles applies dotenv files in order. Variables already present in
// the environment are kept, so the shell overrides the files.
func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// handleError prints errors fang would otherwise print. ExitErrors were
// already rendered by the command that returned them.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// Execute runs the CLI and exits with the command's exit code. It is called
// by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
