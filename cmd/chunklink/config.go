// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/chunklink/chunklink/internal/config"
)

// Output formats of `config show`.
const (
	formatText = "text"
	formatCUE  = "cue"
	formatJSON = "json"
	formatTOML = "toml"
)

// newConfigCommand creates the `chunklink config` command tree.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage chunklink configuration",
		Long: `Manage chunklink configuration.

Settings are merged in this order, later sources winning:
  - built-in defaults
  - the user file (Linux: ~/.config/chunklink/config.cue,
    macOS: ~/Library/Application Support/chunklink/config.cue,
    Windows: %APPDATA%\chunklink\config.cue)
  - chunklink.cue in the current directory
  - CHUNKLINK_* environment variables, e.g. CHUNKLINK_OUTPUT_DIR

--config replaces both files with the one given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app, rootFlags, format)
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, cue, json or toml")
	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default user configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.fail(initConfig(app), nil, rootFlags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.fail(showConfigPath(app, rootFlags), nil, rootFlags)
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, rootFlags *rootFlagValues, format string) error {
	cfg, err := app.loadConfig(ctx, rootFlags)
	if err != nil {
		return app.fail(err, nil, rootFlags)
	}

	switch format {
	case formatCUE:
		fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	case formatJSON:
		data, err := json.MarshalIndent(cfg.Settings(), "", "  ")
		if err != nil {
			return app.fail(fmt.Errorf("encode configuration: %w", err), cfg, rootFlags)
		}
		fmt.Fprintln(app.stdout, string(data))
	case formatTOML:
		data, err := toml.Marshal(cfg.Settings())
		if err != nil {
			return app.fail(fmt.Errorf("encode configuration: %w", err), cfg, rootFlags)
		}
		fmt.Fprint(app.stdout, string(data))
	case formatText:
		fmt.Fprintln(app.stdout, TitleStyle.Render("Current Configuration"))
		fmt.Fprintln(app.stdout)
		for _, src := range configSources(rootFlags) {
			fmt.Fprintf(app.stdout, "%s: %s\n", CmdStyle.Render("Config file"), src)
		}
		if len(configSources(rootFlags)) == 0 {
			fmt.Fprintf(app.stdout, "%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
		}
		fmt.Fprintln(app.stdout)
		writeSettings(app.stdout, cfg.Settings(), 0)
	default:
		return app.fail(fmt.Errorf("unknown format %q: use text, cue, json or toml", format), cfg, rootFlags)
	}
	return nil
}

// configSources lists the existing files that contribute to the
// configuration, in merge order.
func configSources(rootFlags *rootFlagValues) []string {
	if rootFlags.configPath != "" {
		return []string{rootFlags.configPath}
	}
	var sources []string
	if userPath, err := config.UserConfigPath(""); err == nil && fileExistsCheck(userPath) {
		sources = append(sources, userPath)
	}
	if fileExistsCheck(config.ProjectFileName) {
		if abs, err := filepath.Abs(config.ProjectFileName); err == nil {
			sources = append(sources, abs)
		}
	}
	return sources
}

// writeSettings prints nested settings with sorted keys, one per line.
func writeSettings(w io.Writer, settings map[string]any, depth int) {
	indent := strings.Repeat("  ", depth)
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		switch v := settings[k].(type) {
		case map[string]any:
			if len(v) == 0 {
				fmt.Fprintf(w, "%s%s: %s\n", indent, CmdStyle.Render(k), SubtitleStyle.Render("(none)"))
				continue
			}
			fmt.Fprintf(w, "%s%s:\n", indent, CmdStyle.Render(k))
			writeSettings(w, v, depth+1)
		case []string:
			if len(v) == 0 {
				fmt.Fprintf(w, "%s%s: %s\n", indent, k, SubtitleStyle.Render("(none)"))
				continue
			}
			fmt.Fprintf(w, "%s%s: %s\n", indent, k, SuccessStyle.Render(strings.Join(v, ", ")))
		case string:
			if v == "" {
				fmt.Fprintf(w, "%s%s: %s\n", indent, k, SubtitleStyle.Render("(unset)"))
				continue
			}
			fmt.Fprintf(w, "%s%s: %s\n", indent, k, SuccessStyle.Render(v))
		default:
			fmt.Fprintf(w, "%s%s: %s\n", indent, k, SuccessStyle.Render(fmt.Sprint(v)))
		}
	}
}

func initConfig(app *App) error {
	path, created, err := config.CreateDefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func showConfigPath(app *App, rootFlags *rootFlagValues) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	userPath, err := config.UserConfigPath("")
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(app.stdout, "Config file: %s\n", userPath)
	fmt.Fprintf(app.stdout, "Project file: %s\n", config.ProjectFileName)
	if rootFlags.configPath != "" {
		fmt.Fprintf(app.stdout, "Override (--config): %s\n", rootFlags.configPath)
	}
	return nil
}

func fileExistsCheck(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
