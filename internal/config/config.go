// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/chunklink/chunklink/internal/issue"
	"github.com/chunklink/chunklink/pkg/cueutil"
	"github.com/chunklink/chunklink/pkg/platform"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "chunklink"
	// ConfigFileName is the name of the user config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// ProjectFileName is the per-project config file looked up in the
	// working directory.
	ProjectFileName = AppName + "." + ConfigFileExt
	// EnvPrefix prefixes environment overrides, e.g. CHUNKLINK_UI_VERBOSE.
	EnvPrefix = "CHUNKLINK"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the chunklink configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// UserConfigPath returns the path of the user config file inside dir, or
// inside ConfigDir when dir is empty.
func UserConfigPath(dir string) (string, error) {
	cfgDir, err := configDirWithOverride(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state. It returns the config and the files merged into it.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, []string, error) {
	select {
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	var sources []string

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'chunklink config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := mergeFile(v, opts.ConfigFilePath); err != nil {
			return nil, nil, err
		}
		sources = append(sources, opts.ConfigFilePath)
	} else {
		userPath, err := UserConfigPath(opts.ConfigDirPath)
		if err != nil {
			return nil, nil, err
		}
		projectPath := ProjectFileName
		if opts.WorkDir != "" {
			projectPath = filepath.Join(opts.WorkDir, ProjectFileName)
		}
		// The project file is merged last so it wins over the user file.
		for _, p := range []string{userPath, projectPath} {
			if !fileExists(p) {
				continue
			}
			if err := mergeFile(v, p); err != nil {
				return nil, nil, err
			}
			sources = append(sources, p)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check CHUNKLINK_* environment variables for typos").
			WithSuggestion("Run 'chunklink config show' to inspect the effective values").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, sources, nil
}

// newViper returns a Viper instance seeded with the defaults and bound to
// CHUNKLINK_* environment variables. AutomaticEnv only applies to keys Viper
// already knows, so every setting gets a default.
func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("compiler.platforms", defaults.Compiler.Platforms)
	v.SetDefault("compiler.native.command", defaults.Compiler.Native.Command)
	v.SetDefault("compiler.managed.java", defaults.Compiler.Managed.Java)
	v.SetDefault("compiler.managed.jar", defaults.Compiler.Managed.Jar)
	v.SetDefault("compiler.flags", defaults.Compiler.Flags)
	v.SetDefault("compiler.cache_size", defaults.Compiler.CacheSize)
	v.SetDefault("output.dir", defaults.Output.Dir)
	v.SetDefault("output.source_maps", defaults.Output.SourceMaps)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("watch.ignore", defaults.Watch.Ignore)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func mergeFile(v *viper.Viper, path string) error {
	if err := loadCUEIntoViper(v, path); err != nil {
		return issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Check that the file contains valid CUE syntax").
			WithSuggestion("Verify the configuration values match the expected schema").
			WithSuggestion("See 'chunklink config --help' for configuration options").
			Wrap(err).
			BuildError()
	}
	return nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper validates a CUE file against the #Config schema and
// merges its contents into Viper. Fields are optional, so validation does
// not require concrete values, and the result is decoded into a map rather
// than a struct so Viper keeps its defaults and environment overrides.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	unified, err := cueutil.Unify(configSchema, data, "#Config",
		cueutil.WithFilename(path), cueutil.WithConcrete(false))
	if err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}

// CreateDefaultConfig writes the default config to the user config file if
// it doesn't exist yet. It returns the file path and whether it was created.
func CreateDefaultConfig() (string, bool, error) {
	cfgPath, err := UserConfigPath("")
	if err != nil {
		return "", false, err
	}

	if fileExists(cfgPath) {
		return cfgPath, false, nil
	}

	if err := Save(DefaultConfig()); err != nil {
		return "", false, err
	}
	return cfgPath, true, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	cfgPath, err := UserConfigPath("")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateCUE generates a CUE representation of the configuration. The
// output validates against the #Config schema.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// chunklink configuration file\n\n")

	sb.WriteString("compiler: {\n")
	sb.WriteString("\tplatforms: [")
	for i, p := range cfg.Compiler.Platforms {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", p)
	}
	sb.WriteString("]\n")
	fmt.Fprintf(&sb, "\tnative: command: %q\n", cfg.Compiler.Native.Command)
	fmt.Fprintf(&sb, "\tmanaged: {\n\t\tjava: %q\n\t\tjar:  %q\n\t}\n", cfg.Compiler.Managed.Java, cfg.Compiler.Managed.Jar)
	if len(cfg.Compiler.Flags) > 0 {
		sb.WriteString("\tflags: {\n")
		names := make([]string, 0, len(cfg.Compiler.Flags))
		for name := range cfg.Compiler.Flags {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			values := cfg.Compiler.Flags[name]
			if len(values) == 1 {
				fmt.Fprintf(&sb, "\t\t%q: %q\n", name, values[0])
				continue
			}
			quoted := make([]string, 0, len(values))
			for _, val := range values {
				quoted = append(quoted, fmt.Sprintf("%q", val))
			}
			fmt.Fprintf(&sb, "\t\t%q: [%s]\n", name, strings.Join(quoted, ", "))
		}
		sb.WriteString("\t}\n")
	}
	fmt.Fprintf(&sb, "\tcache_size: %d\n", cfg.Compiler.CacheSize)
	sb.WriteString("}\n\n")

	sb.WriteString("output: {\n")
	fmt.Fprintf(&sb, "\tdir:         %q\n", cfg.Output.Dir)
	fmt.Fprintf(&sb, "\tsource_maps: %v\n", cfg.Output.SourceMaps)
	sb.WriteString("}\n\n")

	sb.WriteString("ui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose:      %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n\n")

	sb.WriteString("watch: {\n")
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	sb.WriteString("\tignore: [")
	for i, p := range cfg.Watch.Ignore {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", p)
	}
	sb.WriteString("]\n")
	sb.WriteString("}\n")

	return sb.String()
}
