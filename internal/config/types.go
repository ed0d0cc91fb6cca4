// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// BackendNative runs a platform-specific compiler executable.
	BackendNative BackendKind = "native"
	// BackendManaged runs the compiler jar on a Java runtime.
	BackendManaged BackendKind = "managed"
	// BackendEmbedded compiles in-process.
	BackendEmbedded BackendKind = "embedded"

	// ColorSchemeAuto detects the color scheme from the terminal.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark uses dark mode colors.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight uses light mode colors.
	ColorSchemeLight ColorScheme = "light"

	// DefaultDebounce is how long watch mode waits for file events to settle.
	DefaultDebounce = 300 * time.Millisecond
	// DefaultCacheSize is the number of compiled requests watch mode keeps.
	DefaultCacheSize = 16
)

var (
	// ErrInvalidBackendKind is the sentinel error wrapped by InvalidBackendKindError.
	ErrInvalidBackendKind = errors.New("invalid backend kind")
	// ErrInvalidColorScheme is the sentinel error wrapped by InvalidColorSchemeError.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidIgnorePattern is the sentinel error wrapped by InvalidIgnorePatternError.
	ErrInvalidIgnorePattern = errors.New("invalid ignore pattern")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidCompilerConfig is the sentinel error wrapped by InvalidCompilerConfigError.
	ErrInvalidCompilerConfig = errors.New("invalid compiler config")
	// ErrInvalidWatchConfig is the sentinel error wrapped by InvalidWatchConfigError.
	ErrInvalidWatchConfig = errors.New("invalid watch config")
)

type (
	// BackendKind names a compiler backend. Defined locally so that config
	// does not import the compiler package.
	BackendKind string

	// ColorScheme represents the UI color scheme preference.
	ColorScheme string

	// InvalidBackendKindError is returned when a BackendKind is not recognized.
	InvalidBackendKindError struct {
		Value BackendKind
	}

	// InvalidColorSchemeError is returned when a ColorScheme is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidIgnorePatternError is returned when a watch ignore glob does not parse.
	InvalidIgnorePatternError struct {
		Value string
	}

	// InvalidConfigError collects field-level errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// InvalidCompilerConfigError collects compiler field errors.
	InvalidCompilerConfigError struct {
		FieldErrors []error
	}

	// InvalidWatchConfigError collects watch field errors.
	InvalidWatchConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Compiler selects and configures the compiler backends.
		Compiler CompilerConfig `json:"compiler" mapstructure:"compiler"`
		// Output controls where build results are written.
		Output OutputConfig `json:"output" mapstructure:"output"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
		// Watch configures rebuild-on-change.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
	}

	// CompilerConfig configures backend selection and compiler flags.
	CompilerConfig struct {
		// Platforms is the backend preference order.
		Platforms []BackendKind `json:"platforms" mapstructure:"platforms"`
		Native    NativeConfig  `json:"native" mapstructure:"native"`
		Managed   ManagedConfig `json:"managed" mapstructure:"managed"`
		// Flags are passed to every compilation. Keys are lowercased by Viper.
		Flags map[string][]string `json:"flags" mapstructure:"flags"`
		// CacheSize bounds the watch-mode compilation cache. Zero disables it.
		CacheSize int `json:"cache_size" mapstructure:"cache_size"`
	}

	// NativeConfig configures the native backend.
	NativeConfig struct {
		// Command is the compiler executable, optionally with leading arguments.
		Command string `json:"command" mapstructure:"command"`
	}

	// ManagedConfig configures the managed backend.
	ManagedConfig struct {
		// Java is the Java launcher, optionally with JVM arguments.
		Java string `json:"java" mapstructure:"java"`
		// Jar is the compiler jar. The backend is unavailable without one.
		Jar string `json:"jar" mapstructure:"jar"`
	}

	// OutputConfig controls build output.
	OutputConfig struct {
		// Dir is the default output directory for `chunklink build`.
		Dir string `json:"dir" mapstructure:"dir"`
		// SourceMaps writes a .map file next to every asset.
		SourceMaps bool `json:"source_maps" mapstructure:"source_maps"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// WatchConfig configures watch mode.
	WatchConfig struct {
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		// Ignore lists doublestar globs of paths whose changes are ignored.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Compiler: CompilerConfig{
			Platforms: []BackendKind{BackendNative, BackendManaged, BackendEmbedded},
			Native:    NativeConfig{Command: "closure-compiler"},
			Managed:   ManagedConfig{Java: "java"},
			Flags:     map[string][]string{},
			CacheSize: DefaultCacheSize,
		},
		Output: OutputConfig{
			Dir:        "dist",
			SourceMaps: true,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
			Ignore:   []string{"**/*.tmp"},
		},
	}
}

// String returns the string representation of the BackendKind.
func (k BackendKind) String() string { return string(k) }

// IsValid returns whether the BackendKind is one of the defined kinds.
func (k BackendKind) IsValid() (bool, []error) {
	switch k {
	case BackendNative, BackendManaged, BackendEmbedded:
		return true, nil
	default:
		return false, []error{&InvalidBackendKindError{Value: k}}
	}
}

// Error implements the error interface for InvalidBackendKindError.
func (e *InvalidBackendKindError) Error() string {
	return fmt.Sprintf("invalid backend %q (valid: %s, %s, %s)", e.Value, BackendNative, BackendManaged, BackendEmbedded)
}

// Unwrap returns ErrInvalidBackendKind for errors.Is() compatibility.
func (e *InvalidBackendKindError) Unwrap() error { return ErrInvalidBackendKind }

// String returns the string representation of the ColorScheme.
func (c ColorScheme) String() string { return string(c) }

// IsValid returns whether the ColorScheme is one of the defined schemes.
func (c ColorScheme) IsValid() (bool, []error) {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: c}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Error implements the error interface for InvalidIgnorePatternError.
func (e *InvalidIgnorePatternError) Error() string {
	return fmt.Sprintf("invalid ignore pattern %q", e.Value)
}

// Unwrap returns ErrInvalidIgnorePattern for errors.Is() compatibility.
func (e *InvalidIgnorePatternError) Unwrap() error { return ErrInvalidIgnorePattern }

// IsValid returns whether the CompilerConfig has valid fields.
func (c CompilerConfig) IsValid() (bool, []error) {
	var errs []error
	for _, k := range c.Platforms {
		if valid, fieldErrs := k.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if strings.TrimSpace(c.Native.Command) == "" {
		errs = append(errs, errors.New("compiler.native.command must be non-empty"))
	}
	if strings.TrimSpace(c.Managed.Java) == "" {
		errs = append(errs, errors.New("compiler.managed.java must be non-empty"))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("compiler.cache_size must not be negative, got %d", c.CacheSize))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidCompilerConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidCompilerConfigError.
func (e *InvalidCompilerConfigError) Error() string {
	return joinFieldErrors("invalid compiler config", e.FieldErrors)
}

// Unwrap returns ErrInvalidCompilerConfig for errors.Is() compatibility.
func (e *InvalidCompilerConfigError) Unwrap() error { return ErrInvalidCompilerConfig }

// IsValid returns whether the WatchConfig has valid fields.
func (c WatchConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative, got %s", c.Debounce))
	}
	for _, p := range c.Ignore {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, &InvalidIgnorePatternError{Value: p})
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidWatchConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidWatchConfigError.
func (e *InvalidWatchConfigError) Error() string {
	return joinFieldErrors("invalid watch config", e.FieldErrors)
}

// Unwrap returns ErrInvalidWatchConfig for errors.Is() compatibility.
func (e *InvalidWatchConfigError) Unwrap() error { return ErrInvalidWatchConfig }

// IsValid returns whether the Config has valid fields. Output has no
// constraints beyond its CUE schema.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Compiler.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Watch.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return joinFieldErrors("invalid config", e.FieldErrors)
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Settings returns the configuration as nested maps keyed like the config
// file, with durations rendered as strings. It feeds the JSON and TOML
// renderings of `config show`.
func (c *Config) Settings() map[string]any {
	platforms := make([]string, 0, len(c.Compiler.Platforms))
	for _, p := range c.Compiler.Platforms {
		platforms = append(platforms, string(p))
	}
	flags := make(map[string]any, len(c.Compiler.Flags))
	for name, values := range c.Compiler.Flags {
		flags[name] = append([]string(nil), values...)
	}
	return map[string]any{
		"compiler": map[string]any{
			"platforms":  platforms,
			"native":     map[string]any{"command": c.Compiler.Native.Command},
			"managed":    map[string]any{"java": c.Compiler.Managed.Java, "jar": c.Compiler.Managed.Jar},
			"flags":      flags,
			"cache_size": c.Compiler.CacheSize,
		},
		"output": map[string]any{
			"dir":         c.Output.Dir,
			"source_maps": c.Output.SourceMaps,
		},
		"ui": map[string]any{
			"color_scheme": string(c.UI.ColorScheme),
			"verbose":      c.UI.Verbose,
		},
		"watch": map[string]any{
			"debounce": c.Watch.Debounce.String(),
			"ignore":   append([]string{}, c.Watch.Ignore...),
		},
	}
}

func joinFieldErrors(prefix string, errs []error) string {
	if len(errs) == 1 {
		return fmt.Sprintf("%s: %v", prefix, errs[0])
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%s: %s", prefix, strings.Join(msgs, "; "))
}
