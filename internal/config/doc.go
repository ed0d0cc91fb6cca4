// SPDX-License-Identifier: MPL-2.0

// Package config loads chunklink's configuration.
//
// Settings come from built-in defaults, the user config file
// (<config dir>/chunklink/config.cue), a project file (chunklink.cue in the
// working directory) and CHUNKLINK_* environment variables, in increasing
// order of precedence. CUE files are validated against an embedded #Config
// schema before they are merged into Viper.
package config
