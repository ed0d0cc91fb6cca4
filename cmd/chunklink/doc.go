// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the chunklink CLI.
//
// The root command carries the global flags; build, units, backends and
// config hang off it. Every handler receives an App, which owns the
// configuration provider, the backend factory and the output streams.
package cmd
