// SPDX-License-Identifier: MPL-2.0

// Package chunkgraph models the chunk graph a module bundler hands to the
// linker: chunks with their modules and output files, and chunk groups with
// their parent/child relationships.
//
// The graph is read from a CUE or JSON manifest validated against an embedded
// schema (chunkgraph_schema.cue). It is read-only once loaded; Resolve builds
// the lookup indexes that the linker's queries rely on.
package chunkgraph
