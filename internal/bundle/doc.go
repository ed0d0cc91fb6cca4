// SPDX-License-Identifier: MPL-2.0

// Package bundle links a chunk graph into one whole-program compilation.
//
// A build collects the source fragments of every chunk, linearizes the chunks
// into parent-ordered compilation units behind a synthetic root unit that
// carries the shared runtime, invokes the compiler once and hands the output
// to the remapper. Every Run owns its own Allocator, so repeated and
// concurrent builds never share state.
package bundle
