// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the shared CUE parsing flow used by the chunk graph
// manifest and the configuration file:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with a schema definition
//  3. Validate and decode into a Go value
//
// # Usage
//
//	//go:embed chunkgraph_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[Graph](
//	    schemaBytes,
//	    manifestBytes,
//	    "#Graph",
//	    cueutil.WithFilename("chunks.cue"),
//	)
//	if err != nil {
//	    return nil, err // error carries the CUE path of the bad field
//	}
//	return result.Value, nil
//
// JSON is a subset of CUE, so the same flow accepts JSON manifests emitted by
// a bundler.
package cueutil
