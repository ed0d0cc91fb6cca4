// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation. They
// cover the hot paths of a build:
//   - manifest parsing and schema validation
//   - collection and linearization of chunk graphs
//   - the full build step on the embedded compiler
//   - configuration loading
//
// To generate a PGO profile, run:
//
//	go test -run='^$' -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
