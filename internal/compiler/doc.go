// SPDX-License-Identifier: MPL-2.0

// Package compiler invokes the whole-program optimizing compiler.
//
// A Request carries the flags, the flat source list and the compilation unit
// definitions of one build. It is executed by a Backend selected from a
// Registry by platform preference: the embedded backend compiles in-process,
// the native and managed backends spawn an external compiler and exchange
// JSON over its standard streams. The Invoker normalizes every backend's
// outcome into output files plus diagnostics reported to a report.Sink.
package compiler
