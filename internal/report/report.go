// SPDX-License-Identifier: MPL-2.0

// Package report collects the errors and warnings of one build step.
//
// Every failing stage (duplicate sources, compiler diagnostics, launch
// failures) reports through a Sink so callers see one uniform list regardless
// of where the problem came from.
package report

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

type (
	// Sink receives a build step's errors and warnings. Implementations must
	// keep entries in the order they were added.
	Sink interface {
		AddError(err error)
		AddWarning(err error)
	}

	// Collector is the default Sink. The zero value is ready to use.
	Collector struct {
		mu       sync.Mutex
		errors   []error
		warnings []error
	}
)

// AddError appends err to the error list. Nil errors are ignored.
func (c *Collector) AddError(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, err)
}

// AddWarning appends err to the warning list. Nil errors are ignored.
func (c *Collector) AddWarning(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, err)
}

// Errors returns a copy of the collected errors.
func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.errors)
}

// Warnings returns a copy of the collected warnings.
func (c *Collector) Warnings() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.warnings)
}

// HasErrors reports whether any error was collected.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors) > 0
}

// Err joins every collected error, or returns nil.
func (c *Collector) Err() error {
	return errors.Join(c.Errors()...)
}

// ShortPath renders p relative to base when p lies inside base, so
// diagnostics show "src/app.js" instead of an absolute path. Paths outside
// base, and everything when base is empty, are returned unchanged.
func ShortPath(base, p string) string {
	if base == "" || p == "" || !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.ToSlash(rel)
}
