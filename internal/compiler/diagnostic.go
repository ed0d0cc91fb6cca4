// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"fmt"
	"strings"

	"github.com/chunklink/chunklink/internal/report"
)

const (
	// LevelError diagnostics fail the build step.
	LevelError Level = "error"
	// LevelWarning diagnostics are reported without failing the step.
	LevelWarning Level = "warning"
	// LevelInfo diagnostics are dropped.
	LevelInfo Level = "info"
)

type (
	// Level is the severity of a Diagnostic.
	Level string

	// Location points at a line of a source file.
	Location struct {
		Source string `json:"source"`
		Line   int    `json:"line"`
	}

	// Diagnostic is one message produced by the compiler.
	Diagnostic struct {
		Source      string `json:"source,omitempty"`
		Line        int    `json:"line,omitempty"`
		Description string `json:"description"`
		Level       Level  `json:"level"`
		// OriginalLocation is where the reported code came from before it was
		// inlined or rewritten, when the compiler knows.
		OriginalLocation *Location `json:"originalLocation,omitempty"`
	}
)

// String returns the string representation of the Level.
func (l Level) String() string { return string(l) }

// normalize lower-cases the level and maps unknown levels to error, so a
// diagnostic the compiler labels oddly is never silently dropped.
func (d Diagnostic) normalize() Diagnostic {
	switch lvl := Level(strings.ToLower(string(d.Level))); lvl {
	case LevelError, LevelWarning, LevelInfo:
		d.Level = lvl
	default:
		d.Level = LevelError
	}
	return d
}

// syntheticError builds an error diagnostic with no location.
func syntheticError(format string, args ...any) Diagnostic {
	return Diagnostic{Level: LevelError, Description: fmt.Sprintf(format, args...)}
}

// Render formats the diagnostic as "path:line: description", with the source
// path shortened relative to base and an "originally at" note when the
// original location differs from the reported one.
func (d Diagnostic) Render(base string) string {
	var b strings.Builder
	if d.Source != "" {
		b.WriteString(report.ShortPath(base, d.Source))
		if d.Line > 0 {
			fmt.Fprintf(&b, ":%d", d.Line)
		}
		b.WriteString(": ")
	}
	b.WriteString(d.Description)
	if o := d.OriginalLocation; o != nil && o.Source != "" && (o.Source != d.Source || o.Line != d.Line) {
		fmt.Fprintf(&b, " (originally at %s", report.ShortPath(base, o.Source))
		if o.Line > 0 {
			fmt.Fprintf(&b, ":%d", o.Line)
		}
		b.WriteString(")")
	}
	return b.String()
}

// Error implements the error interface so diagnostics can flow into a
// report.Sink unchanged.
func (d Diagnostic) Error() string { return d.Render("") }
