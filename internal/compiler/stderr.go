// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"encoding/json"
	"errors"
	"strings"
)

var errTrailingText = errors.New("text after diagnostics")

// stackTraceMarkers start the free-text failure output a crashing compiler
// glues onto its JSON diagnostics.
var stackTraceMarkers = []string{
	"Exception in thread",
	"java.lang.",
	"\n\tat ",
}

// ParseDiagnostics decodes the compiler's error stream: zero or more JSON
// diagnostic objects or arrays, concatenated. When a stack-trace marker is
// found, everything before it is decoded tolerantly (truncated arrays are
// accepted) and the trace becomes one synthetic error diagnostic.
//
// unparsed holds any trailing text that was neither JSON nor a recognizable
// stack trace; callers decide whether it matters.
func ParseDiagnostics(stderr string) (diags []Diagnostic, unparsed string) {
	if strings.TrimSpace(stderr) == "" {
		return nil, ""
	}

	diags, consumed, err := decodeDiagnostics(stderr)
	if err == nil {
		return diags, ""
	}

	// Markers inside already decoded diagnostics are message text.
	if i := markerIndex(stderr[consumed:]); i >= 0 {
		idx := consumed + i
		diags, _, _ = decodeDiagnostics(stderr[:idx])
		trace := strings.TrimSpace(stderr[idx:])
		return append(diags, Diagnostic{Level: LevelError, Description: trace}), ""
	}

	return diags, strings.TrimSpace(stderr[consumed:])
}

func markerIndex(s string) int {
	first := -1
	for _, m := range stackTraceMarkers {
		if i := strings.Index(s, m); i >= 0 && (first < 0 || i < first) {
			first = i
		}
	}
	return first
}

// decodeDiagnostics decodes concatenated diagnostic objects and arrays. It
// returns what it decoded before the first failure and the byte offset up to
// which the input was consumed.
func decodeDiagnostics(s string) ([]Diagnostic, int, error) {
	var diags []Diagnostic
	dec := json.NewDecoder(strings.NewReader(s))
	consumed := 0

	for {
		rest := strings.TrimLeft(s[consumed:], " \t\r\n")
		if rest == "" {
			return diags, len(s), nil
		}

		switch rest[0] {
		case '[':
			if _, err := dec.Token(); err != nil {
				return diags, consumed, err
			}
			for dec.More() {
				var d Diagnostic
				if err := dec.Decode(&d); err != nil {
					return diags, consumed, err
				}
				diags = append(diags, d.normalize())
				consumed = int(dec.InputOffset())
			}
			if _, err := dec.Token(); err != nil {
				return diags, consumed, err
			}
		case '{':
			var d Diagnostic
			if err := dec.Decode(&d); err != nil {
				return diags, consumed, err
			}
			diags = append(diags, d.normalize())
		default:
			return diags, consumed, errTrailingText
		}
		consumed = int(dec.InputOffset())
	}
}
