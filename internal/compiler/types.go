// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Flag names shared between the linker and the backends.
const (
	FlagChunkWrapper          = "chunk_wrapper"
	FlagCompilationLevel      = "compilation_level"
	FlagLanguageOut           = "language_out"
	FlagChunkOutputPathPrefix = "chunk_output_path_prefix"
)

// ErrInvalidUnit is returned when a unit definition cannot be parsed.
var ErrInvalidUnit = errors.New("invalid compilation unit definition")

type (
	// Flags are compiler flags. A flag may be repeated; it serializes as a
	// plain string when it has exactly one value and as a list otherwise.
	Flags map[string][]string

	// Source is one named source fragment handed to the compiler.
	Source struct {
		Path      string `json:"path"`
		Src       string `json:"src"`
		SourceMap string `json:"source_map,omitempty"`
	}

	// Unit is one compilation unit definition: Count consecutive sources
	// from the flat source list, loaded after every unit named in Parents.
	Unit struct {
		Name    string
		Count   int
		Parents []string
	}

	// Request is the single message sent to a backend.
	Request struct {
		Flags   Flags    `json:"flags"`
		Sources []Source `json:"sources"`
		Units   []string `json:"units,omitempty"`
	}

	// OutputFile is one file produced by the compiler.
	OutputFile struct {
		Path      string `json:"path"`
		Src       string `json:"src"`
		SourceMap string `json:"source_map"`
	}

	// Result is what a backend returns for a request it managed to run,
	// whether or not the compilation succeeded.
	Result struct {
		Files       []OutputFile
		Diagnostics []Diagnostic
	}
)

// Set replaces the values of name.
func (f Flags) Set(name string, values ...string) {
	f[name] = slices.Clone(values)
}

// Add appends value to name.
func (f Flags) Add(name, value string) {
	f[name] = append(f[name], value)
}

// Get returns the last value of name, which wins for single-valued flags.
func (f Flags) Get(name string) string {
	v := f[name]
	if len(v) == 0 {
		return ""
	}
	return v[len(v)-1]
}

// Clone returns a deep copy.
func (f Flags) Clone() Flags {
	out := make(Flags, len(f))
	for k, v := range f {
		out[k] = slices.Clone(v)
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (f Flags) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f))
	for k, v := range f {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flags) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Flags, len(raw))
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		var single string
		if err := json.Unmarshal(raw[k], &single); err == nil {
			out[k] = []string{single}
			continue
		}
		var list []string
		if err := json.Unmarshal(raw[k], &list); err != nil {
			return fmt.Errorf("flag %q: expected string or list of strings", k)
		}
		out[k] = list
	}
	*f = out
	return nil
}

// String renders the unit as name:count[:parent,parent].
func (u Unit) String() string {
	s := u.Name + ":" + strconv.Itoa(u.Count)
	if len(u.Parents) > 0 {
		s += ":" + strings.Join(u.Parents, ",")
	}
	return s
}

// IsEntry reports whether the unit has no parents.
func (u Unit) IsEntry() bool { return len(u.Parents) == 0 }

// ParseUnit parses a definition produced by Unit.String.
func ParseUnit(s string) (Unit, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return Unit{}, fmt.Errorf("%w: %q", ErrInvalidUnit, s)
	}
	count, err := strconv.Atoi(parts[1])
	if err != nil || count < 0 {
		return Unit{}, fmt.Errorf("%w: %q: bad fragment count", ErrInvalidUnit, s)
	}
	u := Unit{Name: parts[0], Count: count}
	if len(parts) == 3 && parts[2] != "" {
		u.Parents = strings.Split(parts[2], ",")
	}
	return u, nil
}

// ParseUnits parses every unit definition of a request.
func ParseUnits(defs []string) ([]Unit, error) {
	units := make([]Unit, 0, len(defs))
	for _, d := range defs {
		u, err := ParseUnit(d)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

// Wrappers returns the chunk_wrapper flag as a unit name to template map.
func (f Flags) Wrappers() map[string]string {
	out := make(map[string]string)
	for _, w := range f[FlagChunkWrapper] {
		name, tmpl, ok := strings.Cut(w, ":")
		if !ok {
			continue
		}
		out[name] = tmpl
	}
	return out
}

// Wrap substitutes body into the template's %s slot. Templates without a
// slot leave the body unwrapped.
func Wrap(tmpl, body string) string {
	before, after, ok := strings.Cut(tmpl, "%s")
	if !ok {
		return body
	}
	return before + body + after
}

// HasErrors reports whether any diagnostic is an error.
func (r *Result) HasErrors() bool {
	return slices.ContainsFunc(r.Diagnostics, func(d Diagnostic) bool { return d.Level == LevelError })
}
