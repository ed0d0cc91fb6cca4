// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/chunklink/chunklink/internal/compiler"
	"github.com/chunklink/chunklink/internal/dag"
	"github.com/chunklink/chunklink/pkg/chunkgraph"
)

var (
	// ErrUnsatisfiableGraph is the sentinel error wrapped by UnsatisfiableGraphError.
	ErrUnsatisfiableGraph = errors.New("unsatisfiable chunk graph")
	// ErrDuplicateSource is the sentinel error wrapped by DuplicateSourceError.
	ErrDuplicateSource = errors.New("duplicate source")
	// ErrInvariant is the sentinel error wrapped by InvariantError.
	ErrInvariant = errors.New("linker invariant violated")
)

type (
	// UnitInput is one chunk's contribution to linearization.
	UnitInput struct {
		Name      string
		Chunk     chunkgraph.ChunkID
		Entry     bool
		Parents   []string
		Fragments []Fragment
	}

	// Linearization is the parent-ordered unit list and the flat source list
	// of one build. The root unit is always first.
	Linearization struct {
		Units   []compiler.Unit
		Sources []Fragment
		// Chunks maps every unit but the root to its chunk.
		Chunks map[string]chunkgraph.ChunkID
		// Entries holds the names of entry units.
		Entries map[string]bool
		// Duplicates lists one error per source path owned more than once,
		// in the order the paths were first seen.
		Duplicates []*DuplicateSourceError
	}

	// UnsatisfiableGraphError reports parent references that can never be
	// satisfied: parents that are not units of the build, or a cycle.
	UnsatisfiableGraphError struct {
		// Missing maps a unit to the parents it names that do not exist.
		Missing map[string][]string
		// Cycle is set when the units form a parent cycle.
		Cycle *dag.CycleError
	}

	// DuplicateSourceError reports a source path collected into more than
	// one place.
	DuplicateSourceError struct {
		Path string
		// Units lists every owning unit, one entry per occurrence.
		Units []string
	}

	// InvariantError reports an internal inconsistency. It indicates a bug,
	// not bad input.
	InvariantError struct {
		Detail string
	}
)

// Error implements the error interface.
func (e *UnsatisfiableGraphError) Error() string {
	if e.Cycle != nil {
		return fmt.Sprintf("unsatisfiable chunk graph: %v", e.Cycle)
	}
	parts := make([]string, 0, len(e.Missing))
	for _, unit := range slices.Sorted(maps.Keys(e.Missing)) {
		parts = append(parts, fmt.Sprintf("%s needs %s", unit, strings.Join(e.Missing[unit], ", ")))
	}
	return "unsatisfiable chunk graph: missing parent units (" + strings.Join(parts, "; ") + ")"
}

// Unwrap returns ErrUnsatisfiableGraph and the cycle, if any.
func (e *UnsatisfiableGraphError) Unwrap() []error {
	if e.Cycle != nil {
		return []error{ErrUnsatisfiableGraph, e.Cycle}
	}
	return []error{ErrUnsatisfiableGraph}
}

// Error implements the error interface.
func (e *DuplicateSourceError) Error() string {
	return fmt.Sprintf("source %q is included more than once (units: %s)", e.Path, strings.Join(e.Units, ", "))
}

// Unwrap returns ErrDuplicateSource for errors.Is() compatibility.
func (e *DuplicateSourceError) Unwrap() error { return ErrDuplicateSource }

// Error implements the error interface.
func (e *InvariantError) Error() string { return "linker invariant violated: " + e.Detail }

// Unwrap returns ErrInvariant for errors.Is() compatibility.
func (e *InvariantError) Unwrap() error { return ErrInvariant }

// Linearize orders the root unit and every input so each unit follows all of
// its parents. Entry units keep their input order; among units that become
// ready at the same time the one listed first wins. Missing parents and
// cycles fail the whole linearization.
func Linearize(rootFragments []Fragment, inputs []UnitInput) (*Linearization, error) {
	byName := make(map[string]*UnitInput, len(inputs))
	for i := range inputs {
		in := &inputs[i]
		if in.Name == RootUnitName {
			return nil, &InvariantError{Detail: fmt.Sprintf("chunk %d uses the reserved unit name %q", in.Chunk, RootUnitName)}
		}
		if prev, dup := byName[in.Name]; dup {
			return nil, &InvariantError{Detail: fmt.Sprintf("chunks %d and %d share unit name %q", prev.Chunk, in.Chunk, in.Name)}
		}
		byName[in.Name] = in
	}

	g := dag.New()
	g.AddNode(RootUnitName)
	for _, in := range inputs {
		if in.Entry {
			g.AddNode(in.Name)
		}
	}
	for _, in := range inputs {
		if !in.Entry {
			g.AddNode(in.Name)
		}
	}

	missing := make(map[string][]string)
	for _, in := range inputs {
		for _, p := range in.Parents {
			if p != RootUnitName && byName[p] == nil {
				missing[in.Name] = append(missing[in.Name], p)
				continue
			}
			g.AddEdge(p, in.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &UnsatisfiableGraphError{Missing: missing}
	}

	order, err := g.TopologicalSort()
	if err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			return nil, &UnsatisfiableGraphError{Cycle: cycle}
		}
		return nil, err
	}

	lin := &Linearization{
		Chunks:  make(map[string]chunkgraph.ChunkID, len(inputs)),
		Entries: make(map[string]bool),
	}
	owners := make(map[string]*DuplicateSourceError)
	var seenOrder []string
	add := func(unit string, fragments []Fragment) {
		for _, f := range fragments {
			if d, seen := owners[f.Path]; seen {
				d.Units = append(d.Units, unit)
			} else {
				owners[f.Path] = &DuplicateSourceError{Path: f.Path, Units: []string{unit}}
				seenOrder = append(seenOrder, f.Path)
			}
		}
		lin.Sources = append(lin.Sources, fragments...)
	}

	for _, name := range order {
		if name == RootUnitName {
			lin.Units = append(lin.Units, compiler.Unit{Name: RootUnitName, Count: len(rootFragments)})
			add(RootUnitName, rootFragments)
			continue
		}
		in := byName[name]
		lin.Units = append(lin.Units, compiler.Unit{Name: in.Name, Count: len(in.Fragments), Parents: dedupe(in.Parents)})
		lin.Chunks[in.Name] = in.Chunk
		if in.Entry {
			lin.Entries[in.Name] = true
		}
		add(in.Name, in.Fragments)
	}

	for _, p := range seenOrder {
		if d := owners[p]; len(d.Units) > 1 {
			lin.Duplicates = append(lin.Duplicates, d)
		}
	}
	return lin, nil
}

// Validate re-checks the fragment accounting the compiler relies on: the
// root unit comes first with rootCount fragments, and the unit counts add up
// to the source list.
func (l *Linearization) Validate(rootCount int) error {
	if len(l.Units) == 0 || l.Units[0].Name != RootUnitName {
		return &InvariantError{Detail: "root unit is not first"}
	}
	if l.Units[0].Count != rootCount {
		return &InvariantError{Detail: fmt.Sprintf("root unit declares %d fragments, expected %d", l.Units[0].Count, rootCount)}
	}
	total := 0
	for _, u := range l.Units {
		total += u.Count
	}
	if total != len(l.Sources) {
		return &InvariantError{Detail: fmt.Sprintf("units declare %d fragments, source list has %d", total, len(l.Sources))}
	}
	return nil
}

// UnitDefinitions renders every unit as name:count[:parents].
func (l *Linearization) UnitDefinitions() []string {
	defs := make([]string, 0, len(l.Units))
	for _, u := range l.Units {
		defs = append(defs, u.String())
	}
	return defs
}

// Wrappers returns one chunk_wrapper flag value per unit.
func (l *Linearization) Wrappers() []string {
	out := make([]string, 0, len(l.Units))
	for _, u := range l.Units {
		out = append(out, WrapperFor(u, l.Chunks[u.Name], l.Entries[u.Name]))
	}
	return out
}

// CompilerSources converts the flat source list to the compiler's wire form.
func (l *Linearization) CompilerSources() []compiler.Source {
	out := make([]compiler.Source, 0, len(l.Sources))
	for _, f := range l.Sources {
		out = append(out, f.Source())
	}
	return out
}

func dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
