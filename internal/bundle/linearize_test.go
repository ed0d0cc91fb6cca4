// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunklink/chunklink/internal/dag"
)

func frags(paths ...string) []Fragment {
	out := make([]Fragment, 0, len(paths))
	for _, p := range paths {
		out = append(out, Fragment{Path: p, Text: "/* " + p + " */"})
	}
	return out
}

func root(n int) []Fragment {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("root-%d.js", i)
	}
	return frags(paths...)
}

func TestLinearize_SingleEntry(t *testing.T) {
	t.Parallel()
	lin, err := Linearize(root(2), []UnitInput{
		{Name: "main", Chunk: 0, Entry: true, Parents: []string{RootUnitName}, Fragments: frags("main.js")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"required-base:2", "main:1:required-base"}, lin.UnitDefinitions())
	assert.NoError(t, lin.Validate(2))
}

// Non-entry units listed before their parents still come after them.
func TestLinearize_ParentsFirst(t *testing.T) {
	t.Parallel()
	inputs := []UnitInput{
		{Name: "grandchild", Chunk: 3, Parents: []string{"child"}, Fragments: frags("g.js")},
		{Name: "child", Chunk: 2, Parents: []string{"main", "other"}, Fragments: frags("c.js")},
		{Name: "main", Chunk: 0, Entry: true, Parents: []string{RootUnitName}, Fragments: frags("m.js")},
		{Name: "other", Chunk: 1, Entry: true, Parents: []string{RootUnitName}, Fragments: frags("o.js")},
		{Name: "empty", Chunk: 4, Parents: []string{"main"}},
	}
	lin, err := Linearize(root(3), inputs)
	require.NoError(t, err)

	var names []string
	pos := make(map[string]int)
	for i, u := range lin.Units {
		names = append(names, u.Name)
		pos[u.Name] = i
	}
	assert.Equal(t, []string{RootUnitName, "main", "other", "child", "grandchild", "empty"}, names)
	for _, u := range lin.Units {
		for _, p := range u.Parents {
			assert.Less(t, pos[p], pos[u.Name], "%s placed before parent %s", u.Name, p)
		}
	}
	assert.Zero(t, lin.Units[pos["empty"]].Count, "zero-fragment units are still emitted")
	assert.NoError(t, lin.Validate(3))

	assert.Equal(t, 3, int(lin.Chunks["grandchild"]))
	assert.True(t, lin.Entries["other"])
	assert.False(t, lin.Entries["child"])

	var paths []string
	for _, s := range lin.Sources[3:] {
		paths = append(paths, s.Path)
	}
	assert.Equal(t, []string{"m.js", "o.js", "c.js", "g.js"}, paths, "sources follow unit order")
}

func TestLinearize_MissingParent(t *testing.T) {
	t.Parallel()
	lin, err := Linearize(root(2), []UnitInput{
		{Name: "main", Entry: true, Parents: []string{RootUnitName}},
		{Name: "b", Chunk: 1, Parents: []string{"c"}},
	})
	assert.Nil(t, lin, "no partial output on failure")

	var unsat *UnsatisfiableGraphError
	require.ErrorAs(t, err, &unsat)
	assert.ErrorIs(t, err, ErrUnsatisfiableGraph)
	assert.Equal(t, []string{"c"}, unsat.Missing["b"])
}

func TestLinearize_Cycle(t *testing.T) {
	t.Parallel()
	lin, err := Linearize(root(3), []UnitInput{
		{Name: "main", Entry: true, Parents: []string{RootUnitName}},
		{Name: "a", Chunk: 1, Parents: []string{"b"}},
		{Name: "b", Chunk: 2, Parents: []string{"a"}},
	})
	assert.Nil(t, lin, "no partial output on failure")
	assert.ErrorIs(t, err, ErrUnsatisfiableGraph)

	var cycle *dag.CycleError
	assert.ErrorAs(t, err, &cycle)
}

func TestLinearize_Duplicates(t *testing.T) {
	t.Parallel()
	lin, err := Linearize(root(2), []UnitInput{
		{Name: "a", Entry: true, Parents: []string{RootUnitName}, Fragments: frags("shared.js", "a.js", "twice.js")},
		{Name: "b", Entry: true, Parents: []string{RootUnitName}, Fragments: frags("shared.js", "b.js")},
		{Name: "c", Entry: true, Parents: []string{RootUnitName}, Fragments: frags("shared.js", "twice.js")},
	})
	require.NoError(t, err, "duplicates are reported, not fatal to linearization")
	require.Len(t, lin.Duplicates, 2, "one error per duplicated path")

	first := lin.Duplicates[0]
	assert.Equal(t, "shared.js", first.Path)
	assert.Equal(t, []string{"a", "b", "c"}, first.Units)
	assert.Equal(t, "twice.js", lin.Duplicates[1].Path)
	assert.ErrorIs(t, first, ErrDuplicateSource)
}

func TestLinearize_NameCollisions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		inputs []UnitInput
	}{
		{name: "shared name", inputs: []UnitInput{{Name: "x", Entry: true}, {Name: "x", Chunk: 1, Entry: true}}},
		{name: "reserved name", inputs: []UnitInput{{Name: RootUnitName, Entry: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Linearize(root(2), tt.inputs)
			assert.ErrorIs(t, err, ErrInvariant)
		})
	}
}

func TestLinearization_Validate(t *testing.T) {
	t.Parallel()
	lin, err := Linearize(root(2), []UnitInput{
		{Name: "main", Entry: true, Parents: []string{RootUnitName}, Fragments: frags("m.js")},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, lin.Validate(3), ErrInvariant, "root count mismatch")

	lin.Sources = lin.Sources[:2]
	assert.ErrorIs(t, lin.Validate(2), ErrInvariant, "source count mismatch")

	lin.Units = lin.Units[1:]
	assert.ErrorIs(t, lin.Validate(2), ErrInvariant, "root not first")
}
