// SPDX-License-Identifier: MPL-2.0

package chunkgraph

import (
	"fmt"
	"path"
	"slices"
	"strings"
)

// DefaultChunkFilename is used for lazily loaded chunks when the manifest
// does not declare output.chunk_filename.
const DefaultChunkFilename = "[id].js"

// Graph is the whole chunk graph of one build.
type Graph struct {
	Output Output   `json:"output"`
	Chunks []*Chunk `json:"chunks"`
	Groups []*Group `json:"groups"`

	chunkIndex map[ChunkID]*Chunk
	groupIndex map[GroupID]*Group
	// chunkGroups maps a chunk to every group that contains it, including
	// groups that list the chunk without the chunk listing the group back.
	chunkGroups map[ChunkID][]*Group
}

// Resolve validates the graph's cross references and builds the lookup
// indexes. It must be called before any query method. All problems are
// collected into one *InvalidGraphError.
func (g *Graph) Resolve() error {
	g.chunkIndex = make(map[ChunkID]*Chunk, len(g.Chunks))
	g.groupIndex = make(map[GroupID]*Group, len(g.Groups))
	g.chunkGroups = make(map[ChunkID][]*Group, len(g.Chunks))

	var errs []error

	for _, c := range g.Chunks {
		if _, dup := g.chunkIndex[c.ID]; dup {
			errs = append(errs, fmt.Errorf("chunk %d declared more than once", c.ID))
			continue
		}
		g.chunkIndex[c.ID] = c
	}
	for _, grp := range g.Groups {
		if ok, fieldErrs := grp.ID.IsValid(); !ok {
			errs = append(errs, fieldErrs...)
			continue
		}
		if _, dup := g.groupIndex[grp.ID]; dup {
			errs = append(errs, fmt.Errorf("chunk group %q declared more than once", grp.ID))
			continue
		}
		g.groupIndex[grp.ID] = grp
	}

	for _, grp := range g.Groups {
		for _, id := range grp.Chunks {
			if _, ok := g.chunkIndex[id]; !ok {
				errs = append(errs, fmt.Errorf("chunk group %q references unknown chunk %d", grp.ID, id))
				continue
			}
			g.linkChunkGroup(id, grp)
		}
		for _, ref := range slices.Concat(grp.Parents, grp.Children) {
			if _, ok := g.groupIndex[ref]; !ok {
				errs = append(errs, fmt.Errorf("chunk group %q references unknown group %q", grp.ID, ref))
			}
		}
	}

	seenFiles := make(map[string]ChunkID)
	for _, c := range g.Chunks {
		for _, ref := range c.Groups {
			grp, ok := g.groupIndex[ref]
			if !ok {
				errs = append(errs, fmt.Errorf("chunk %d references unknown group %q", c.ID, ref))
				continue
			}
			g.linkChunkGroup(c.ID, grp)
		}
		for _, f := range c.Files {
			if owner, dup := seenFiles[f]; dup && owner != c.ID {
				errs = append(errs, fmt.Errorf("output file %q declared by chunks %d and %d", f, owner, c.ID))
				continue
			}
			seenFiles[f] = c.ID
		}
		for i := range c.Modules {
			errs = append(errs, c.Modules[i].validate(c.ID, g.chunkIndex)...)
		}
	}

	if len(errs) > 0 {
		return &InvalidGraphError{FieldErrors: errs}
	}
	return nil
}

func (g *Graph) linkChunkGroup(id ChunkID, grp *Group) {
	if slices.Contains(g.chunkGroups[id], grp) {
		return
	}
	g.chunkGroups[id] = append(g.chunkGroups[id], grp)
}

func (m *Module) validate(owner ChunkID, chunks map[ChunkID]*Chunk) []error {
	var errs []error
	if ok, fieldErrs := m.Kind.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	for _, dep := range m.Dependencies {
		if ok, fieldErrs := dep.Kind.IsValid(); !ok {
			errs = append(errs, fieldErrs...)
		}
		for _, id := range dep.Chunks {
			if _, known := chunks[id]; !known {
				errs = append(errs, fmt.Errorf("module %q in chunk %d loads unknown chunk %d", m.ID, owner, id))
			}
		}
	}
	return errs
}

// Chunk returns the chunk with the given id.
func (g *Graph) Chunk(id ChunkID) (*Chunk, bool) {
	c, ok := g.chunkIndex[id]
	return c, ok
}

// Group returns the chunk group with the given id.
func (g *Graph) Group(id GroupID) (*Group, bool) {
	grp, ok := g.groupIndex[id]
	return grp, ok
}

// GroupsOf returns every group containing c, in declaration order.
func (g *Graph) GroupsOf(c *Chunk) []*Group {
	return g.chunkGroups[c.ID]
}

// HasNonEntryChunks reports whether any chunk is loaded lazily.
func (g *Graph) HasNonEntryChunks() bool {
	return slices.ContainsFunc(g.Chunks, func(c *Chunk) bool { return !c.Entry })
}

// ParentUnitChunks returns the chunks of every parent group of every group
// containing c, de-duplicated by unit name in encounter order. Entry chunks
// have no parent chunks; they hang off the synthetic root.
func (g *Graph) ParentUnitChunks(c *Chunk) []*Chunk {
	if c.Entry {
		return nil
	}
	var parents []*Chunk
	seen := make(map[string]bool)
	for _, grp := range g.GroupsOf(c) {
		for _, parentID := range grp.Parents {
			parent, ok := g.groupIndex[parentID]
			if !ok {
				continue
			}
			for _, id := range parent.Chunks {
				pc := g.chunkIndex[id]
				if pc == nil || pc.ID == c.ID {
					continue
				}
				name := pc.UnitName()
				if seen[name] {
					continue
				}
				seen[name] = true
				parents = append(parents, pc)
			}
		}
	}
	return parents
}

// AsyncChunks returns the chunks reachable from c only through lazy edges:
// every chunk of every descendant group of c's groups, minus the chunks that
// are always loaded together with c. The result is sorted by chunk id.
func (g *Graph) AsyncChunks(c *Chunk) []*Chunk {
	groups := g.GroupsOf(c)
	if len(groups) == 0 {
		return nil
	}

	// Chunks present in every group of c are loaded before any lazy child.
	initial := make(map[ChunkID]bool)
	for _, id := range groups[0].Chunks {
		initial[id] = true
	}
	for _, grp := range groups[1:] {
		for id := range initial {
			if !slices.Contains(grp.Chunks, id) {
				delete(initial, id)
			}
		}
	}
	initial[c.ID] = true

	visited := make(map[GroupID]bool)
	queue := make([]*Group, 0, len(groups))
	for _, grp := range groups {
		visited[grp.ID] = true
		queue = append(queue, grp)
	}

	found := make(map[ChunkID]bool)
	for len(queue) > 0 {
		grp := queue[0]
		queue = queue[1:]
		for _, childID := range grp.Children {
			if visited[childID] {
				continue
			}
			visited[childID] = true
			child, ok := g.groupIndex[childID]
			if !ok {
				continue
			}
			for _, id := range child.Chunks {
				if !initial[id] {
					found[id] = true
				}
			}
			queue = append(queue, child)
		}
	}

	result := make([]*Chunk, 0, len(found))
	for id := range found {
		if ch, ok := g.chunkIndex[id]; ok {
			result = append(result, ch)
		}
	}
	slices.SortFunc(result, func(a, b *Chunk) int { return int(a.ID) - int(b.ID) })
	return result
}

// jsExtensions are the output file extensions that hold JavaScript.
var jsExtensions = []string{".js", ".mjs", ".cjs"}

// IsJSFile reports whether name has a JavaScript extension (.js, .mjs or
// .cjs, in any case).
func IsJSFile(name string) bool {
	ext := path.Ext(name)
	for _, e := range jsExtensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// JSFile returns the chunk's first declared JavaScript output file.
func (c *Chunk) JSFile() (string, bool) {
	for _, f := range c.Files {
		if IsJSFile(f) {
			return f, true
		}
	}
	return "", false
}

// UnitName is the compilation unit name for the chunk: its JavaScript output
// file without the extension, or chunk-<id> when it has none. Characters the
// compiler uses as separators in unit definitions are replaced.
func (c *Chunk) UnitName() string {
	f, ok := c.JSFile()
	if !ok {
		return fmt.Sprintf("chunk-%d", c.ID)
	}
	name := strings.TrimSuffix(f, path.Ext(f))
	return strings.NewReplacer(":", "_", ",", "_").Replace(name)
}

// DisplayName returns the chunk name, falling back to its id.
func (c *Chunk) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID.String()
}

// ChunkFilenameTemplate returns output.chunk_filename or its default.
func (o Output) ChunkFilenameTemplate() string {
	if o.ChunkFilename != "" {
		return o.ChunkFilename
	}
	return DefaultChunkFilename
}
