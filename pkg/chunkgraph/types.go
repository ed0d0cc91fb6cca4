// SPDX-License-Identifier: MPL-2.0

package chunkgraph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// ModuleKindDefault modules are emitted as-is.
	ModuleKindDefault ModuleKind = "default"
	// ModuleKindNamespace modules are registered on the shared namespace and
	// have their dependency references rewritten.
	ModuleKindNamespace ModuleKind = "namespace"

	// DependencyStatic is a synchronous import of a module already loaded.
	DependencyStatic DependencyKind = "static"
	// DependencyDynamic is an import realized by loading chunks at run time.
	DependencyDynamic DependencyKind = "dynamic"
	// DependencyDeclaration is import/export syntax with no runtime effect
	// once modules share a namespace.
	DependencyDeclaration DependencyKind = "declaration"
)

var (
	// ErrInvalidModuleKind is the sentinel error wrapped by InvalidModuleKindError.
	ErrInvalidModuleKind = errors.New("invalid module kind")
	// ErrInvalidDependencyKind is the sentinel error wrapped by InvalidDependencyKindError.
	ErrInvalidDependencyKind = errors.New("invalid dependency kind")
	// ErrInvalidGroupID is the sentinel error wrapped by InvalidGroupIDError.
	ErrInvalidGroupID = errors.New("invalid chunk group id")
	// ErrInvalidGraph is the sentinel error wrapped by InvalidGraphError.
	ErrInvalidGraph = errors.New("invalid chunk graph")
)

type (
	// ChunkID is the bundler's internal numeric chunk id.
	ChunkID int

	// GroupID identifies a chunk group (an entrypoint or a lazy split point).
	GroupID string

	// ModuleID identifies a module inside the shared namespace.
	ModuleID string

	// ModuleKind selects how a module body is rendered into a fragment.
	ModuleKind string

	// DependencyKind classifies a dependency reference inside a module body.
	DependencyKind string

	// InvalidModuleKindError is returned when a ModuleKind is not recognized.
	InvalidModuleKindError struct {
		Value ModuleKind
	}

	// InvalidDependencyKindError is returned when a DependencyKind is not recognized.
	InvalidDependencyKindError struct {
		Value DependencyKind
	}

	// InvalidGroupIDError is returned when a GroupID is empty or whitespace-only.
	InvalidGroupIDError struct {
		Value GroupID
	}

	// InvalidGraphError collects every structural problem found by Resolve.
	InvalidGraphError struct {
		FieldErrors []error
	}

	// Output holds the bundler's output filename settings.
	Output struct {
		Filename      string `json:"filename"`
		ChunkFilename string `json:"chunk_filename"`
		PublicPath    string `json:"public_path"`
		Hash          string `json:"hash"`
	}

	// Dependency is one reference inside a module body. Start and End are
	// byte offsets into the body; the range is what gets rewritten.
	Dependency struct {
		Start  int            `json:"start"`
		End    int            `json:"end"`
		Kind   DependencyKind `json:"kind"`
		Target ModuleID       `json:"target"`
		// Chunks lists the chunks a dynamic dependency has to load first.
		Chunks []ChunkID `json:"chunks"`
	}

	// Module is one module of a chunk.
	Module struct {
		ID            ModuleID     `json:"id"`
		Path          string       `json:"path"`
		Source        string       `json:"source"`
		File          string       `json:"file"`
		SourceMap     string       `json:"source_map"`
		SourceMapFile string       `json:"source_map_file"`
		Kind          ModuleKind   `json:"kind"`
		Dependencies  []Dependency `json:"dependencies"`
	}

	// Chunk is a named, ordered group of modules destined for output files.
	Chunk struct {
		ID      ChunkID   `json:"id"`
		Name    string    `json:"name"`
		Hash    string    `json:"hash"`
		Entry   bool      `json:"entry"`
		Files   []string  `json:"files"`
		Groups  []GroupID `json:"groups"`
		Modules []Module  `json:"modules"`
	}

	// Group is a chunk group: the chunks loaded together for one entrypoint
	// or one lazy split point, plus its position in the group tree.
	Group struct {
		ID       GroupID   `json:"id"`
		Name     string    `json:"name"`
		Chunks   []ChunkID `json:"chunks"`
		Parents  []GroupID `json:"parents"`
		Children []GroupID `json:"children"`
	}
)

// String returns the decimal chunk id.
func (id ChunkID) String() string { return strconv.Itoa(int(id)) }

// String returns the string representation of the GroupID.
func (g GroupID) String() string { return string(g) }

// IsValid returns whether the GroupID is non-empty.
func (g GroupID) IsValid() (bool, []error) {
	if strings.TrimSpace(string(g)) == "" {
		return false, []error{&InvalidGroupIDError{Value: g}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidGroupIDError) Error() string {
	return fmt.Sprintf("invalid chunk group id %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidGroupID for errors.Is() compatibility.
func (e *InvalidGroupIDError) Unwrap() error { return ErrInvalidGroupID }

// String returns the string representation of the ModuleKind.
func (k ModuleKind) String() string { return string(k) }

// IsValid returns whether the ModuleKind is recognized. The zero value means
// ModuleKindDefault and is valid.
func (k ModuleKind) IsValid() (bool, []error) {
	switch k {
	case "", ModuleKindDefault, ModuleKindNamespace:
		return true, nil
	default:
		return false, []error{&InvalidModuleKindError{Value: k}}
	}
}

// Error implements the error interface.
func (e *InvalidModuleKindError) Error() string {
	return fmt.Sprintf("invalid module kind %q (valid: %s, %s)", e.Value, ModuleKindDefault, ModuleKindNamespace)
}

// Unwrap returns ErrInvalidModuleKind for errors.Is() compatibility.
func (e *InvalidModuleKindError) Unwrap() error { return ErrInvalidModuleKind }

// String returns the string representation of the DependencyKind.
func (k DependencyKind) String() string { return string(k) }

// IsValid returns whether the DependencyKind is recognized.
func (k DependencyKind) IsValid() (bool, []error) {
	switch k {
	case DependencyStatic, DependencyDynamic, DependencyDeclaration:
		return true, nil
	default:
		return false, []error{&InvalidDependencyKindError{Value: k}}
	}
}

// Error implements the error interface.
func (e *InvalidDependencyKindError) Error() string {
	return fmt.Sprintf("invalid dependency kind %q (valid: %s, %s, %s)",
		e.Value, DependencyStatic, DependencyDynamic, DependencyDeclaration)
}

// Unwrap returns ErrInvalidDependencyKind for errors.Is() compatibility.
func (e *InvalidDependencyKindError) Unwrap() error { return ErrInvalidDependencyKind }

// Error implements the error interface.
func (e *InvalidGraphError) Error() string {
	if len(e.FieldErrors) == 1 {
		return fmt.Sprintf("invalid chunk graph: %v", e.FieldErrors[0])
	}
	lines := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		lines = append(lines, fe.Error())
	}
	return fmt.Sprintf("invalid chunk graph: %d problem(s):\n  %s", len(e.FieldErrors), strings.Join(lines, "\n  "))
}

// Unwrap returns ErrInvalidGraph for errors.Is() compatibility.
func (e *InvalidGraphError) Unwrap() error { return ErrInvalidGraph }

// EffectiveKind returns the module kind with the zero value mapped to default.
func (m *Module) EffectiveKind() ModuleKind {
	if m.Kind == "" {
		return ModuleKindDefault
	}
	return m.Kind
}

// SourcePath returns the identifier used for the module's fragment: the
// declared path, else the file, else the module id.
func (m *Module) SourcePath() string {
	switch {
	case m.Path != "":
		return m.Path
	case m.File != "":
		return m.File
	default:
		return string(m.ID)
	}
}
