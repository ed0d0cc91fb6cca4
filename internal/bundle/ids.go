// SPDX-License-Identifier: MPL-2.0

package bundle

// Allocator hands out build-unique ids for synthesized code. Ids start at 1
// and strictly increase. An Allocator belongs to one build and is not safe
// for concurrent use.
type Allocator struct {
	last int
}

// NewAllocator returns an allocator whose first id is 1.
func NewAllocator() *Allocator { return &Allocator{} }

// Next returns the next id.
func (a *Allocator) Next() int {
	a.last++
	return a.last
}
