// SPDX-License-Identifier: MPL-2.0

// Package dag provides directed acyclic graph operations for topological sorting
// and cycle detection. It is used by the chunk graph linearizer to order
// compilation units so that every unit follows all of its parent units.
package dag

import (
	"container/heap"
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle contains the nodes that could not be ordered. It includes every
		// node on a cycle and every node that (transitively) depends on one.
		Cycle []string
	}

	// Graph is a directed graph for topological sorting.
	// Nodes are identified by string keys. An edge from A to B means A must be
	// emitted before B.
	Graph struct {
		// adjacency maps each node to its outgoing neighbors (nodes that depend on it).
		adjacency map[string][]string
		// edges deduplicates repeated AddEdge calls.
		edges map[[2]string]bool
		// nodes tracks all nodes in insertion order.
		nodes []string
		// index maps a node to its insertion position.
		index map[string]int
	}

	// readyQueue is a min-heap of insertion positions.
	readyQueue []int
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		edges:     make(map[[2]string]bool),
		index:     make(map[string]int),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op
// and the node keeps its original insertion position.
func (g *Graph) AddNode(name string) {
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.nodes)
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to, meaning "from" must be emitted before "to".
// Both nodes are implicitly added if they don't exist. Repeated edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	key := [2]string{from, to}
	if g.edges[key] {
		return
	}
	g.edges[key] = true
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Has reports whether name was added to the graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalSort returns a valid ordering using Kahn's algorithm.
// Among all nodes that are ready at a given step, the one added to the graph
// first is emitted first, so the result is deterministic and stays as close
// to insertion order as the edges allow.
// Returns CycleError if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make([]int, len(g.nodes))
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[g.index[neighbor]]++
		}
	}

	ready := &readyQueue{}
	for i := range g.nodes {
		if inDegree[i] == 0 {
			*ready = append(*ready, i)
		}
	}
	heap.Init(ready)

	result := make([]string, 0, len(g.nodes))
	for ready.Len() > 0 {
		node := g.nodes[heap.Pop(ready).(int)]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			i := g.index[neighbor]
			inDegree[i]--
			if inDegree[i] == 0 {
				heap.Push(ready, i)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var stuck []string
		for i, node := range g.nodes {
			if inDegree[i] > 0 {
				stuck = append(stuck, node)
			}
		}
		return nil, &CycleError{Cycle: stuck}
	}

	return result, nil
}

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) { *q = append(*q, x.(int)) }

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
