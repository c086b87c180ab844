// Package dag assembles tasks and typed precedence edges into a directed
// graph, validates it, and produces the topological order the scheduling
// passes walk. Edges point from predecessor to successor.
package dag

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCycle is returned when the dependency graph contains a cycle.
var ErrCycle = errors.New("cyclic dependency")

// ErrUnknownTask is returned when an edge references a task id that is not
// part of the task set.
var ErrUnknownTask = errors.New("unknown task reference")

// ErrDuplicateNode is returned when the same task id is supplied twice.
var ErrDuplicateNode = errors.New("duplicate task")

// ErrDuplicateEdge is returned when the same (from, to, relation) edge is
// supplied twice.
var ErrDuplicateEdge = errors.New("duplicate dependency")

// CycleError reports one offending cycle. The path starts and ends on the
// same task id.
type CycleError struct {
	Path []string
}

// Error returns the cycle rendered as an arrow chain.
func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return ErrCycle.Error()
	}
	return ErrCycle.Error() + ": " + strings.Join(e.Path, " → ")
}

// Unwrap lets errors.Is match ErrCycle.
func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// Edge is a typed precedence constraint from a predecessor to a successor.
// Lag is expressed in working days; a negative lag is a lead.
type Edge struct {
	From     string
	To       string
	Relation Relation
	Lag      float64
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -%s-> %s", e.From, e.Relation.Short(), e.To)
}

// Graph is a validated, acyclic dependency graph. It is immutable once
// Build returns and safe for concurrent readers.
type Graph struct {
	nodes map[string]bool
	// out maps a task to the edges leaving it (its successors).
	out map[string][]Edge
	// in maps a task to the edges entering it (its predecessors).
	in    map[string][]Edge
	order []string
}

// Build indexes nodes and edges, validates every reference, and verifies
// the graph is acyclic. On any error no graph is returned.
func Build(nodes []string, edges []Edge) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]bool, len(nodes)),
		out:   make(map[string][]Edge, len(nodes)),
		in:    make(map[string][]Edge, len(nodes)),
	}
	for _, id := range nodes {
		if g.nodes[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, id)
		}
		g.nodes[id] = true
	}

	type edgeKey struct {
		from, to string
		rel      Relation
	}
	seen := make(map[edgeKey]bool, len(edges))
	for _, e := range edges {
		if !g.nodes[e.From] {
			return nil, fmt.Errorf("%w: %q (predecessor of %q)", ErrUnknownTask, e.From, e.To)
		}
		if !g.nodes[e.To] {
			return nil, fmt.Errorf("%w: %q (successor of %q)", ErrUnknownTask, e.To, e.From)
		}
		if !e.Relation.Valid() {
			return nil, fmt.Errorf("%w: %d on %s → %s", ErrUnknownRelation, int(e.Relation), e.From, e.To)
		}
		if e.From == e.To {
			return nil, &CycleError{Path: []string{e.From, e.To}}
		}
		key := edgeKey{e.From, e.To, e.Relation}
		if seen[key] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEdge, e)
		}
		seen[key] = true
		g.out[e.From] = append(g.out[e.From], e)
		g.in[e.To] = append(g.in[e.To], e)
	}

	// Stable edge order keeps both passes deterministic regardless of the
	// order records arrived in.
	for id := range g.out {
		sortEdges(g.out[id], func(e Edge) string { return e.To })
	}
	for id := range g.in {
		sortEdges(g.in[id], func(e Edge) string { return e.From })
	}

	order, err := g.TopologicalSort()
	if err != nil {
		if cycle := g.DetectCycle(); cycle != nil {
			return nil, &CycleError{Path: cycle}
		}
		return nil, err
	}
	g.order = order
	return g, nil
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns all task ids, sorted alphabetically.
func (g *Graph) Nodes() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Order returns a copy of the topological order computed by Build.
func (g *Graph) Order() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Successors returns the edges leaving id.
func (g *Graph) Successors(id string) []Edge {
	return g.out[id]
}

// Predecessors returns the edges entering id.
func (g *Graph) Predecessors(id string) []Edge {
	return g.in[id]
}

// Roots returns tasks with no predecessors, sorted.
func (g *Graph) Roots() []string {
	var ids []string
	for _, id := range g.Nodes() {
		if len(g.in[id]) == 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Leaves returns tasks with no successors, sorted.
func (g *Graph) Leaves() []string {
	var ids []string
	for _, id := range g.Nodes() {
		if len(g.out[id]) == 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// TopologicalSort orders tasks so every predecessor precedes its
// successors, using Kahn's algorithm. Among tasks released at the same
// time the alphabetically smaller id comes first. Returns ErrCycle if any
// task keeps a residual in-degree.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = len(g.in[id])
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	sorted := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		var freed []string
		for _, e := range g.out[id] {
			inDegree[e.To]--
			if inDegree[e.To] == 0 {
				freed = append(freed, e.To)
			}
		}
		sort.Strings(freed)
		queue = append(queue, freed...)
	}

	if len(sorted) != len(g.nodes) {
		return nil, fmt.Errorf("%w: %d of %d tasks could be ordered", ErrCycle, len(sorted), len(g.nodes))
	}
	return sorted, nil
}

// DetectCycle returns one cycle as a path that starts and ends on the same
// id, or nil if the graph is acyclic. It uses DFS with white/gray/black
// colouring; a gray-to-gray edge is a back edge.
func (g *Graph) DetectCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.nodes))
	parent := make(map[string]string, len(g.nodes))

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, e := range g.out[node] {
			next := e.To
			switch color[next] {
			case gray:
				cycle := []string{next, node}
				for cur := node; cur != next; {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			case white:
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, id := range g.Nodes() {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func sortEdges(edges []Edge, key func(Edge) string) {
	sort.SliceStable(edges, func(i, j int) bool {
		ki, kj := key(edges[i]), key(edges[j])
		if ki != kj {
			return ki < kj
		}
		return edges[i].Relation < edges[j].Relation
	})
}
