package graph

import (
	"calltree/internal/engine/extract"
	"calltree/internal/engine/resolve"
	"calltree/internal/shared/observability"
)

// Node is one function in the call graph. Nodes are keyed by name; when a
// file defines the same name twice (methods of different scopes) the
// occurrences merge into one logical node and Lines records every
// definition line. That merge is a documented limitation of name-only
// identity, not something the builder tries to repair.
type Node struct {
	Name      string
	Params    string
	StartLine int
	EndLine   int
	Lines     []int
	Callees   []string // distinct, first-occurrence order
	InDegree  int      // calls from other functions; self-calls excluded
	Malformed bool
}

type Edge struct {
	Caller string
	Callee string
}

type Graph struct {
	nodes map[string]*Node
	order []string // file order by first definition
}

// Build assembles the directed graph from extracted definitions and resolved
// call sites. Edge multiplicity is collapsed: repeated calls from the same
// caller contribute one edge.
func Build(fns []extract.Function, sites []resolve.CallSite) *Graph {
	g := &Graph{nodes: make(map[string]*Node, len(fns))}

	for _, fn := range fns {
		node, ok := g.nodes[fn.Name]
		if !ok {
			node = &Node{
				Name:      fn.Name,
				Params:    fn.Params,
				StartLine: fn.StartLine,
				EndLine:   fn.EndLine,
			}
			g.nodes[fn.Name] = node
			g.order = append(g.order, fn.Name)
		}
		node.Lines = append(node.Lines, fn.StartLine)
		if fn.Malformed {
			node.Malformed = true
		}
		if fn.EndLine > node.EndLine {
			node.EndLine = fn.EndLine
		}
	}

	seen := make(map[Edge]bool)
	for _, site := range sites {
		caller, ok := g.nodes[site.Caller]
		if !ok {
			continue
		}
		callee, ok := g.nodes[site.Callee]
		if !ok {
			// Resolver already drops unknown targets; never fabricate a node.
			continue
		}
		e := Edge{Caller: site.Caller, Callee: site.Callee}
		if seen[e] {
			continue
		}
		seen[e] = true
		caller.Callees = append(caller.Callees, site.Callee)
		if site.Caller != site.Callee {
			callee.InDegree++
		}
	}

	observability.GraphNodes.Set(float64(len(g.order)))
	observability.GraphEdges.Set(float64(len(seen)))
	return g
}

func (g *Graph) Len() int {
	return len(g.order)
}

// Functions returns the nodes in file order.
func (g *Graph) Functions() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Roots returns functions with in-degree zero, in file order.
func (g *Graph) Roots() []string {
	var roots []string
	for _, name := range g.order {
		if g.nodes[name].InDegree == 0 {
			roots = append(roots, name)
		}
	}
	return roots
}

// TraversalRoots extends Roots so every node is reachable from some root.
// When a cycle leaves no natural entry point, the first not-yet-covered
// function in file order becomes a synthetic root, so no function is
// silently omitted from output.
func (g *Graph) TraversalRoots() []string {
	roots := g.Roots()
	covered := make(map[string]bool, len(g.order))
	for _, r := range roots {
		g.markReachable(r, covered)
	}
	for _, name := range g.order {
		if covered[name] {
			continue
		}
		roots = append(roots, name)
		g.markReachable(name, covered)
	}
	return roots
}

func (g *Graph) markReachable(name string, covered map[string]bool) {
	if covered[name] {
		return
	}
	covered[name] = true
	for _, callee := range g.nodes[name].Callees {
		g.markReachable(callee, covered)
	}
}

// Edges lists the distinct caller→callee pairs, callers in file order and
// callees in first-occurrence order.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, name := range g.order {
		for _, callee := range g.nodes[name].Callees {
			edges = append(edges, Edge{Caller: name, Callee: callee})
		}
	}
	return edges
}

func (g *Graph) EdgeCount() int {
	count := 0
	for _, name := range g.order {
		count += len(g.nodes[name].Callees)
	}
	return count
}
