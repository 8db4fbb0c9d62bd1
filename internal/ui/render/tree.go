package render

import (
	"fmt"
	"strings"

	"calltree/internal/engine/graph"
)

const (
	branchGlyph   = "├── "
	terminalGlyph = "└── "
	pipePrefix    = "│   "
	blankPrefix   = "    "
)

// Summary holds the counts reported under the rendered forest.
type Summary struct {
	Functions  int
	Roots      int
	Orphans    int
	Edges      int
	Unresolved int
}

// Tree renders the call graph as a forest in depth-first pre-order, one
// printable line per node visit. The cycle guard tracks ancestors on the
// current path only: a callee already on the path renders once as a leaf,
// while the same function may still appear under other call chains.
func Tree(g *graph.Graph) ([]string, Summary) {
	roots := g.TraversalRoots()
	appeared := make(map[string]bool, g.Len())
	onPath := make(map[string]bool)

	var lines []string
	var walk func(name, prefix string, last bool)
	walk = func(name, prefix string, last bool) {
		connector := branchGlyph
		childPrefix := prefix + pipePrefix
		if last {
			connector = terminalGlyph
			childPrefix = prefix + blankPrefix
		}

		node, ok := g.Node(name)
		if !ok {
			return
		}
		lines = append(lines, prefix+connector+label(node))
		appeared[name] = true

		if onPath[name] {
			// Ancestor on the active path: stop here to keep cyclic
			// graphs finite.
			return
		}
		onPath[name] = true
		for i, callee := range node.Callees {
			walk(callee, childPrefix, i == len(node.Callees)-1)
		}
		delete(onPath, name)
	}

	for i, root := range roots {
		walk(root, "", i == len(roots)-1)
	}

	return lines, Summary{
		Functions: g.Len(),
		Roots:     len(g.Roots()),
		Orphans:   g.Len() - len(appeared),
		Edges:     g.EdgeCount(),
	}
}

func label(node *graph.Node) string {
	s := fmt.Sprintf("%s (line %d)", node.Name, node.StartLine)
	if len(node.Lines) > 1 {
		extra := make([]string, 0, len(node.Lines)-1)
		for _, n := range node.Lines[1:] {
			extra = append(extra, fmt.Sprintf("%d", n))
		}
		s += fmt.Sprintf(" [redefined at %s]", strings.Join(extra, ", "))
	}
	if node.Malformed {
		s += " [unterminated header]"
	}
	return s
}

// FormatSummary renders the one-line counts footer.
func FormatSummary(s Summary) string {
	return fmt.Sprintf("%d functions, %d roots, %d orphans, %d edges (%d unresolved calls)",
		s.Functions, s.Roots, s.Orphans, s.Edges, s.Unresolved)
}
