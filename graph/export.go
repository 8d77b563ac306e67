package graph

import (
	"fmt"
	"strings"
)

// ToDOT returns the graph in Graphviz DOT format.
func (g *Graph) ToDOT() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var w strings.Builder
	w.WriteString("graph NSFAwards {\n")
	w.WriteString("  layout=neato;\n")
	w.WriteString("  node [shape=box, style=filled, fontname=\"Arial\"];\n")

	for _, n := range g.Nodes {
		color := "lightgrey"
		switch n.Type {
		case NodeTypePI:
			color = "lightblue"
		case NodeTypeInstitution:
			color = "salmon"
		case NodeTypeAward:
			color = "lightyellow"
		case NodeTypeTopic:
			color = "lightgreen"
		}

		label := fmt.Sprintf("%s\n(%s)", n.Key, n.Type)
		if program, ok := n.Attributes["program"].(string); ok && program != "" {
			label += fmt.Sprintf("\n%s", program)
		}

		w.WriteString(fmt.Sprintf("  %q [label=%q, fillcolor=%q];\n", n.Key, label, color))
	}

	for _, e := range g.Edges {
		w.WriteString(fmt.Sprintf("  %q -- %q [label=%q];\n", e.A, e.B, e.Relationship))
	}

	w.WriteString("}\n")
	return w.String()
}
