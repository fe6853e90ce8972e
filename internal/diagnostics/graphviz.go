// Package diagnostics renders the planner's graph and materialization
// state into human-inspectable forms: a Graphviz DOT dump for postmortem
// debugging, and a tree view for interactive status reporting.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/willibrandon/materializer/internal/dataflow"
	"github.com/willibrandon/materializer/internal/materialize"
	"github.com/willibrandon/materializer/internal/redact"
)

// Graphviz renders a dataflow graph and its materialization state as a DOT
// digraph. Detailed mode additionally labels each node with its index set
// and partial/full status; non-detailed mode just draws shape.
type Graphviz struct {
	Graph           *dataflow.Graph
	State           *materialize.State
	Detailed        bool
	ReachableFrom   *dataflow.NodeIndex
	ReachableDir    dataflow.Direction
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "<", "\\<")
	s = strings.ReplaceAll(s, ">", "\\>")
	return s
}

// String renders the DOT document.
func (g Graphviz) String() string {
	var reachable map[dataflow.NodeIndex]struct{}
	if g.ReachableFrom != nil {
		reachable = g.Graph.Reachable(*g.ReachableFrom, g.ReachableDir)
	}

	var b strings.Builder
	b.WriteString("digraph {\n")
	if g.Detailed {
		b.WriteString("    node [shape=record, fontsize=10]\n")
	} else {
		b.WriteString("    node [shape=ellipse, fontsize=10]\n")
	}

	byDomain := map[dataflow.DomainIndex][]dataflow.NodeIndex{}
	var domainOrder []dataflow.DomainIndex
	seenDomain := map[dataflow.DomainIndex]struct{}{}

	for _, ni := range g.Graph.NodeIndices() {
		if reachable != nil {
			if _, ok := reachable[ni]; !ok {
				continue
			}
		}
		n := g.Graph.Node(ni)
		if n.IsSource() {
			continue
		}
		d := n.Domain()
		if _, ok := seenDomain[d]; !ok {
			seenDomain[d] = struct{}{}
			domainOrder = append(domainOrder, d)
		}
		byDomain[d] = append(byDomain[d], ni)
	}

	for _, d := range domainOrder {
		fmt.Fprintf(&b, "    subgraph cluster_d%d {\n", d)
		fmt.Fprintf(&b, "        label = \"domain %d\"\n", d)
		for _, ni := range byDomain[d] {
			b.WriteString("        " + g.describe(ni) + "\n")
		}
		b.WriteString("    }\n")
	}

	for _, edge := range g.Graph.Edges() {
		parent, child := edge[0], edge[1]
		if reachable != nil {
			if _, ok := reachable[parent]; !ok {
				continue
			}
			if _, ok := reachable[child]; !ok {
				continue
			}
		}
		style := ""
		if g.Graph.Node(parent).IsSource() {
			style = " [style=invis]"
		} else if g.Graph.Node(parent).IsEgress() {
			style = " [color=\"#CCCCCC\"]"
		}
		fmt.Fprintf(&b, "    n%d -> n%d%s\n", parent, child, style)
	}

	b.WriteString("}\n")
	return b.String()
}

func (g Graphviz) describe(ni dataflow.NodeIndex) string {
	n := g.Graph.Node(ni)
	name := sanitize(redact.Of(n.Name()).String())

	if !g.Detailed {
		return fmt.Sprintf("n%d [label=\"%s\"]", ni, name)
	}

	status := g.State.GetStatus(ni, n)
	var statusLabel string
	switch status.Kind {
	case materialize.StatusFull:
		statusLabel = "full"
	case materialize.StatusPartial:
		statusLabel = "partial"
		if status.BeyondFrontier {
			statusLabel += " (purged)"
		}
	default:
		statusLabel = "not materialized"
	}

	var indexLabel string
	if idx, ok := g.State.IndexesFor(ni); ok {
		parts := make([]string, 0, len(idx))
		for _, i := range idx {
			parts = append(parts, i.Key())
		}
		indexLabel = strings.Join(parts, ", ")
	}

	return fmt.Sprintf("n%d [label=\"{%s|%s|%s}\"]", ni, name, statusLabel, sanitize(indexLabel))
}
