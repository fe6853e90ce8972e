package diagnostics

import (
	"fmt"

	"github.com/xlab/treeprint"

	"github.com/willibrandon/materializer/internal/dataflow"
	"github.com/willibrandon/materializer/internal/materialize"
	"github.com/willibrandon/materializer/internal/redact"
)

// StatusTree renders every node reachable from root as a human-readable
// tree, each labelled with its materialization status ("[not
// materialized]" for the rest), for interactive status reporting
// (`materializer status` and the watch TUI).
func StatusTree(g *dataflow.Graph, state *materialize.State, root dataflow.NodeIndex) treeprint.Tree {
	tree := treeprint.NewWithRoot(nodeLabel(g, state, root))
	addChildren(tree, g, state, root, map[dataflow.NodeIndex]struct{}{root: {}})
	return tree
}

func addChildren(parent treeprint.Tree, g *dataflow.Graph, state *materialize.State, ni dataflow.NodeIndex, seen map[dataflow.NodeIndex]struct{}) {
	for _, child := range g.Children(ni) {
		if _, ok := seen[child]; ok {
			continue
		}
		seen[child] = struct{}{}
		branch := parent.AddBranch(nodeLabel(g, state, child))
		addChildren(branch, g, state, child, seen)
	}
}

func nodeLabel(g *dataflow.Graph, state *materialize.State, ni dataflow.NodeIndex) string {
	n := g.Node(ni)
	status := state.GetStatus(ni, n)

	label := fmt.Sprintf("%s (#%d)", redact.Of(n.Name()).String(), ni)
	switch status.Kind {
	case materialize.StatusFull:
		label += " [full]"
	case materialize.StatusPartial:
		if status.BeyondFrontier {
			label += " [partial, beyond frontier]"
		} else {
			label += " [partial]"
		}
	default:
		label += " [not materialized]"
	}
	return label
}
