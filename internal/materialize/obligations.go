package materialize

import "github.com/willibrandon/materializer/internal/dataflow"

// obligationKind distinguishes the two ways a node can end up needing an
// index: asking to be looked up in (Lookup), or asking for a replay source
// above it (Replay). Replay obligations are special: they can be hoisted
// past every node, including across domains, and must be carried all the
// way to the nearest full materialization.
type obligationKind int

const (
	lookupObligation obligationKind = iota
	replayObligation
)

type obligation struct {
	kind   obligationKind
	lookup dataflow.LookupIndex
	replay dataflow.Index
}

// collectObligations computes the indexing obligations created directly by
// each new node: readers ask for a replay index on their key, everything
// else asks its operator-specific SuggestIndexes, and base tables with no
// obligation of their own get a placeholder index so they are always
// materialized.
func collectObligations(g *dataflow.Graph, newNodes []dataflow.NodeIndex) (
	lookupObligations map[dataflow.NodeIndex]dataflow.LookupSet,
	replayObligations map[dataflow.NodeIndex]Indices,
	newReaders map[dataflow.NodeIndex]struct{},
) {
	lookupObligations = map[dataflow.NodeIndex]dataflow.LookupSet{}
	replayObligations = map[dataflow.NodeIndex]Indices{}
	newReaders = map[dataflow.NodeIndex]struct{}{}

	for _, ni := range newNodes {
		n := g.Node(ni)

		var indices map[dataflow.NodeIndex]obligation

		if reader, ok := n.AsReader(); ok {
			if reader.Index() == nil {
				continue
			}
			newReaders[ni] = struct{}{}
			indices = map[dataflow.NodeIndex]obligation{
				ni: {kind: replayObligation, replay: *reader.Index()},
			}
		} else {
			indices = map[dataflow.NodeIndex]obligation{}
			for target, li := range n.SuggestIndexes(ni) {
				indices[target] = obligation{kind: lookupObligation, lookup: li}
			}
			if len(indices) == 0 && n.IsBase() {
				indices[ni] = obligation{kind: lookupObligation, lookup: dataflow.StrictLookup(dataflow.HashIndex(0))}
			}
		}

		for target, ob := range indices {
			switch ob.kind {
			case replayObligation:
				if replayObligations[target] == nil {
					replayObligations[target] = Indices{}
				}
				replayObligations[target].add(ob.replay)
			case lookupObligation:
				if lookupObligations[target] == nil {
					lookupObligations[target] = dataflow.LookupSet{}
				}
				lookupObligations[target].Add(ob.lookup)
			}
		}
	}
	return
}
