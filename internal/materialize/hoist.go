package materialize

import (
	"fmt"

	"github.com/willibrandon/materializer/internal/dataflow"
)

// mapLookupIndices translates a set of lookup indexes defined in terms of
// n's own columns into the equivalent indexes on parent, by resolving each
// column through n's provenance. It is an internal invariant violation for
// a column not to resolve: the caller only calls this while walking
// through nodes n.CanQueryThrough() already reported true for, so every
// column must trace back to the (sole) parent.
func mapLookupIndices(n *dataflow.Node, parent dataflow.NodeIndex, indices dataflow.LookupSet) (dataflow.LookupSet, error) {
	out := make(dataflow.LookupSet, len(indices))
	for _, li := range indices {
		cols := make([]int, len(li.Idx.Columns))
		for i, col := range li.Idx.Columns {
			prov := n.ParentColumns(col)
			resolved := false
			for _, p := range prov {
				if p.Ancestor == parent && p.Column != nil {
					cols[i] = *p.Column
					resolved = true
					break
				}
			}
			if !resolved {
				return nil, &InternalInvariantError{Message: fmt.Sprintf(
					"could not resolve obligation past operator; node => %d, ancestor => %d, column => %d",
					n.GlobalAddr(), parent, col,
				)}
			}
		}
		out.Add(li.WithIndex(dataflow.Index{Type: li.Idx.Type, Columns: cols}))
	}
	return out, nil
}

// hoistLookupObligations walks each lookup obligation up through
// query-through operators until it reaches a node that is already
// materialized or cannot be queried through further, then records the
// resulting index. Every index added this way also seeds a replay
// obligation on the same node, since a materialization that exists only to
// answer lookups still needs a way to be (re)built.
//
// Lookup obligations are handled before replay obligations because they
// are the only ones that can force a non-materialized node to become
// materialized; doing replay obligations first could leave an
// intermediate query-through node unmaterialized when a later lookup
// obligation needed it to be.
func (s *State) hoistLookupObligations(
	g *dataflow.Graph,
	lookupObligations map[dataflow.NodeIndex]dataflow.LookupSet,
	replayObligations map[dataflow.NodeIndex]Indices,
) error {
	for ni, indices := range lookupObligations {
		mi := ni
		m := g.Node(mi)
		for {
			if _, ok := s.have[mi]; ok {
				break
			}
			if !m.IsInternal() || !m.CanQueryThrough() {
				break
			}

			parents := g.Parents(mi)
			if len(parents) != 1 {
				return &InternalInvariantError{Message: "query_through had more than one ancestor"}
			}
			parent := parents[0]

			mapped, err := mapLookupIndices(m, parent, indices)
			if err != nil {
				return err
			}
			indices = mapped
			mi = parent
			m = g.Node(mi)
		}

		for _, li := range indices {
			if li.IsWeak() {
				if s.weak[mi] == nil {
					s.weak[mi] = Indices{}
				}
				s.weak[mi].add(li.Idx)
			}

			if s.added[mi] == nil {
				s.added[mi] = Indices{}
			}
			if s.added[mi].add(li.Idx) {
				if s.have[mi] == nil {
					s.have[mi] = Indices{}
				}
				s.have[mi].add(li.Idx)

				if replayObligations[mi] == nil {
					replayObligations[mi] = Indices{}
				}
				replayObligations[mi].add(li.Idx)
			}
		}
	}
	return nil
}
