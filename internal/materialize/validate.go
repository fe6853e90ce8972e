package materialize

import "github.com/willibrandon/materializer/internal/dataflow"

// Validate checks every invariant the planner depends on for the nodes
// added or reconsidered by prior Extend calls. It returns an
// *InvalidEdgeError when the only problem is a fully materialized node
// sitting below a partially materialized one — the migration planning
// loop is expected to reroute around that edge and try again — and an
// *InternalInvariantError for anything else, since those indicate the
// planner's own bookkeeping is inconsistent rather than a recoverable
// graph shape.
func (s *State) Validate(g *dataflow.Graph, newNodes []dataflow.NodeIndex) (*InvalidEdgeError, error) {
	if edge := s.checkNoFullBelowPartial(g, newNodes); edge != nil {
		return edge, nil
	}
	if err := s.checkNoPartialSubsetOverlap(g); err != nil {
		return nil, err
	}
	if err := s.checkPurgeFrontierDownwardClosed(g, newNodes); err != nil {
		return nil, err
	}
	if err := s.checkNoAliasedShardMergerKey(g, newNodes); err != nil {
		return nil, err
	}
	return nil, nil
}

// checkNoFullBelowPartial ensures no partially materialized node has a
// fully materialized descendant. any_partial walks ancestors of a
// candidate node until it finds one marked partial, then reports the edge
// between that ancestor and the first descendant on the path back down.
func (s *State) checkNoFullBelowPartial(g *dataflow.Graph, newNodes []dataflow.NodeIndex) *InvalidEdgeError {
	var anyPartial func(ni dataflow.NodeIndex) (*dataflow.NodeIndex, *dataflow.NodeIndex)
	anyPartial = func(ni dataflow.NodeIndex) (*dataflow.NodeIndex, *dataflow.NodeIndex) {
		if s.IsPartial(ni) {
			return &ni, nil
		}
		for _, pi := range g.Parents(ni) {
			if p, c := anyPartial(pi); p != nil {
				if c == nil {
					child := ni
					return p, &child
				}
				return p, c
			}
		}
		return nil, nil
	}

	candidates := map[dataflow.NodeIndex]struct{}{}
	for ni := range s.added {
		candidates[ni] = struct{}{}
	}
	for ni := range s.readers {
		candidates[ni] = struct{}{}
	}

	for ni := range candidates {
		if p, c := anyPartial(ni); p != nil && c != nil {
			return &InvalidEdgeError{Parent: *p, Child: *c}
		}
	}
	return nil
}

// checkNoPartialSubsetOverlap ensures no node is partial over only some of
// the columns its parent is indexed by: if it were, the parent could miss
// in its own state for a key the child already has cached, which is the
// one thing partial materialization must never allow.
func (s *State) checkNoPartialSubsetOverlap(g *dataflow.Graph) error {
	for ni, added := range s.added {
		if !s.IsPartial(ni) {
			continue
		}
		for _, idx := range added {
			paths, err := dataflow.ReplayPathsForNonstop(g, dataflow.ColumnRef{Node: ni, Columns: idx.Columns}, idx.Type)
			if err != nil {
				return err
			}
			for _, path := range paths {
				for i := len(path.Segments) - 1; i >= 0; i-- {
					seg := path.Segments[i]
					if !s.IsPartial(seg.Node) {
						if _, ok := s.have[ni]; ok {
							break
						}
						continue
					}
					have, ok := s.have[seg.Node]
					if !ok {
						break
					}
					for _, parentIdx := range have {
						if parentIdx.Type != seg.Index.Type {
							continue
						}
						if !parentIdx.SharesColumn(seg.Index) {
							continue
						}
						if subsetOverlap(parentIdx, seg.Index) && !have.contains(seg.Index) {
							return &InternalInvariantError{Message: "partially overlapping partial indices"}
						}
					}
					break
				}
			}
		}
	}
	return nil
}

// subsetOverlap reports whether a and b have different column sets: it is
// false only when every column of each is also a column of the other.
func subsetOverlap(a, b dataflow.Index) bool {
	as, bs := a.ColumnSet(), b.ColumnSet()
	for c := range as {
		if _, ok := bs[c]; !ok {
			return true
		}
	}
	for c := range bs {
		if _, ok := as[c]; !ok {
			return true
		}
	}
	return false
}

// checkPurgeFrontierDownwardClosed ensures that no node beyond the
// materialization frontier (Purge) feeds a node that is not also beyond
// the frontier: the frontier must be a downward-closed cut of the graph,
// or a replay could need to reach past it into state that no longer
// exists.
func (s *State) checkPurgeFrontierDownwardClosed(g *dataflow.Graph, newNodes []dataflow.NodeIndex) error {
	var stack []dataflow.NodeIndex
	for _, ni := range newNodes {
		n := g.Node(ni)
		if (n.IsReader() || hasIndexes(s, ni)) && !n.Purge {
			stack = append(stack, g.Parents(ni)...)
		}
	}

	visited := map[dataflow.NodeIndex]struct{}{}
	for len(stack) > 0 {
		ni := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[ni]; ok {
			continue
		}

		if g.Node(ni).Purge {
			return &InternalInvariantError{Message: "found purge node above non-purge node"}
		}
		if hasIndexes(s, ni) {
			visited[ni] = struct{}{}
			continue
		}
		visited[ni] = struct{}{}
		stack = append(stack, g.Parents(ni)...)
	}
	return nil
}

// checkNoAliasedShardMergerKey ensures a shard merger's parent never has a
// second column that aliases the column it shards by: if it did, a replay
// key derived from the alias would target a single shard while the merger
// waited for all of them, deadlocking the replay.
func (s *State) checkNoAliasedShardMergerKey(g *dataflow.Graph, newNodes []dataflow.NodeIndex) error {
	for _, ni := range newNodes {
		n := g.Node(ni)
		if !n.IsShardMerger() {
			continue
		}

		parents := g.Parents(ni)
		if len(parents) == 0 {
			return &InternalInvariantError{Message: "shard mergers must have a parent"}
		}
		parent := parents[0]
		sharding := g.Node(parent).ShardedBy()
		if sharding.Kind != dataflow.ByColumn {
			continue
		}
		col := sharding.Column

		columns := make([]int, len(g.Node(parent).Columns()))
		for i := range columns {
			columns[i] = i
		}

		paths, err := dataflow.ProvenanceOf(g, parent, columns)
		if err != nil {
			return err
		}

		for _, path := range paths {
			var matAnc *dataflow.ProvenanceEntry
			for i := range path {
				if hasIndexes(s, path[i].Node) {
					matAnc = &path[i]
					break
				}
			}
			if matAnc == nil {
				return &InternalInvariantError{Message: "every provenance path must eventually reach a materialized node"}
			}
			if col >= len(matAnc.Columns) || matAnc.Columns[col] == nil {
				continue
			}
			src := *matAnc.Columns[col]
			for c, res := range matAnc.Columns {
				if c == col || res == nil {
					continue
				}
				if *res == src {
					return &InternalInvariantError{Message: "attempting to merge sharding by aliased column"}
				}
			}
		}
	}
	return nil
}
