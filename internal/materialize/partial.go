package materialize

import (
	"sort"
	"strings"

	"github.com/willibrandon/materializer/internal/dataflow"
)

// classifyPartial walks every node with an outstanding replay obligation in
// reverse topological order (children before parents) and decides whether
// it can be partially materialized. A node is able to be partial only if:
// partial materialization is enabled, it isn't a base table, its operator
// doesn't require full materialization, it isn't an already materialized,
// non-partial node whose existing indexes are not all declared again in
// this migration, and nothing beneath it forces full (a FULL_-prefixed
// node, or a fully materialized descendant). For each replay path that
// would reconstruct its new indexes, the nearest materialized node on the
// path gets any index it lacks; a broken path instead forces
// materialization at its own target and does not make the node
// ineligible.
//
// Reverse topological order matters: classifying a node may add further
// replay obligations on its ancestors, and those must still be visible
// when classifyPartial reaches them later in the same walk.
func (s *State) classifyPartial(
	g *dataflow.Graph,
	newNodes map[dataflow.NodeIndex]struct{},
	replayObligations map[dataflow.NodeIndex]Indices,
) error {
	for _, ni := range g.ReverseTopological() {
		indexes, ok := replayObligations[ni]
		if !ok {
			continue
		}
		delete(replayObligations, ni)

		n := g.Node(ni)
		able := s.config.PartialEnabled

		if n.IsBase() {
			able = false
		}
		if n.IsInternal() && n.RequiresFullMaterialization() {
			able = false
		}

		if _, isNew := newNodes[ni]; !isNew {
			if len(s.added[ni]) != len(s.have[ni]) && !s.IsPartial(ni) {
				able = false
			}
		}

		if able {
			able = !s.hasFullBelow(g, ni)
		}

		add := map[dataflow.NodeIndex]Indices{}
		if able {
			paths, err := replayPathsFor(g, ni, indexes)
			if err != nil {
				return err
			}
			sort.SliceStable(paths, func(i, j int) bool { return !paths[i].Broken() && paths[j].Broken() })

			for _, path := range paths {
				if !able {
					break
				}
				skip := 0
				if path.Target().Node == ni {
					skip = 1
				}
				segs := path.Segments
				if path.Broken() {
					target := path.Target()
					if have, ok := s.have[target.Node]; ok {
						if !have.contains(target.Index) {
							addIndex(add, target.Node, target.Index)
						}
						continue
					}
					s.have[target.Node] = Indices{}
					addIndex(add, target.Node, target.Index)
					continue
				}
				for i := len(segs) - 1 - skip; i >= 0; i-- {
					seg := segs[i]
					if have, ok := s.have[seg.Node]; ok {
						if !have.contains(seg.Index) {
							addIndex(add, seg.Node, seg.Index)
						}
						break
					}
				}
			}
		}

		if able {
			s.partial[ni] = struct{}{}
			for mi, idxs := range add {
				if replayObligations[mi] == nil {
					replayObligations[mi] = Indices{}
				}
				for _, idx := range idxs {
					replayObligations[mi].add(idx)
				}
			}
		} else if !n.IsBase() && !s.config.AllowFullMaterialization {
			return &UnsupportedError{Reason: "creation of fully materialized query is disabled"}
		} else if n.Purge {
			return &InternalInvariantError{Message: "full materialization placed beyond materialization frontier"}
		}

		if s.have[ni] == nil {
			s.have[ni] = Indices{}
		}
		have := s.have[ni]
		for _, idx := range indexes {
			added := have.add(idx)
			if added || s.IsPartial(ni) {
				if s.added[ni] == nil {
					s.added[ni] = Indices{}
				}
				s.added[ni].add(idx)
			}
		}
	}

	if len(replayObligations) != 0 {
		return &InternalInvariantError{Message: "replay obligations remained after partiality classification"}
	}
	return nil
}

func addIndex(add map[dataflow.NodeIndex]Indices, ni dataflow.NodeIndex, idx dataflow.Index) {
	if add[ni] == nil {
		add[ni] = Indices{}
	}
	add[ni].add(idx)
}

// hasFullBelow reports whether a fully materialized node (or a
// FULL_-prefixed node, which is always forced full) sits anywhere
// downstream of ni without an intervening partial materialization.
func (s *State) hasFullBelow(g *dataflow.Graph, ni dataflow.NodeIndex) bool {
	stack := append([]dataflow.NodeIndex(nil), g.Children(ni)...)
	for len(stack) > 0 {
		child := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		cn := g.Node(child)
		if strings.HasPrefix(cn.Name(), "FULL_") {
			return true
		}

		if _, ok := s.have[child]; ok {
			if !s.IsPartial(child) {
				return true
			}
			continue
		}
		if reader, ok := cn.AsReader(); ok && reader.Index() != nil {
			if !s.IsPartial(child) {
				return true
			}
			continue
		}
		stack = append(stack, g.Children(child)...)
	}
	return false
}

func replayPathsFor(g *dataflow.Graph, ni dataflow.NodeIndex, indexes Indices) ([]dataflow.ReplayPath, error) {
	var out []dataflow.ReplayPath
	for _, idx := range indexes {
		paths, err := dataflow.ReplayPathsForNonstop(g, dataflow.ColumnRef{Node: ni, Columns: idx.Columns}, idx.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, paths...)
	}
	return out, nil
}
