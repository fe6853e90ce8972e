package materialize

import (
	"strings"

	"github.com/willibrandon/materializer/internal/dataflow"
)

// labelFrontier decides which materializations sit beyond the
// materialization frontier (state the domain is allowed to evict and
// reconstruct via replay on demand) rather than being kept resident
// forever. A SHALLOW_-prefixed node is always placed beyond the frontier
// regardless of strategy; a full materialization never is, since there is
// no replay path that could repopulate it.
func (s *State) labelFrontier(g *dataflow.Graph, newNodes []dataflow.NodeIndex) error {
	inNew := make(map[dataflow.NodeIndex]struct{}, len(newNodes))
	for _, ni := range newNodes {
		inNew[ni] = struct{}{}
	}

	for _, ni := range newNodes {
		n := g.Node(ni)

		if (hasIndexes(s, ni) || n.IsReader()) && !s.IsPartial(ni) {
			continue
		}

		if strings.HasPrefix(n.Name(), "SHALLOW_") {
			n.Purge = true
			continue
		}

		if !s.IsPartial(ni) {
			continue
		}

		switch s.config.FrontierStrategy {
		case FrontierAllPartial:
			n.Purge = true
		case FrontierReaders:
			n.Purge = n.Purge || n.IsReader()
		}
	}

	for _, ni := range newNodes {
		n := g.Node(ni)
		if !n.Purge || hasIndexes(s, ni) || n.IsReader() {
			continue
		}

		for _, pi := range g.Parents(ni) {
			if _, ok := inNew[pi]; !ok {
				continue
			}
			if !hasIndexes(s, pi) {
				continue
			}
			if !s.IsPartial(pi) {
				return &InternalInvariantError{Message: "attempting to place full materialization beyond materialization frontier"}
			}
			g.Node(pi).Purge = true
		}
	}

	return nil
}

func hasIndexes(s *State, ni dataflow.NodeIndex) bool {
	_, ok := s.have[ni]
	return ok
}
