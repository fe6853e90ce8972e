package materialize

import "github.com/willibrandon/materializer/internal/dataflow"

// Extend computes and records any additional materializations needed to
// satisfy the indexing obligations created by a set of newly added nodes.
// It runs, in order: the obligation collector (§4.1), the lookup-obligation
// hoister (§4.2), the partiality analyzer (§4.3), and the frontier labeler
// (§4.4). Extend may be called once per new domain during a migration, so
// it can run several times before Commit is ultimately invoked. Each call
// writes its decisions into State directly, and the frontier labeler sets
// Purge on graph nodes directly; nothing is undone if a later call,
// Validate or Commit fails.
func (s *State) Extend(g *dataflow.Graph, newNodes []dataflow.NodeIndex, recovery bool) error {
	lookupObligations, replayObligations, newReaders := collectObligations(g, newNodes)
	for ni := range newReaders {
		s.readers[ni] = struct{}{}
	}

	if err := s.hoistLookupObligations(g, lookupObligations, replayObligations); err != nil {
		return err
	}

	newSet := make(map[dataflow.NodeIndex]struct{}, len(newNodes))
	for _, ni := range newNodes {
		newSet[ni] = struct{}{}
	}
	if err := s.classifyPartialWithRecovery(g, newSet, replayObligations, recovery); err != nil {
		return err
	}

	return s.labelFrontier(g, newNodes)
}

// classifyPartialWithRecovery wraps classifyPartial to additionally mark a
// node's indexes as added when recovery is set, even if no new
// index was actually inserted: existing domains being rebuilt during
// recovery still need to be told about every partial replay path sourced
// from a node, not only the ones that changed this migration.
func (s *State) classifyPartialWithRecovery(
	g *dataflow.Graph,
	newNodes map[dataflow.NodeIndex]struct{},
	replayObligations map[dataflow.NodeIndex]Indices,
	recovery bool,
) error {
	if !recovery {
		return s.classifyPartial(g, newNodes, replayObligations)
	}

	before := map[dataflow.NodeIndex]int{}
	for ni, idx := range s.have {
		before[ni] = len(idx)
	}
	if err := s.classifyPartial(g, newNodes, replayObligations); err != nil {
		return err
	}
	for ni := range before {
		if have, ok := s.have[ni]; ok && len(have) > 0 {
			if s.added[ni] == nil {
				s.added[ni] = Indices{}
			}
			for _, idx := range have {
				s.added[ni].add(idx)
			}
		}
	}
	return nil
}
