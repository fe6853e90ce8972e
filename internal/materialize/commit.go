package materialize

import (
	"github.com/willibrandon/materializer/internal/dataflow"
	"github.com/willibrandon/materializer/internal/domain"
)

// domainNode identifies a node by its (domain, local address) pair, the
// granularity domain messages address nodes at.
type domainNode struct {
	domain dataflow.DomainIndex
	local  dataflow.LocalNodeIndex
}

// Commit commits to every materialization decision accumulated since the
// last successful Commit: it sets up replay paths, adds new indexes to
// existing materializations, populates new ones, and appends the
// resulting messages to plan. newNodes is the same set passed to the
// Extend calls that produced the pending decisions.
func (s *State) Commit(g *dataflow.Graph, newNodes []dataflow.NodeIndex, plan *domain.MigrationPlan) error {
	newSet := make(map[dataflow.NodeIndex]struct{}, len(newNodes))
	for _, ni := range newNodes {
		newSet[ni] = struct{}{}
	}

	var reindex, make_ []dataflow.NodeIndex
	for _, ni := range g.Topological() {
		if g.Node(ni).IsDropped() {
			continue
		}
		if _, isNew := newSet[ni]; isNew {
			make_ = append(make_, ni)
		} else if _, ok := s.added[ni]; ok {
			reindex = append(reindex, ni)
		}
	}

	nonReady := make(map[domainNode]struct{})
	for _, ni := range make_ {
		n := g.Node(ni)
		nonReady[domainNode{n.Domain(), n.LocalAddr()}] = struct{}{}
	}

	// Phase 1: reindex existing nodes.
	for _, ni := range reindex {
		indexOn := s.added[ni]
		delete(s.added, ni)

		if _, had := s.had[ni]; !had && len(indexOn) > 0 && s.IsPartial(ni) {
			if s.hasMaterializedNonNewChild(g, ni, newSet) {
				return &InternalInvariantError{Message: "attempting to make old non-materialized node with children partial"}
			}
		}

		if err := s.runSetup(g, ni, indexOn, plan, nonReady); err != nil {
			return err
		}
	}

	// Phase 2: make new nodes.
	for _, ni := range make_ {
		n := g.Node(ni)
		indexOn := s.added[ni]
		delete(s.added, ni)

		if !n.IsBase() {
			if err := s.runSetup(g, ni, indexOn, plan, nonReady); err != nil {
				return err
			}
		}

		plan.AddMessage(n.Domain(), domain.Request{
			Kind:  domain.Ready,
			Node:  n.LocalAddr(),
			Purge: n.Purge,
			Index: toLookupSet(indexOn),
		})
		delete(nonReady, domainNode{n.Domain(), n.LocalAddr()})
	}

	// Phase 3: confirm readiness for anything left untouched.
	for dn := range nonReady {
		plan.AddMessage(dn.domain, domain.Request{Kind: domain.IsReady, Node: dn.local})
	}

	s.added = make(map[dataflow.NodeIndex]Indices)
	s.weak = make(map[dataflow.NodeIndex]Indices)
	s.readers = make(map[dataflow.NodeIndex]struct{})
	for ni := range s.have {
		s.had[ni] = struct{}{}
	}

	return nil
}

func (s *State) runSetup(g *dataflow.Graph, ni dataflow.NodeIndex, indexOn Indices, plan *domain.MigrationPlan, nonReady map[domainNode]struct{}) error {
	if len(indexOn) == 0 {
		return nil
	}
	pending, err := s.setup(g, ni, indexOn)
	if err != nil {
		return err
	}

	n := g.Node(ni)
	for _, pr := range pending {
		srcKey := domainNode{pr.sourceDomain, pr.sourceNode}
		if _, notReady := nonReady[srcKey]; notReady {
			plan.AddMessage(pr.sourceDomain, domain.Request{Kind: domain.IsReady, Node: pr.sourceNode})
			delete(nonReady, srcKey)
		}

		plan.AddMessage(pr.sourceDomain, domain.Request{
			Kind:            domain.StartReplay,
			Tag:             uint32(pr.tag),
			From:            pr.sourceNode,
			TargetingDomain: pr.targetDomain,
		})

		plan.AddMessage(pr.targetDomain, domain.Request{Kind: domain.QueryReplayDone, Node: n.LocalAddr()})
		delete(nonReady, domainNode{n.Domain(), n.LocalAddr()})
	}
	return nil
}

func (s *State) hasMaterializedNonNewChild(g *dataflow.Graph, ni dataflow.NodeIndex, newNodes map[dataflow.NodeIndex]struct{}) bool {
	stack := append([]dataflow.NodeIndex(nil), g.Children(ni)...)
	for len(stack) > 0 {
		child := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, isNew := newNodes[child]; isNew {
			continue
		}
		if added, ok := s.added[child]; ok {
			have := s.have[child]
			if len(added) != len(have) {
				return true
			}
		}
		stack = append(stack, g.Children(child)...)
	}
	return false
}

func toLookupSet(idx Indices) dataflow.LookupSet {
	out := make(dataflow.LookupSet, len(idx))
	for _, i := range idx {
		out.Add(dataflow.StrictLookup(i))
	}
	return out
}
