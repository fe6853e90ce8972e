package materialize

import (
	"testing"

	"github.com/willibrandon/materializer/internal/dataflow"
)

func TestLabelFrontierPurgesShallowPrefixedNodeRegardlessOfStrategy(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("SHALLOW_cache", []string{"id"}, dataflow.NodeOpts{Domain: 0})

	s := NewState()
	s.SetConfig(Config{FrontierStrategy: FrontierNone})
	s.partial[base] = struct{}{}

	if err := s.labelFrontier(g, []dataflow.NodeIndex{base}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.Node(base).Purge {
		t.Error("expected a SHALLOW_-prefixed node to be purged regardless of frontier strategy")
	}
}

func TestLabelFrontierAllPartialPurgesEveryPartialNode(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id"}, dataflow.NodeOpts{Domain: 0})

	s := NewState()
	s.SetConfig(Config{FrontierStrategy: FrontierAllPartial})
	s.partial[base] = struct{}{}

	if err := s.labelFrontier(g, []dataflow.NodeIndex{base}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.Node(base).Purge {
		t.Error("expected FrontierAllPartial to purge every partial node")
	}
}

func TestLabelFrontierNoneLeavesPartialNodesResident(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id"}, dataflow.NodeOpts{Domain: 0})

	s := NewState()
	s.SetConfig(Config{FrontierStrategy: FrontierNone})
	s.partial[base] = struct{}{}

	if err := s.labelFrontier(g, []dataflow.NodeIndex{base}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Node(base).Purge {
		t.Error("expected FrontierNone to leave partial nodes resident")
	}
}

func TestLabelFrontierSkipsMaterializedNonPartialNodes(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id"}, dataflow.NodeOpts{Domain: 0})

	s := NewState()
	s.SetConfig(Config{FrontierStrategy: FrontierAllPartial})
	s.have[base] = newIndices(dataflow.HashIndex(0))

	if err := s.labelFrontier(g, []dataflow.NodeIndex{base}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Node(base).Purge {
		t.Error("expected a fully materialized (non-partial) node never to be purged")
	}
}
