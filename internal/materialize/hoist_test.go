package materialize

import (
	"testing"

	"github.com/willibrandon/materializer/internal/dataflow"
)

func TestHoistLookupObligationsWalksThroughQueryThroughOperator(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id", "value"}, dataflow.NodeOpts{Domain: 0})
	internal := g.AddInternal("i", []string{"id", "value"}, dataflow.NodeOpts{
		Domain:        0,
		QueryThrough:  true,
		ParentColumns: dataflow.IdentityProvenance(base),
	})
	g.Connect(base, internal)

	s := NewState()
	lookups := map[dataflow.NodeIndex]dataflow.LookupSet{
		internal: dataflow.NewLookupSet(dataflow.StrictLookup(dataflow.HashIndex(0))),
	}
	replays := map[dataflow.NodeIndex]Indices{}

	if err := s.hoistLookupObligations(g, lookups, replays); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	have, ok := s.have[base]
	if !ok {
		t.Fatal("expected the obligation to land on the base table after hoisting through the query-through node")
	}
	if !have.contains(dataflow.HashIndex(0)) {
		t.Errorf("expected a hash index on column 0, got %v", have)
	}
	if _, ok := s.have[internal]; ok {
		t.Error("expected the intermediate query-through node to remain unmaterialized")
	}
	if !replays[base].contains(dataflow.HashIndex(0)) {
		t.Error("expected hoisting to also seed a replay obligation on the node it landed on")
	}
}

func TestHoistLookupObligationsStopsAtAlreadyMaterializedNode(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id"}, dataflow.NodeOpts{Domain: 0})
	internal := g.AddInternal("i", []string{"id"}, dataflow.NodeOpts{
		Domain:        0,
		QueryThrough:  true,
		ParentColumns: dataflow.IdentityProvenance(base),
	})
	g.Connect(base, internal)

	s := NewState()
	s.have[internal] = newIndices(dataflow.HashIndex(0))

	lookups := map[dataflow.NodeIndex]dataflow.LookupSet{
		internal: dataflow.NewLookupSet(dataflow.StrictLookup(dataflow.HashIndex(0))),
	}
	if err := s.hoistLookupObligations(g, lookups, map[dataflow.NodeIndex]Indices{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.have[base]; ok {
		t.Error("expected hoisting to stop at the already-materialized internal node and never reach the base")
	}
}

func TestHoistLookupObligationsStopsWhenOperatorCannotQueryThrough(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id"}, dataflow.NodeOpts{Domain: 0})
	internal := g.AddInternal("i", []string{"id"}, dataflow.NodeOpts{Domain: 0, QueryThrough: false})
	g.Connect(base, internal)

	s := NewState()
	lookups := map[dataflow.NodeIndex]dataflow.LookupSet{
		internal: dataflow.NewLookupSet(dataflow.StrictLookup(dataflow.HashIndex(0))),
	}
	if err := s.hoistLookupObligations(g, lookups, map[dataflow.NodeIndex]Indices{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.have[internal].contains(dataflow.HashIndex(0)) {
		t.Error("expected the obligation to materialize the non-query-through node itself")
	}
}

func TestHoistLookupObligationsRejectsMultipleAncestors(t *testing.T) {
	g := dataflow.NewGraph()
	left := g.AddBase("left", []string{"id"}, dataflow.NodeOpts{Domain: 0})
	right := g.AddBase("right", []string{"id"}, dataflow.NodeOpts{Domain: 0})
	join := g.AddInternal("j", []string{"id"}, dataflow.NodeOpts{
		Domain:        0,
		QueryThrough:  true,
		ParentColumns: dataflow.IdentityProvenance(left),
	})
	g.Connect(left, join)
	g.Connect(right, join)

	s := NewState()
	lookups := map[dataflow.NodeIndex]dataflow.LookupSet{
		join: dataflow.NewLookupSet(dataflow.StrictLookup(dataflow.HashIndex(0))),
	}
	err := s.hoistLookupObligations(g, lookups, map[dataflow.NodeIndex]Indices{})
	if err == nil {
		t.Fatal("expected an error when a query-through node has more than one parent")
	}
	if _, ok := err.(*InternalInvariantError); !ok {
		t.Errorf("expected an *InternalInvariantError, got %T: %v", err, err)
	}
}
