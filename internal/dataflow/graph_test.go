package dataflow

import "testing"

// buildChain wires source -> base -> internal -> reader for the tests
// below that only care about topology, not provenance.
func buildChain(t *testing.T) (*Graph, NodeIndex, NodeIndex, NodeIndex, NodeIndex) {
	t.Helper()
	g := NewGraph()
	src := g.AddSource()
	base := g.AddBase("b", []string{"id", "value"}, NodeOpts{Domain: 0})
	internal := g.AddInternal("i", []string{"id", "value"}, NodeOpts{
		Domain:        0,
		QueryThrough:  true,
		ParentColumns: IdentityProvenance(base),
	})
	reader := g.AddReader("r", &Index{}, false, NodeOpts{Domain: 1})
	g.Connect(src, base)
	g.Connect(base, internal)
	g.Connect(internal, reader)
	return g, src, base, internal, reader
}

func TestTopologicalOrdersParentsBeforeChildren(t *testing.T) {
	g, src, base, internal, reader := buildChain(t)

	order := g.Topological()
	pos := make(map[NodeIndex]int, len(order))
	for i, ni := range order {
		pos[ni] = i
	}

	if _, ok := pos[src]; ok {
		t.Error("source node should never appear in a topological walk")
	}
	if pos[base] >= pos[internal] {
		t.Errorf("expected base (%d) before internal (%d), got positions %d, %d", base, internal, pos[base], pos[internal])
	}
	if pos[internal] >= pos[reader] {
		t.Errorf("expected internal (%d) before reader (%d), got positions %d, %d", internal, reader, pos[internal], pos[reader])
	}
}

func TestReverseTopologicalOrdersChildrenBeforeParents(t *testing.T) {
	g, _, base, internal, reader := buildChain(t)

	order := g.ReverseTopological()
	pos := make(map[NodeIndex]int, len(order))
	for i, ni := range order {
		pos[ni] = i
	}

	if pos[reader] >= pos[internal] {
		t.Errorf("expected reader (%d) before internal (%d) in reverse order", reader, internal)
	}
	if pos[internal] >= pos[base] {
		t.Errorf("expected internal (%d) before base (%d) in reverse order", internal, base)
	}
}

func TestReverseTopologicalSkipsDroppedNodes(t *testing.T) {
	g, _, _, internal, _ := buildChain(t)
	g.Node(internal).dropped = true

	for _, ni := range g.ReverseTopological() {
		if ni == internal {
			t.Error("dropped node should not appear in ReverseTopological")
		}
	}
}

func TestReachableFollowsRequestedDirection(t *testing.T) {
	g, src, base, internal, reader := buildChain(t)

	down := g.Reachable(base, Outgoing)
	for _, want := range []NodeIndex{base, internal, reader} {
		if _, ok := down[want]; !ok {
			t.Errorf("expected %d reachable downstream of base", want)
		}
	}
	if _, ok := down[src]; ok {
		t.Error("source should not be reachable downstream of base")
	}

	up := g.Reachable(reader, Incoming)
	for _, want := range []NodeIndex{reader, internal, base, src} {
		if _, ok := up[want]; !ok {
			t.Errorf("expected %d reachable upstream of reader", want)
		}
	}
}

func TestEdgesReturnsEveryConnection(t *testing.T) {
	g, src, base, internal, reader := buildChain(t)

	edges := g.Edges()
	want := map[[2]NodeIndex]bool{
		{src, base}:      true,
		{base, internal}: true,
		{internal, reader}: true,
	}
	if len(edges) != len(want) {
		t.Fatalf("expected %d edges, got %d: %v", len(want), len(edges), edges)
	}
	for _, e := range edges {
		if !want[e] {
			t.Errorf("unexpected edge %v", e)
		}
	}
}

func TestNodeIndicesPreservesInsertionOrder(t *testing.T) {
	g, src, base, internal, reader := buildChain(t)
	want := []NodeIndex{src, base, internal, reader}
	got := g.NodeIndices()
	if len(got) != len(want) {
		t.Fatalf("expected %d nodes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}
