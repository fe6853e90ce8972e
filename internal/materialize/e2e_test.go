package materialize

import (
	"testing"

	"github.com/willibrandon/materializer/internal/dataflow"
	"github.com/willibrandon/materializer/internal/domain"
)

// These exercise the full Extend/Validate/Commit pipeline against the
// literal scenarios named as end-to-end examples: a base feeding one
// reader, a query-through filter hoisting a lookup past itself, two
// readers sharing a parent with disjoint keys, the FULL_ naming
// convention forcing full materialization, the SHALLOW_ convention
// forcing a node beyond the frontier, and a weak index paired with its
// strict counterpart.

func TestEndToEndBaseWithOneReader(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id", "value"}, dataflow.NodeOpts{Domain: 0})
	key := dataflow.HashIndex(0)
	reader := g.AddReader("r", &key, false, dataflow.NodeOpts{Domain: 1})
	g.Connect(base, reader)

	m := New()
	newNodes := []dataflow.NodeIndex{base, reader}
	if err := m.Extend(g, newNodes, false); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if invalid, err := m.Validate(g, newNodes); invalid != nil || err != nil {
		t.Fatalf("validate: invalid=%v err=%v", invalid, err)
	}

	plan := domain.NewMigrationPlan(false)
	if err := m.Commit(g, newNodes, plan); err != nil {
		t.Fatalf("commit: %v", err)
	}

	baseIdx, ok := m.IndexesFor(base)
	if !ok || !baseIdx.contains(dataflow.HashIndex(0)) {
		t.Fatalf("expected base to be materialized with a hash index on column 0, got %v", baseIdx)
	}
	if m.IsPartial(base) {
		t.Error("base tables can never be partial")
	}
	readerIdx, ok := m.IndexesFor(reader)
	if !ok || !readerIdx.contains(key) {
		t.Fatalf("expected the reader to be materialized by its key, got %v", readerIdx)
	}
	if !m.IsPartial(reader) {
		t.Error("expected the reader to be partial")
	}

	var sawReady, sawStartReplay, sawQueryReplayDone bool
	for _, d := range plan.Domains() {
		for _, req := range plan.Messages(d) {
			switch req.Kind {
			case domain.Ready:
				if req.Node == g.Node(base).LocalAddr() {
					sawReady = true
				}
			case domain.StartReplay:
				sawStartReplay = true
			case domain.QueryReplayDone:
				sawQueryReplayDone = true
			}
		}
	}
	if !sawReady {
		t.Error("expected a Ready message for the base table")
	}
	if !sawStartReplay {
		t.Error("expected a StartReplay message sourcing the reader's replay from the base")
	}
	if !sawQueryReplayDone {
		t.Error("expected a QueryReplayDone message confirming the reader's replay")
	}
}

func TestEndToEndQueryThroughFilterHoistsToBase(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id", "value"}, dataflow.NodeOpts{Domain: 0})
	filter := g.AddInternal("f", []string{"id", "value"}, dataflow.NodeOpts{
		Domain:        0,
		QueryThrough:  true,
		ParentColumns: dataflow.IdentityProvenance(base),
	})
	g.Connect(base, filter)
	key := dataflow.HashIndex(0)
	reader := g.AddReader("r", &key, false, dataflow.NodeOpts{Domain: 1})
	g.Connect(filter, reader)

	m := New()
	newNodes := []dataflow.NodeIndex{base, filter, reader}
	if err := m.Extend(g, newNodes, false); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if invalid, err := m.Validate(g, newNodes); invalid != nil || err != nil {
		t.Fatalf("validate: invalid=%v err=%v", invalid, err)
	}

	if _, ok := m.IndexesFor(filter); ok {
		t.Error("the query-through filter should never be materialized itself")
	}
	baseIdx, ok := m.IndexesFor(base)
	if !ok || !baseIdx.contains(dataflow.HashIndex(0)) {
		t.Fatalf("expected the lookup to hoist through the filter onto the base, got %v", baseIdx)
	}

	plan := domain.NewMigrationPlan(false)
	if err := m.Commit(g, newNodes, plan); err != nil {
		t.Fatalf("commit: %v", err)
	}
	for _, d := range plan.Domains() {
		for _, req := range plan.Messages(d) {
			if req.Kind == domain.StartReplay && req.From != g.Node(base).LocalAddr() {
				t.Errorf("expected every replay to source from the base, got from=%d", req.From)
			}
		}
	}
}

func TestEndToEndTwoReadersSharingAParentGetDisjointIndexes(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id", "name"}, dataflow.NodeOpts{Domain: 0})
	keyA := dataflow.HashIndex(0)
	keyB := dataflow.HashIndex(1)
	readerA := g.AddReader("ra", &keyA, false, dataflow.NodeOpts{Domain: 1})
	readerB := g.AddReader("rb", &keyB, false, dataflow.NodeOpts{Domain: 1})
	g.Connect(base, readerA)
	g.Connect(base, readerB)

	m := New()
	newNodes := []dataflow.NodeIndex{base, readerA, readerB}
	if err := m.Extend(g, newNodes, false); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if invalid, err := m.Validate(g, newNodes); invalid != nil || err != nil {
		t.Fatalf("validate: invalid=%v err=%v", invalid, err)
	}

	if !m.IsPartial(readerA) || !m.IsPartial(readerB) {
		t.Error("both readers should be able to go partial off a shared base")
	}
	baseIdx, _ := m.IndexesFor(base)
	if !baseIdx.contains(keyA) || !baseIdx.contains(keyB) {
		t.Fatalf("expected the base to carry both readers' indexes, got %v", baseIdx)
	}

	plan := domain.NewMigrationPlan(false)
	if err := m.Commit(g, newNodes, plan); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tagsA := m.PartialTags(readerA)
	tagsB := m.PartialTags(readerB)
	if len(tagsA) != 1 || len(tagsB) != 1 {
		t.Fatalf("expected each reader to have exactly one replay path, got A=%v B=%v", tagsA, tagsB)
	}
	if tagsA[0] == tagsB[0] {
		t.Error("expected the two readers to get distinct tags for their distinct replay paths")
	}
}

func TestEndToEndFullPrefixedNodeForcesFullBelowAndRejectsWithoutAllowFull(t *testing.T) {
	// candidate sits directly below base and would ordinarily be free to go
	// partial, but its own child is named with the FULL_ marker, which
	// forces everything above it to be fully materialized instead.
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id"}, dataflow.NodeOpts{Domain: 0})
	candidateKey := dataflow.HashIndex(0)
	candidate := g.AddReader("candidate", &candidateKey, false, dataflow.NodeOpts{Domain: 1})
	g.Connect(base, candidate)
	markerKey := dataflow.HashIndex(0)
	marker := g.AddReader("FULL_marker", &markerKey, false, dataflow.NodeOpts{Domain: 1})
	g.Connect(candidate, marker)

	m := New()
	newNodes := []dataflow.NodeIndex{base, candidate, marker}
	err := m.Extend(g, newNodes, false)
	if err == nil {
		t.Fatal("expected Extend to reject full materialization when AllowFullMaterialization is false")
	}
	if _, ok := err.(*UnsupportedError); !ok {
		t.Errorf("expected *UnsupportedError, got %T: %v", err, err)
	}

	m2 := New()
	m2.SetConfig(Config{PartialEnabled: true, AllowFullMaterialization: true})
	if err := m2.Extend(g, newNodes, false); err != nil {
		t.Fatalf("extend with full materialization allowed: %v", err)
	}
	if m2.IsPartial(candidate) {
		t.Error("a node with a FULL_-prefixed descendant cannot itself be partial")
	}
	if _, ok := m2.IndexesFor(candidate); !ok {
		t.Error("expected the forced-full candidate to end up materialized")
	}
}

func TestEndToEndShallowPrefixPurgesRegardlessOfStrategy(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id"}, dataflow.NodeOpts{Domain: 0})
	key := dataflow.HashIndex(0)
	reader := g.AddReader("SHALLOW_r", &key, false, dataflow.NodeOpts{Domain: 1})
	g.Connect(base, reader)

	m := New()
	m.SetConfig(Config{PartialEnabled: true, FrontierStrategy: FrontierNone})
	newNodes := []dataflow.NodeIndex{base, reader}
	if err := m.Extend(g, newNodes, false); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !g.Node(reader).Purge {
		t.Error("expected the SHALLOW_-prefixed reader to be purged regardless of frontier strategy")
	}
	if invalid, err := m.Validate(g, newNodes); invalid != nil || err != nil {
		t.Fatalf("validate: invalid=%v err=%v", invalid, err)
	}
}

func TestEndToEndWeakIndexPairsWithStrict(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id", "secondary"}, dataflow.NodeOpts{Domain: 0})
	weakTarget := dataflow.HashIndex(1)
	lookup := g.AddInternal("lookup_only", []string{"id", "secondary"}, dataflow.NodeOpts{
		Domain: 0,
		SuggestIndexes: func(self dataflow.NodeIndex) map[dataflow.NodeIndex]dataflow.LookupIndex {
			return map[dataflow.NodeIndex]dataflow.LookupIndex{base: dataflow.WeakLookup(weakTarget)}
		},
	})
	g.Connect(base, lookup)

	m := New()
	newNodes := []dataflow.NodeIndex{base, lookup}
	if err := m.Extend(g, newNodes, false); err != nil {
		t.Fatalf("extend: %v", err)
	}

	baseIdx, ok := m.IndexesFor(base)
	if !ok || !baseIdx.contains(weakTarget) {
		t.Fatalf("expected a strict hash index on column 1 paired with the weak request, got %v", baseIdx)
	}
	if !m.state.weak[base].contains(weakTarget) {
		t.Error("expected the weak index to be tracked in added_weak")
	}
}
