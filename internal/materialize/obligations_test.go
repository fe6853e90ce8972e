package materialize

import (
	"testing"

	"github.com/willibrandon/materializer/internal/dataflow"
)

func TestCollectObligationsGivesBaseAPlaceholderIndex(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id", "value"}, dataflow.NodeOpts{Domain: 0})

	lookups, replays, readers := collectObligations(g, []dataflow.NodeIndex{base})

	if len(readers) != 0 {
		t.Errorf("expected no new readers, got %v", readers)
	}
	if len(replays) != 0 {
		t.Errorf("expected no replay obligations from a bare base table, got %v", replays)
	}
	obligation, ok := lookups[base]
	if !ok {
		t.Fatal("expected a placeholder lookup obligation targeting the base table itself")
	}
	if !obligation.Contains(dataflow.StrictLookup(dataflow.HashIndex(0))) {
		t.Errorf("expected the placeholder to be a strict hash index on column 0, got %v", obligation)
	}
}

func TestCollectObligationsRecordsSuggestionTargetingBase(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id"}, dataflow.NodeOpts{Domain: 0})
	internal := g.AddInternal("i", []string{"id"}, dataflow.NodeOpts{
		Domain: 0,
		SuggestIndexes: func(self dataflow.NodeIndex) map[dataflow.NodeIndex]dataflow.LookupIndex {
			return map[dataflow.NodeIndex]dataflow.LookupIndex{base: dataflow.StrictLookup(dataflow.HashIndex(1))}
		},
	})
	g.Connect(base, internal)

	lookups, _, _ := collectObligations(g, []dataflow.NodeIndex{internal})

	obligation, ok := lookups[base]
	if !ok {
		t.Fatal("expected the internal node's suggestion to target the base table")
	}
	if !obligation.Contains(dataflow.StrictLookup(dataflow.HashIndex(1))) {
		t.Errorf("expected the suggested hash index on column 1, got %v", obligation)
	}
}

func TestCollectObligationsReaderWithKeyCreatesReplayObligationOnItself(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id"}, dataflow.NodeOpts{Domain: 0})
	key := dataflow.HashIndex(0)
	reader := g.AddReader("r", &key, false, dataflow.NodeOpts{Domain: 1})
	g.Connect(base, reader)

	lookups, replays, readers := collectObligations(g, []dataflow.NodeIndex{reader})

	if len(lookups) != 0 {
		t.Errorf("expected no lookup obligations from a reader, got %v", lookups)
	}
	if _, ok := readers[reader]; !ok {
		t.Error("expected the reader to be recorded as a new reader")
	}
	indices, ok := replays[reader]
	if !ok {
		t.Fatal("expected a replay obligation targeting the reader itself")
	}
	if !indices.contains(key) {
		t.Errorf("expected the replay obligation to match the reader's key, got %v", indices)
	}
}

func TestCollectObligationsStreamingReaderHasNoObligation(t *testing.T) {
	g := dataflow.NewGraph()
	base := g.AddBase("b", []string{"id"}, dataflow.NodeOpts{Domain: 0})
	reader := g.AddReader("r", nil, false, dataflow.NodeOpts{Domain: 1})
	g.Connect(base, reader)

	lookups, replays, readers := collectObligations(g, []dataflow.NodeIndex{reader})

	if len(lookups) != 0 || len(replays) != 0 || len(readers) != 0 {
		t.Errorf("expected a streaming reader (nil key) to create no obligations at all, got lookups=%v replays=%v readers=%v", lookups, replays, readers)
	}
}
