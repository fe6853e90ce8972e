package materialize

import (
	"testing"

	"github.com/willibrandon/materializer/internal/dataflow"
)

func TestTagForPathMintsFreshTagsAndReusesIdenticalPaths(t *testing.T) {
	s := NewState()
	target := dataflow.NodeIndex(1)
	idx := dataflow.HashIndex(0)
	chain := []dataflow.NodeIndex{2, 1}

	first := s.tagForPath(target, idx, chain)
	second := s.tagForPath(target, idx, chain)
	if first != second {
		t.Errorf("expected an identical (index, chain) pair to reuse its tag: got %d then %d", first, second)
	}

	other := s.tagForPath(target, dataflow.HashIndex(1), chain)
	if other == first {
		t.Error("expected a different index to mint a fresh tag")
	}
}

func TestTagForPathScopesReuseToTargetNode(t *testing.T) {
	s := NewState()
	idx := dataflow.HashIndex(0)
	chain := []dataflow.NodeIndex{2}

	a := s.tagForPath(dataflow.NodeIndex(1), idx, chain)
	b := s.tagForPath(dataflow.NodeIndex(3), idx, chain)
	if a == b {
		t.Error("expected the same (index, chain) pair against different target nodes to mint distinct tags")
	}
}

func TestRestorePathsSeedsTagReuseWithoutMintingFreshTags(t *testing.T) {
	s := NewState()
	target := dataflow.NodeIndex(5)
	idx := dataflow.HashIndex(2)
	chain := []dataflow.NodeIndex{7, 5}

	s.RestorePaths(target, []PathRecord{{Tag: 42, Index: idx, Nodes: chain}})

	reused := s.tagForPath(target, idx, chain)
	if reused != 42 {
		t.Errorf("expected tagForPath to reuse the restored tag 42, got %d", reused)
	}
	if s.TagGenerator() != 0 {
		t.Errorf("expected RestorePaths not to advance the tag generator, got %d", s.TagGenerator())
	}
}

func TestTagGeneratorRoundTrips(t *testing.T) {
	s := NewState()
	s.tagForPath(dataflow.NodeIndex(1), dataflow.HashIndex(0), []dataflow.NodeIndex{1})
	s.tagForPath(dataflow.NodeIndex(1), dataflow.HashIndex(1), []dataflow.NodeIndex{1})

	next := s.TagGenerator()
	if next != 2 {
		t.Fatalf("expected tag generator to have advanced to 2, got %d", next)
	}

	fresh := NewState()
	fresh.RestoreTagGenerator(next)
	if fresh.TagGenerator() != next {
		t.Errorf("expected restored tag generator to equal %d, got %d", next, fresh.TagGenerator())
	}
	newTag := fresh.tagForPath(dataflow.NodeIndex(9), dataflow.HashIndex(9), []dataflow.NodeIndex{9})
	if newTag <= Tag(next) {
		t.Errorf("expected a freshly minted tag to exceed the restored generator value, got %d", newTag)
	}
}
