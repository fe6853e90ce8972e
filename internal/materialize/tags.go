package materialize

import "github.com/willibrandon/materializer/internal/dataflow"

// Tag is the monotonically increasing identifier assigned to a replay path.
// It is how domains correlate a StartReplay request with the eventual
// QueryReplayDone that finishes it.
type Tag uint32

// pathKey is the BiHashMap right-hand value the original implementation
// indexes replay paths by: the index being replayed, plus the ordered
// chain of nodes the path runs through. Two distinct migrations that
// happen to rebuild the identical path reuse its tag rather than minting
// a new one.
type pathKey struct {
	index string
	chain string
}

func newPathKey(index dataflow.Index, nodes []dataflow.NodeIndex) pathKey {
	chain := make([]byte, 0, len(nodes)*4)
	for _, n := range nodes {
		chain = append(chain, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	}
	return pathKey{index: index.Key(), chain: string(chain)}
}

// tagTable is a hand-rolled bijection between Tag and pathKey, scoped per
// target node (the node the path terminates at). It plays the role of the
// BiHashMap<Tag, (Index, Vec<NodeIndex>)> keyed by target node in the
// original: lookups run in both directions (tag -> target node, path ->
// tag for tag_for_path's reuse check) and nothing outside this
// package ever needs a general-purpose bimap type, so pulling in a
// dependency for it isn't worth it.
type tagTable struct {
	byTarget map[dataflow.NodeIndex]map[pathKey]Tag
	byTag    map[Tag]dataflow.NodeIndex
}

func newTagTable() *tagTable {
	return &tagTable{
		byTarget: make(map[dataflow.NodeIndex]map[pathKey]Tag),
		byTag:    make(map[Tag]dataflow.NodeIndex),
	}
}

func (t *tagTable) lookup(target dataflow.NodeIndex, key pathKey) (Tag, bool) {
	forTarget, ok := t.byTarget[target]
	if !ok {
		return 0, false
	}
	tag, ok := forTarget[key]
	return tag, ok
}

func (t *tagTable) insert(target dataflow.NodeIndex, key pathKey, tag Tag) {
	if t.byTarget[target] == nil {
		t.byTarget[target] = make(map[pathKey]Tag)
	}
	t.byTarget[target][key] = tag
	t.byTag[tag] = target
}

func (t *tagTable) targetFor(tag Tag) (dataflow.NodeIndex, bool) {
	target, ok := t.byTag[tag]
	return target, ok
}
