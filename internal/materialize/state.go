package materialize

import (
	"github.com/willibrandon/materializer/internal/dataflow"
)

// Indices is the set of indexes a node is materialized by, keyed
// internally by each Index's canonical string form since Index carries a
// Columns slice and so isn't itself comparable.
type Indices map[string]dataflow.Index

// newIndices builds an Indices set from the given indexes.
func newIndices(idxs ...dataflow.Index) Indices {
	s := make(Indices, len(idxs))
	for _, idx := range idxs {
		s.add(idx)
	}
	return s
}

func (s Indices) clone() Indices {
	out := make(Indices, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s Indices) add(idx dataflow.Index) bool {
	k := idx.Key()
	if _, ok := s[k]; ok {
		return false
	}
	s[k] = idx
	return true
}

func (s Indices) contains(idx dataflow.Index) bool {
	_, ok := s[idx.Key()]
	return ok
}

// FrontierStrategy picks which partial materializations are placed beyond
// the materialization frontier (allowed to evict state and reconstruct it
// on demand), independent of whatever individual nodes request. Nodes
// named with a SHALLOW_ prefix are always placed beyond the frontier no
// matter what this is set to. The FULL_ prefix is not consulted here; it
// only forces the ancestors of such a node to be fully materialized.
type FrontierStrategy int

const (
	// FrontierNone places no nodes beyond the frontier.
	FrontierNone FrontierStrategy = iota
	// FrontierAllPartial places every partial materialization beyond the
	// frontier.
	FrontierAllPartial
	// FrontierReaders places every partial reader beyond the frontier.
	FrontierReaders
)

// Config controls policy the planner enforces across every migration.
type Config struct {
	// PacketFiltersEnabled records whether egresses feeding readers are
	// to get packet filters. No planner step reads it, and the planner
	// installs no packet filters.
	PacketFiltersEnabled bool
	// AllowFullMaterialization permits migrations that would otherwise be
	// rejected with UnsupportedError because they require a fully
	// materialized node.
	AllowFullMaterialization bool
	// AllowStraddledJoins records whether joins whose partial key traces
	// back to both parents at once are allowed. No planner step reads it:
	// a straddled key yields a broken replay path whatever its value, and
	// no migration is rejected because of it.
	AllowStraddledJoins bool
	// FrontierStrategy selects which partial materializations are placed
	// beyond the frontier.
	FrontierStrategy FrontierStrategy
	// PartialEnabled controls whether partial materialization is
	// considered at all; when false no node is made partial, and a
	// migration that needs a non-base node materialized fails with
	// UnsupportedError unless AllowFullMaterialization is set.
	PartialEnabled bool
}

// DefaultConfig returns the policy a fresh State starts with.
func DefaultConfig() Config {
	return Config{
		PacketFiltersEnabled:     false,
		AllowFullMaterialization: false,
		AllowStraddledJoins:      false,
		FrontierStrategy:         FrontierNone,
		PartialEnabled:           true,
	}
}

// pathRecord is one committed replay path, as stored against the node it
// terminates at.
type pathRecord struct {
	tag   Tag
	index dataflow.Index
	nodes []dataflow.NodeIndex
}

// State holds the authoritative record of which nodes in a graph are
// materialized, how they are indexed, and the replay paths that
// reconstruct their partial state. It is built up across calls to Extend,
// which write their decisions into it directly. State keeps no snapshot
// of its committed contents, so a failed or abandoned migration leaves
// whatever those calls recorded in place.
//
// State is not safe for concurrent use. Like the dataflow graph it
// describes, it is owned by a single migration-control thread; concurrent
// access belongs at a layer above this package, not inside it.
type State struct {
	have    map[dataflow.NodeIndex]Indices
	had     map[dataflow.NodeIndex]struct{}
	added   map[dataflow.NodeIndex]Indices
	weak    map[dataflow.NodeIndex]Indices
	readers map[dataflow.NodeIndex]struct{}

	paths   map[dataflow.NodeIndex][]pathRecord
	tags    *tagTable
	nextTag Tag

	redundant map[dataflow.NodeIndex]dataflow.NodeIndex
	partial   map[dataflow.NodeIndex]struct{}

	config Config
}

// NewState creates an empty materialization state with default policy.
func NewState() *State {
	return &State{
		have:      make(map[dataflow.NodeIndex]Indices),
		had:       make(map[dataflow.NodeIndex]struct{}),
		added:     make(map[dataflow.NodeIndex]Indices),
		weak:      make(map[dataflow.NodeIndex]Indices),
		readers:   make(map[dataflow.NodeIndex]struct{}),
		paths:     make(map[dataflow.NodeIndex][]pathRecord),
		tags:      newTagTable(),
		redundant: make(map[dataflow.NodeIndex]dataflow.NodeIndex),
		partial:   make(map[dataflow.NodeIndex]struct{}),
		config:    DefaultConfig(),
	}
}

// SetConfig replaces the policy applied to all future migrations.
func (s *State) SetConfig(cfg Config) { s.config = cfg }

// Config returns the policy currently in effect.
func (s *State) Config() Config { return s.config }

// GetRedundant reports the fully materialized duplicate of a partial node,
// if rerouting created one.
func (s *State) GetRedundant(ni dataflow.NodeIndex) (dataflow.NodeIndex, bool) {
	dup, ok := s.redundant[ni]
	return dup, ok
}

// ExtendRedundantPartial records newly created full/partial duplicate
// pairs after rerouting.
func (s *State) ExtendRedundantPartial(duplicates map[dataflow.NodeIndex]dataflow.NodeIndex) {
	for k, v := range duplicates {
		s.redundant[k] = v
	}
}

// IndexesFor returns the indexes a node is materialized by, or (nil,
// false) if it isn't materialized.
func (s *State) IndexesFor(ni dataflow.NodeIndex) (Indices, bool) {
	idx, ok := s.have[ni]
	return idx, ok
}

// IsPartial reports whether a node is partially materialized. Returns
// false both when the node isn't partial and when it isn't materialized
// at all.
func (s *State) IsPartial(ni dataflow.NodeIndex) bool {
	_, ok := s.partial[ni]
	return ok
}

func (s *State) nextTagValue() Tag {
	s.nextTag++
	return s.nextTag
}

// tagForPath reuses the tag already assigned to an identical (index,
// node-chain) path targeting the same node, minting a fresh one otherwise.
func (s *State) tagForPath(target dataflow.NodeIndex, index dataflow.Index, nodes []dataflow.NodeIndex) Tag {
	key := newPathKey(index, nodes)
	if tag, ok := s.tags.lookup(target, key); ok {
		return tag
	}
	tag := s.nextTagValue()
	s.tags.insert(target, key, tag)
	s.paths[target] = append(s.paths[target], pathRecord{tag: tag, index: index, nodes: append([]dataflow.NodeIndex(nil), nodes...)})
	return tag
}

// PartialTags returns every tag currently recorded for paths into node.
func (s *State) PartialTags(node dataflow.NodeIndex) []Tag {
	var out []Tag
	for _, p := range s.paths[node] {
		out = append(out, p.tag)
	}
	return out
}

// TagGenerator returns the last tag value this state minted (0 if none;
// the next tag minted is one greater), for persistence alongside the rest
// of the durable state.
func (s *State) TagGenerator() uint32 { return uint32(s.nextTag) }

// RestoreTagGenerator seeds the tag counter from a persisted value, so
// recovery never reissues a tag already handed to a live domain.
func (s *State) RestoreTagGenerator(next uint32) { s.nextTag = Tag(next) }

// Redundant returns a snapshot of the full/partial duplicate map, for
// persistence.
func (s *State) Redundant() map[dataflow.NodeIndex]dataflow.NodeIndex {
	out := make(map[dataflow.NodeIndex]dataflow.NodeIndex, len(s.redundant))
	for k, v := range s.redundant {
		out[k] = v
	}
	return out
}

// RestoreRedundant replaces the full/partial duplicate map wholesale, for
// recovery from persisted state.
func (s *State) RestoreRedundant(pairs map[dataflow.NodeIndex]dataflow.NodeIndex) {
	s.redundant = make(map[dataflow.NodeIndex]dataflow.NodeIndex, len(pairs))
	for k, v := range pairs {
		s.redundant[k] = v
	}
}

// PathRecord is the exported view of a committed replay path, for
// persistence.
type PathRecord struct {
	Tag   Tag
	Index dataflow.Index
	Nodes []dataflow.NodeIndex
}

// Paths returns the replay paths recorded against node, for persistence.
func (s *State) Paths(node dataflow.NodeIndex) []PathRecord {
	recs := s.paths[node]
	out := make([]PathRecord, len(recs))
	for i, r := range recs {
		out[i] = PathRecord{Tag: r.tag, Index: r.index, Nodes: append([]dataflow.NodeIndex(nil), r.nodes...)}
	}
	return out
}

// RestorePaths re-seeds node's replay paths (and the tag table entries
// that make tagForPath reuse them) from persisted records, without minting
// fresh tags.
func (s *State) RestorePaths(node dataflow.NodeIndex, records []PathRecord) {
	for _, r := range records {
		key := newPathKey(r.Index, r.Nodes)
		s.tags.insert(node, key, r.Tag)
		s.paths[node] = append(s.paths[node], pathRecord{tag: r.Tag, index: r.Index, nodes: append([]dataflow.NodeIndex(nil), r.Nodes...)})
	}
}

// MaterializedNonReaderNodes returns every materialized node that is not a
// reader, in insertion order.
func (s *State) MaterializedNonReaderNodes(g *dataflow.Graph) []dataflow.NodeIndex {
	var out []dataflow.NodeIndex
	for _, ni := range g.NodeIndices() {
		if _, ok := s.have[ni]; !ok {
			continue
		}
		if g.Node(ni).IsReader() {
			continue
		}
		out = append(out, ni)
	}
	return out
}
