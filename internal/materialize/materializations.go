package materialize

import (
	"github.com/willibrandon/materializer/internal/dataflow"
	"github.com/willibrandon/materializer/internal/domain"
)

// Materializations is the controller-facing façade over State: it owns the
// commit-duration metrics alongside the planning state itself, mirroring
// how the reference implementation bundles bookkeeping and policy into one
// long-lived struct per graph.
type Materializations struct {
	state   *State
	metrics *CommitMetrics
}

// New creates an empty Materializations with default policy.
func New() *Materializations {
	return &Materializations{state: NewState(), metrics: NewCommitMetrics()}
}

// SetConfig replaces the policy applied to all future migrations.
func (m *Materializations) SetConfig(cfg Config) { m.state.SetConfig(cfg) }

// Config returns the policy currently in effect.
func (m *Materializations) Config() Config { return m.state.Config() }

// Extend computes and records the materializations needed to satisfy the
// obligations created by newNodes.
func (m *Materializations) Extend(g *dataflow.Graph, newNodes []dataflow.NodeIndex, recovery bool) error {
	return m.state.Extend(g, newNodes, recovery)
}

// Validate checks every invariant against the current, uncommitted state.
func (m *Materializations) Validate(g *dataflow.Graph, newNodes []dataflow.NodeIndex) (*InvalidEdgeError, error) {
	return m.state.Validate(g, newNodes)
}

// Commit commits to the accumulated decisions, appending domain messages
// to plan.
func (m *Materializations) Commit(g *dataflow.Graph, newNodes []dataflow.NodeIndex, plan *domain.MigrationPlan) error {
	return m.state.Commit(g, newNodes, plan)
}

// GetStatus reports a node's materialization status.
func (m *Materializations) GetStatus(ni dataflow.NodeIndex, n *dataflow.Node) MaterializationStatus {
	return m.state.GetStatus(ni, n)
}

// IsPartial reports whether a node is partially materialized.
func (m *Materializations) IsPartial(ni dataflow.NodeIndex) bool { return m.state.IsPartial(ni) }

// IndexesFor returns the indexes a node is materialized by.
func (m *Materializations) IndexesFor(ni dataflow.NodeIndex) (Indices, bool) {
	return m.state.IndexesFor(ni)
}

// MaterializedNonReaderNodes returns every materialized non-reader node.
func (m *Materializations) MaterializedNonReaderNodes(g *dataflow.Graph) []dataflow.NodeIndex {
	return m.state.MaterializedNonReaderNodes(g)
}

// PartialTags returns every tag recorded for replay paths into node.
func (m *Materializations) PartialTags(node dataflow.NodeIndex) []Tag {
	return m.state.PartialTags(node)
}

// GetRedundant reports the fully materialized duplicate of a partial node.
func (m *Materializations) GetRedundant(ni dataflow.NodeIndex) (dataflow.NodeIndex, bool) {
	return m.state.GetRedundant(ni)
}

// ExtendRedundantPartial records newly created full/partial duplicate
// pairs after rerouting.
func (m *Materializations) ExtendRedundantPartial(duplicates map[dataflow.NodeIndex]dataflow.NodeIndex) {
	m.state.ExtendRedundantPartial(duplicates)
}

// TagGenerator returns the last tag value this state minted (0 if none).
func (m *Materializations) TagGenerator() uint32 { return m.state.TagGenerator() }

// RestoreTagGenerator seeds the tag counter from a persisted value.
func (m *Materializations) RestoreTagGenerator(next uint32) { m.state.RestoreTagGenerator(next) }

// Redundant returns a snapshot of the full/partial duplicate map.
func (m *Materializations) Redundant() map[dataflow.NodeIndex]dataflow.NodeIndex {
	return m.state.Redundant()
}

// RestoreRedundant replaces the full/partial duplicate map from persisted
// state.
func (m *Materializations) RestoreRedundant(pairs map[dataflow.NodeIndex]dataflow.NodeIndex) {
	m.state.RestoreRedundant(pairs)
}

// Paths returns the replay paths recorded against node.
func (m *Materializations) Paths(node dataflow.NodeIndex) []PathRecord { return m.state.Paths(node) }

// RestorePaths re-seeds node's replay paths from persisted records.
func (m *Materializations) RestorePaths(node dataflow.NodeIndex, records []PathRecord) {
	m.state.RestorePaths(node, records)
}

// Metrics returns the commit-duration tracker.
func (m *Materializations) Metrics() *CommitMetrics { return m.metrics }

// State exposes the underlying planning state for callers (persistence,
// diagnostics) that need lower-level access than the façade provides.
func (m *Materializations) State() *State { return m.state }
