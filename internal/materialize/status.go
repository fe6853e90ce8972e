package materialize

import "github.com/willibrandon/materializer/internal/dataflow"

// StatusKind distinguishes the three materialization states a node can be
// in.
type StatusKind int

const (
	StatusNot StatusKind = iota
	StatusPartial
	StatusFull
)

// MaterializationStatus reports whether, and how, a node is materialized.
// BeyondFrontier is only meaningful when Kind is StatusPartial.
type MaterializationStatus struct {
	Kind           StatusKind
	BeyondFrontier bool
}

// GetStatus reports the materialization status of a node.
func (s *State) GetStatus(ni dataflow.NodeIndex, n *dataflow.Node) MaterializationStatus {
	_, materialized := s.have[ni]
	if !materialized {
		if reader, ok := n.AsReader(); ok {
			materialized = reader.IsMaterialized()
		}
	}

	if !materialized {
		return MaterializationStatus{Kind: StatusNot}
	}
	if s.IsPartial(ni) {
		return MaterializationStatus{Kind: StatusPartial, BeyondFrontier: n.Purge}
	}
	return MaterializationStatus{Kind: StatusFull}
}
