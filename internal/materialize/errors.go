package materialize

import (
	"errors"
	"fmt"

	"github.com/willibrandon/materializer/internal/dataflow"
)

// UnsupportedError is returned when a migration asks for something the
// planner refuses on policy grounds rather than because the graph is
// malformed: a full materialization request when the config disallows it,
// a straddled join when straddled joins are disabled, and so on. Callers
// should surface it to the user rather than treat it as a bug.
type UnsupportedError struct {
	Reason string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("materialize: unsupported: %s", e.Reason)
}

// InvalidEdgeError means the materializations chosen for the graph are
// structurally wrong: Validate returns it when a fully materialized node
// ended up below a partially materialized one, naming the edge between
// them. The migration should reroute around it rather than proceed.
type InvalidEdgeError struct {
	Parent dataflow.NodeIndex
	Child  dataflow.NodeIndex
}

func (e *InvalidEdgeError) Error() string {
	return fmt.Sprintf("materialize: invalid edge %d -> %d", e.Parent, e.Child)
}

// InternalInvariantError signals a bug in the planner itself: an invariant
// that must always hold (no overlapping partial indexes, no node beyond
// the frontier above one that is not, ...) was found violated. Diagnostic carries
// a human-readable dump (typically Graphviz) captured at the point of
// failure.
type InternalInvariantError struct {
	Message    string
	Diagnostic string
}

func (e *InternalInvariantError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("materialize: internal invariant violated: %s", e.Message)
	}
	return fmt.Sprintf("materialize: internal invariant violated: %s\n%s", e.Message, e.Diagnostic)
}

// IsUnsupported reports whether err is (or wraps) an UnsupportedError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedError
	return errors.As(err, &ue)
}

// IsInvalidEdge reports whether err is (or wraps) an InvalidEdgeError.
func IsInvalidEdge(err error) bool {
	var ie *InvalidEdgeError
	return errors.As(err, &ie)
}

// WithDiagnostic attaches a human-readable dump to err if it is an
// *InternalInvariantError, leaving any other error untouched. Callers
// capture the dump (typically a Graphviz rendering of the graph and
// state at the point of failure) in a layer above this package, since
// that rendering depends on the dataflow graph the planner was called
// with and this package has no reason to import a renderer itself.
func WithDiagnostic(err error, diagnostic string) error {
	if iie, ok := err.(*InternalInvariantError); ok {
		return &InternalInvariantError{Message: iie.Message, Diagnostic: diagnostic}
	}
	return err
}
