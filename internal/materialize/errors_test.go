package materialize

import (
	"strings"
	"testing"
)

func TestUnsupportedErrorMessage(t *testing.T) {
	err := &UnsupportedError{Reason: "straddled joins disabled"}
	if !strings.Contains(err.Error(), "straddled joins disabled") {
		t.Errorf("expected the reason in the error message, got %q", err.Error())
	}
	if !IsUnsupported(err) {
		t.Error("expected IsUnsupported to recognize an *UnsupportedError")
	}
	if IsUnsupported(&InternalInvariantError{Message: "x"}) {
		t.Error("expected IsUnsupported to reject other error types")
	}
}

func TestInvalidEdgeErrorMessage(t *testing.T) {
	err := &InvalidEdgeError{Parent: 1, Child: 2}
	if !strings.Contains(err.Error(), "1") || !strings.Contains(err.Error(), "2") {
		t.Errorf("expected both node indices in the message, got %q", err.Error())
	}
	if !IsInvalidEdge(err) {
		t.Error("expected IsInvalidEdge to recognize an *InvalidEdgeError")
	}
}

func TestWithDiagnosticAttachesOnlyToInternalInvariantError(t *testing.T) {
	iie := &InternalInvariantError{Message: "broken invariant"}
	withDiag := WithDiagnostic(iie, "digraph{}")

	got, ok := withDiag.(*InternalInvariantError)
	if !ok {
		t.Fatalf("expected *InternalInvariantError back, got %T", withDiag)
	}
	if got.Diagnostic != "digraph{}" {
		t.Errorf("expected the diagnostic to be attached, got %q", got.Diagnostic)
	}
	if !strings.Contains(got.Error(), "digraph{}") {
		t.Error("expected Error() to include the diagnostic dump")
	}

	other := &UnsupportedError{Reason: "x"}
	if WithDiagnostic(other, "digraph{}") != other {
		t.Error("expected WithDiagnostic to leave non-invariant errors untouched")
	}
}
