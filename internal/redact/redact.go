// Package redact provides a runtime-togglable wrapper for values that
// should not appear in diagnostics shipped outside a trusted operator
// session — node names and column values embedded in a Graphviz dump, for
// instance. Go has no compile-time feature flags, so the toggle here is a
// package-level runtime switch instead of the cfg-gated constant the
// original redaction wrapper used.
package redact

import (
	"fmt"
	"sync/atomic"
)

var enabled atomic.Bool

// SetEnabled turns redaction on or off for the whole process. Diagnostic
// surfaces (Graphviz dumps, status trees) check this at render time, so
// toggling it affects anything rendered afterward.
func SetEnabled(v bool) { enabled.Store(v) }

// Enabled reports the current redaction setting.
func Enabled() bool { return enabled.Load() }

// Sensitive wraps a value whose String() should print "<redacted>" when
// redaction is enabled, and its normal representation otherwise.
type Sensitive[T any] struct {
	Value T
}

// Of wraps v as Sensitive.
func Of[T any](v T) Sensitive[T] { return Sensitive[T]{Value: v} }

func (s Sensitive[T]) String() string {
	if enabled.Load() {
		return "<redacted>"
	}
	return fmt.Sprintf("%v", s.Value)
}

// RedactedString is a named string whose String() honors the same runtime
// toggle, for fields that are already plain strings rather than generic
// values.
type RedactedString string

func (r RedactedString) String() string {
	if enabled.Load() {
		return "<redacted>"
	}
	return string(r)
}
