package purify

import (
	"fmt"

	"github.com/roach88/puresh/internal/ast"
)

// FixKind categorizes a logged fix.
type FixKind string

const (
	// FixDeterminism marks a non-deterministic value replaced by a constant.
	FixDeterminism FixKind = "determinism"

	// FixIdempotency marks a command rewritten to tolerate re-runs.
	FixIdempotency FixKind = "idempotency"
)

// Fix is one rewrite applied by the purifier.
type Fix struct {
	Kind FixKind `json:"kind"`

	// Subject is the variable name (determinism) or command name
	// (idempotency) that was rewritten.
	Subject string `json:"subject"`

	Message string `json:"message"`

	// Assumption states what must hold for the rewrite to preserve intent.
	Assumption string `json:"assumption"`

	Span ast.Span `json:"span"`
}

// String renders the fix as a single diagnostic line.
func (f Fix) String() string {
	return fmt.Sprintf("%s: %s fix: %s (assumes %s)", f.Span, f.Kind, f.Message, f.Assumption)
}

// Report is the append-only log of fixes from one purification run.
type Report struct {
	Fixes []Fix `json:"fixes"`
}

func (r *Report) add(f Fix) {
	r.Fixes = append(r.Fixes, f)
}

// Count returns how many fixes of the given kind were logged.
func (r *Report) Count(kind FixKind) int {
	n := 0
	for _, f := range r.Fixes {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Len returns the total number of fixes.
func (r *Report) Len() int {
	return len(r.Fixes)
}
