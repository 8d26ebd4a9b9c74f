package verify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/puresh/internal/ast"
)

// Level selects which checks run and how they are reported.
type Level string

const (
	// LevelNone skips verification.
	LevelNone Level = "none"

	// LevelBasic runs every check and reports everything as a warning.
	LevelBasic Level = "basic"

	// LevelStrict makes Injection and Determinism violations errors.
	LevelStrict Level = "strict"
)

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	switch l {
	case LevelNone, LevelBasic, LevelStrict:
		return true
	}
	return false
}

// Category groups violations by the property they break.
type Category string

const (
	CategoryInjection      Category = "injection"
	CategoryDeterminism    Category = "determinism"
	CategoryIdempotency    Category = "idempotency"
	CategoryResourceSafety Category = "resource_safety"
)

// Severity is how a violation affects the pipeline.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation codes (V200-V299)
const (
	CodeUnescapedSink     = "V201" // external data reaches an eval-class sink
	CodeNondetCommand     = "V202" // non-deterministic command
	CodeNondetVariable    = "V203" // non-deterministic parameter
	CodeNonIdempotent     = "V204" // mutating command without flag or guard
	CodeUnboundedLoop     = "V205" // constant-true loop with no exit
	CodeRecursiveFunction = "V206" // function call cycle
	CodeUnlimitedResource = "V207" // ulimit ... unlimited
)

// Violation is one finding.
type Violation struct {
	Code     string   `json:"code"`
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Command  string   `json:"command,omitempty"`
	Span     ast.Span `json:"span"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s [%s] %s", v.Span, v.Severity, v.Code, v.Message)
}

// Report collects the findings of one Verify call in traversal order.
type Report struct {
	Level      Level       `json:"level"`
	Violations []Violation `json:"violations"`
}

// Errors returns the violations that block emission.
func (r *Report) Errors() []Violation {
	return r.filter(SeverityError)
}

// Warnings returns advisory violations.
func (r *Report) Warnings() []Violation {
	return r.filter(SeverityWarning)
}

// ByCategory returns the violations in one category.
func (r *Report) ByCategory(c Category) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Category == c {
			out = append(out, v)
		}
	}
	return out
}

func (r *Report) filter(s Severity) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == s {
			out = append(out, v)
		}
	}
	return out
}

// Err returns a *VerificationError when the report holds blocking
// violations, and nil otherwise.
func (r *Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	return &VerificationError{Violations: errs}
}

// VerificationError carries the violations that blocked emission.
type VerificationError struct {
	Violations []Violation
}

func (e *VerificationError) Error() string {
	if len(e.Violations) == 1 {
		return "verify: " + e.Violations[0].String()
	}
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = v.String()
	}
	return fmt.Sprintf("verify: %d violations:\n  %s", len(e.Violations), strings.Join(lines, "\n  "))
}

// IsVerificationError reports whether err wraps a *VerificationError.
func IsVerificationError(err error) bool {
	var ve *VerificationError
	return errors.As(err, &ve)
}
