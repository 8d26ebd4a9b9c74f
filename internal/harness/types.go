package harness

import (
	"github.com/roach88/puresh/internal/compiler"
	"github.com/roach88/puresh/internal/purify"
	"github.com/roach88/puresh/internal/verify"
)

// Run outcomes.
const (
	OutcomeCompiled = "compiled"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// KindDecode marks a tree document that could not be decoded.
const KindDecode compiler.ErrorKind = "decode"

// Result is what a scenario run produced and whether it matched.
type Result struct {
	// Pass is true when the outcome, assertions, principles and golden
	// text all matched.
	Pass bool `json:"pass"`

	Outcome  string             `json:"outcome"`
	Script   string             `json:"script,omitempty"`
	Digest   string             `json:"digest,omitempty"`
	Fixes    []purify.Fix       `json:"fixes"`
	Warnings []verify.Violation `json:"warnings"`

	// Kind, Codes and Detail describe the error that stopped a rejected or
	// failed run.
	Kind   compiler.ErrorKind `json:"kind,omitempty"`
	Codes  []string           `json:"codes,omitempty"`
	Detail string             `json:"detail,omitempty"`

	// Errors lists every mismatch. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result with no output.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Fixes:    []purify.Fix{},
		Warnings: []verify.Violation{},
		Errors:   []string{},
	}
}

// AddError records a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// ScenarioResult pairs a scenario file with its run. Err is set instead of
// Result when the scenario could not be loaded or run.
type ScenarioResult struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	Result *Result `json:"result,omitempty"`
	Err    string  `json:"error,omitempty"`
}

// Passed reports whether the scenario ran and matched.
func (sr ScenarioResult) Passed() bool {
	return sr.Err == "" && sr.Result != nil && sr.Result.Pass
}

// Summary is the outcome of running a directory of scenarios.
type Summary struct {
	Total   int              `json:"total"`
	Passed  int              `json:"passed"`
	Failed  int              `json:"failed"`
	Results []ScenarioResult `json:"results"`
}
