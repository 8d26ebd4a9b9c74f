package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/puresh/internal/purify"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Script   string // Emitted script for context
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual: %s\n", e.Actual)
	if e.Script != "" {
		fmt.Fprintf(&buf, "\nscript:\n")
		for i, line := range strings.Split(strings.TrimSuffix(e.Script, "\n"), "\n") {
			fmt.Fprintf(&buf, "  %3d  %s\n", i+1, line)
		}
	}
	return buf.String()
}

// checkAssertion dispatches a by type.
func checkAssertion(a Assertion, res *Result) error {
	switch a.Type {
	case AssertScriptContains:
		return assertScriptContains(res, a)
	case AssertScriptExcludes:
		return assertScriptExcludes(res, a)
	case AssertLineOrder:
		return assertLineOrder(res, a)
	case AssertFixCount:
		return assertFixCount(res, a)
	case AssertWarning:
		return assertWarning(res, a)
	case AssertWarningCount:
		return assertWarningCount(res, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertScriptContains(res *Result, a Assertion) error {
	if strings.Contains(res.Script, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertScriptContains,
		Expected: fmt.Sprintf("script containing %q", a.Text),
		Actual:   "not found",
		Script:   res.Script,
	}
}

func assertScriptExcludes(res *Result, a Assertion) error {
	if !strings.Contains(res.Script, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertScriptExcludes,
		Expected: fmt.Sprintf("script without %q", a.Text),
		Actual:   "found",
		Script:   res.Script,
	}
}

// assertLineOrder requires each entry of a.Lines to match a later script
// line than the previous one. Lines need not be consecutive.
func assertLineOrder(res *Result, a Assertion) error {
	lines := strings.Split(res.Script, "\n")
	next := 0
	for _, want := range a.Lines {
		found := -1
		for i := next; i < len(lines); i++ {
			if strings.Contains(lines[i], want) {
				found = i
				break
			}
		}
		if found < 0 {
			return &AssertionError{
				Type:     AssertLineOrder,
				Expected: fmt.Sprintf("lines in order %q", a.Lines),
				Actual:   fmt.Sprintf("no line containing %q after line %d", want, next),
				Script:   res.Script,
			}
		}
		next = found + 1
	}
	return nil
}

func assertFixCount(res *Result, a Assertion) error {
	got := len(res.Fixes)
	what := "fixes"
	if a.Kind != "" {
		got = 0
		for _, f := range res.Fixes {
			if f.Kind == purify.FixKind(a.Kind) {
				got++
			}
		}
		what = a.Kind + " fixes"
	}
	if got == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertFixCount,
		Expected: fmt.Sprintf("%d %s", *a.Count, what),
		Actual:   fmt.Sprintf("%d %s", got, what),
	}
}

// assertWarning requires at least one warning with a.Code, or exactly
// a.Count of them when Count is set.
func assertWarning(res *Result, a Assertion) error {
	got := 0
	for _, w := range res.Warnings {
		if w.Code == a.Code {
			got++
		}
	}
	if (a.Count == nil && got > 0) || (a.Count != nil && got == *a.Count) {
		return nil
	}
	expected := "at least one " + a.Code + " warning"
	if a.Count != nil {
		expected = fmt.Sprintf("%d %s warnings", *a.Count, a.Code)
	}
	return &AssertionError{
		Type:     AssertWarning,
		Expected: expected,
		Actual:   fmt.Sprintf("%d in %s", got, warningCodes(res)),
	}
}

func assertWarningCount(res *Result, a Assertion) error {
	if len(res.Warnings) == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertWarningCount,
		Expected: fmt.Sprintf("%d warnings", *a.Count),
		Actual:   fmt.Sprintf("%d warnings %s", len(res.Warnings), warningCodes(res)),
	}
}

func warningCodes(res *Result) string {
	codes := make([]string, len(res.Warnings))
	for i, w := range res.Warnings {
		codes[i] = w.Code
	}
	return "[" + strings.Join(codes, " ") + "]"
}
