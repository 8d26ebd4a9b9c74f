package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/puresh/internal/purify"
	"github.com/roach88/puresh/internal/verify"
)

func intp(n int) *int { return &n }

func sampleResult() *Result {
	res := NewResult()
	res.Outcome = OutcomeCompiled
	res.Script = "#!/bin/sh\nmkdir -p /app\nrm -f /tmp/x\necho done\n"
	res.Fixes = []purify.Fix{
		{Kind: purify.FixIdempotency, Subject: "mkdir"},
		{Kind: purify.FixIdempotency, Subject: "rm"},
		{Kind: purify.FixDeterminism, Subject: "RANDOM"},
	}
	res.Warnings = []verify.Violation{
		{Code: verify.CodeNonIdempotent},
		{Code: verify.CodeNonIdempotent},
		{Code: verify.CodeUnlimitedResource},
	}
	return res
}

func TestCheckAssertion(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"contains", Assertion{Type: AssertScriptContains, Text: "rm -f /tmp/x"}, ""},
		{"contains missing", Assertion{Type: AssertScriptContains, Text: "rm -rf"}, `script containing "rm -rf"`},
		{"excludes", Assertion{Type: AssertScriptExcludes, Text: "$RANDOM"}, ""},
		{"excludes present", Assertion{Type: AssertScriptExcludes, Text: "echo"}, `script without "echo"`},
		{"line order", Assertion{Type: AssertLineOrder, Lines: []string{"mkdir", "rm", "echo"}}, ""},
		{"line order gaps", Assertion{Type: AssertLineOrder, Lines: []string{"#!/bin/sh", "echo"}}, ""},
		{"line order reversed", Assertion{Type: AssertLineOrder, Lines: []string{"rm", "mkdir"}}, `no line containing "mkdir" after line 3`},
		{"line order same line twice", Assertion{Type: AssertLineOrder, Lines: []string{"mkdir", "mkdir"}}, `no line containing "mkdir"`},
		{"fix count", Assertion{Type: AssertFixCount, Count: intp(3)}, ""},
		{"fix count kind", Assertion{Type: AssertFixCount, Kind: "idempotency", Count: intp(2)}, ""},
		{"fix count wrong", Assertion{Type: AssertFixCount, Kind: "determinism", Count: intp(0)}, "actual: 1 determinism fixes"},
		{"warning present", Assertion{Type: AssertWarning, Code: verify.CodeUnlimitedResource}, ""},
		{"warning exact", Assertion{Type: AssertWarning, Code: verify.CodeNonIdempotent, Count: intp(2)}, ""},
		{"warning absent", Assertion{Type: AssertWarning, Code: verify.CodeUnescapedSink}, "at least one V201 warning"},
		{"warning absent zero", Assertion{Type: AssertWarning, Code: verify.CodeUnescapedSink, Count: intp(0)}, ""},
		{"warning count", Assertion{Type: AssertWarningCount, Count: intp(3)}, ""},
		{"warning count wrong", Assertion{Type: AssertWarningCount, Count: intp(0)}, "3 warnings [V204 V204 V207]"},
		{"unknown", Assertion{Type: "final_state"}, `unknown assertion type "final_state"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkAssertion(tt.assertion, sampleResult())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertScriptContains,
		Expected: `script containing "x"`,
		Actual:   "not found",
		Script:   "#!/bin/sh\necho hi\n",
	}
	msg := err.Error()
	assert.Contains(t, msg, "assertion failed: script_contains")
	assert.Contains(t, msg, `expected: script containing "x"`)
	assert.Contains(t, msg, "actual: not found")
	assert.Contains(t, msg, "    2  echo hi")

	bare := (&AssertionError{Type: AssertFixCount, Expected: "1", Actual: "2"}).Error()
	assert.NotContains(t, bare, "script:")
}
