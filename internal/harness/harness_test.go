package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/puresh/internal/compiler"
	"github.com/roach88/puresh/internal/purify"
	"github.com/roach88/puresh/internal/verify"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

// =============================================================================
// Bundled scenarios
// =============================================================================

func TestRun_AllScenariosPass(t *testing.T) {
	paths, err := ScenarioFiles("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			res, err := Run(s)
			require.NoError(t, err)
			assert.True(t, res.Pass, "errors: %v", res.Errors)
			assert.Empty(t, res.Errors)
		})
	}
}

func TestRun_Compiled(t *testing.T) {
	res, err := Run(loadTestScenario(t, "deploy"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompiled, res.Outcome)
	assert.Contains(t, res.Script, "mkdir -p")
	assert.Len(t, res.Digest, 64)
	require.Len(t, res.Fixes, 2)
	assert.Equal(t, "mkdir", res.Fixes[0].Subject)
	assert.Equal(t, "rm", res.Fixes[1].Subject)
	assert.Equal(t, purify.FixIdempotency, res.Fixes[1].Kind)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Kind)
	assert.Empty(t, res.Codes)
}

func TestRun_Rejected(t *testing.T) {
	res, err := Run(loadTestScenario(t, "eval_rejected"))
	require.NoError(t, err)

	assert.True(t, res.Pass, "errors: %v", res.Errors)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, compiler.KindVerification, res.Kind)
	assert.Equal(t, []string{verify.CodeUnescapedSink}, res.Codes)
	assert.Contains(t, res.Detail, "eval")
	assert.Empty(t, res.Script)
}

func TestRun_DecodeFailure(t *testing.T) {
	res, err := Run(loadTestScenario(t, "broken"))
	require.NoError(t, err)

	assert.True(t, res.Pass, "errors: %v", res.Errors)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, KindDecode, res.Kind)
	assert.Contains(t, res.Detail, `unknown statement kind "loop"`)
}

// =============================================================================
// Mismatches
// =============================================================================

func TestRun_WrongOutcome(t *testing.T) {
	s := loadTestScenario(t, "eval_rejected")
	s.Expect = Expect{Outcome: OutcomeCompiled}

	res, err := Run(s)
	require.NoError(t, err)
	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "expected outcome compiled, got rejected: verify:")
}

func TestRun_WrongKindAndCodes(t *testing.T) {
	s := loadTestScenario(t, "invalid_name")
	s.Expect = Expect{Outcome: OutcomeRejected, Kind: "verification", Codes: []string{"E102"}}

	res, err := Run(s)
	require.NoError(t, err)
	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "expected error kind verification, got validation")
	assert.Contains(t, res.Errors[1], "expected codes [E102], got [E101]")
}

func TestRun_FailedAssertion(t *testing.T) {
	s := loadTestScenario(t, "seed")
	count := 3
	s.Assertions = append(s.Assertions, Assertion{Type: AssertFixCount, Count: &count})

	res, err := Run(s)
	require.NoError(t, err)
	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "assertions[2]:")
	assert.Contains(t, res.Errors[0], "expected: 3 fixes")
}

func TestRun_GoldenMismatch(t *testing.T) {
	s := loadTestScenario(t, "seed")
	s.Golden = filepath.Join(t.TempDir(), "seed.golden")
	require.NoError(t, os.WriteFile(s.Golden, []byte("#!/bin/sh\nseed=2\n"), 0o644))

	res, err := Run(s)
	require.NoError(t, err)
	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "golden: script differs")
	assert.Contains(t, res.Errors[0], "seed=2")
}

func TestRun_GoldenMissing(t *testing.T) {
	s := loadTestScenario(t, "seed")
	s.Golden = filepath.Join(t.TempDir(), "none.golden")

	res, err := Run(s)
	require.NoError(t, err)
	assert.False(t, res.Pass)
	assert.Contains(t, res.Errors[0], "golden:")
}

func TestRun_MissingScript(t *testing.T) {
	s := loadTestScenario(t, "seed")
	s.Script = filepath.Join(t.TempDir(), "gone.yaml")

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read tree document")
}
