package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// compileJSON decodes the data payload of a successful JSON compile.
func compileJSON(t *testing.T, stdout string) CompileResult {
	t.Helper()
	var resp struct {
		Status string        `json:"status"`
		Data   CompileResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), stdout)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

// countLines counts the lines of s that start with prefix.
func countLines(s, prefix string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

func TestCompileToStdout(t *testing.T) {
	stdout, stderr, err := execute(t, "compile", scriptPath("deploy"))
	require.NoError(t, err)

	assert.Equal(t, readGolden(t, "deploy"), stdout)
	assert.Equal(t, 2, countLines(stderr, "fix: "))
	assert.Contains(t, stderr, "idempotency fix")
}

func TestCompileOutputToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "deploy.sh")

	stdout, _, err := execute(t, "compile", scriptPath("deploy"), "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Wrote "+out+": 2 fix(es), 0 warning(s)")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, readGolden(t, "deploy"), string(data))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o100, "emitted script is executable")
}

func TestCompileJSON(t *testing.T) {
	stdout, _, err := execute(t, "compile", scriptPath("seed"), "--format", "json")
	require.NoError(t, err)

	res := compileJSON(t, stdout)
	assert.Equal(t, readGolden(t, "seed"), res.Script)
	assert.Len(t, res.Digest, 64)
	assert.False(t, res.Cached)
	require.Len(t, res.Fixes, 1)
	assert.Equal(t, "RANDOM", res.Fixes[0].Subject)
	assert.NotNil(t, res.Warnings)
	assert.Empty(t, res.RunID, "no cache, no recorded run")
}

func TestCompileFlagsOverrideConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "puresh.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("target: bash\nstrict_mode: true\n"), 0o644))

	stdout, _, err := execute(t, "compile", scriptPath("seed"), "--config", cfgPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "#!/bin/bash\n"), stdout)
	assert.Contains(t, stdout, "set -eu\n")

	stdout, _, err = execute(t, "compile", scriptPath("seed"), "--config", cfgPath, "--target", "dash", "--strict-mode=false")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "#!/bin/dash\n"), stdout)
	assert.NotContains(t, stdout, "set -eu")
}

func TestCompileRejected(t *testing.T) {
	stdout, _, err := execute(t, "compile", scriptPath("eval"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error [V201]")
}

func TestCompileRejectedJSON(t *testing.T) {
	stdout, _, err := execute(t, "compile", scriptPath("invalid_name"), "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string          `json:"code"`
			Details PipelineDetails `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E101", resp.Error.Code)
	assert.Equal(t, "validation", string(resp.Error.Details.Kind))
	assert.Equal(t, []string{"E101"}, resp.Error.Details.Codes)
}

func TestCompileEscapedEval(t *testing.T) {
	stdout, stderr, err := execute(t, "compile", scriptPath("eval_escaped"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "_puresh_quote() {")
	assert.Contains(t, stdout, `eval "$(_puresh_quote "${CMD}")"`)
	assert.NotContains(t, stderr, "V201")
}

func TestCompileBasicVerificationWarns(t *testing.T) {
	stdout, stderr, err := execute(t, "compile", scriptPath("eval"), "--verify", "basic")
	require.NoError(t, err)
	assert.Contains(t, stdout, `eval "${CMD}"`)
	assert.Contains(t, stderr, "warning: ")
	assert.Contains(t, stderr, "[V201]")
}

func TestCompileCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"missing document", []string{"compile", filepath.Join(t.TempDir(), "none.yaml")}, "Error [C002]"},
		{"malformed document", []string{"compile", scriptPath("broken")}, "Error [C003]"},
		{"bad target", []string{"compile", scriptPath("seed"), "--target", "zsh"}, "Error [C004]"},
		{"missing config", []string{"compile", scriptPath("seed"), "--config", filepath.Join(t.TempDir(), "none.yaml")}, "Error [C004]"},
		{"unwritable output", []string{"compile", scriptPath("seed"), "-o", filepath.Join(t.TempDir(), "no", "such", "dir", "out.sh")}, "Error [C005]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, tt.wantCode)
		})
	}
}

func TestCompileArgs(t *testing.T) {
	_, _, err := execute(t, "compile")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// =============================================================================
// Cache
// =============================================================================

func TestCompileCache(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cache.db")

	first, _, err := execute(t, "compile", scriptPath("deploy"), "--cache", db, "--format", "json")
	require.NoError(t, err)
	miss := compileJSON(t, first)
	assert.False(t, miss.Cached)
	assert.NotEmpty(t, miss.RunID)

	second, _, err := execute(t, "compile", scriptPath("deploy"), "--cache", db, "--format", "json")
	require.NoError(t, err)
	hit := compileJSON(t, second)
	assert.True(t, hit.Cached)
	assert.Equal(t, miss.Script, hit.Script)
	assert.Equal(t, miss.Digest, hit.Digest)
	assert.Equal(t, miss.Fixes, hit.Fixes)
	assert.NotEqual(t, miss.RunID, hit.RunID)
}

func TestCompileCacheKeyIncludesConfig(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cache.db")

	_, _, err := execute(t, "compile", scriptPath("seed"), "--cache", db)
	require.NoError(t, err)

	stdout, _, err := execute(t, "compile", scriptPath("seed"), "--cache", db, "--target", "bash", "--format", "json")
	require.NoError(t, err)
	res := compileJSON(t, stdout)
	assert.False(t, res.Cached, "a different target is a different cache key")
	assert.True(t, strings.HasPrefix(res.Script, "#!/bin/bash\n"))
}

func TestCompileCacheRecordsFailures(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cache.db")

	_, _, err := execute(t, "compile", scriptPath("eval"), "--cache", db)
	require.Error(t, err)

	stdout, _, err := execute(t, "history", "--cache", db, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"outcome": "failed"`)
	assert.Contains(t, stdout, "V201")
}
