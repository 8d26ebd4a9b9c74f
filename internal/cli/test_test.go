package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/puresh/internal/harness"
)

var scenariosDir = filepath.Join("..", "harness", "testdata", "scenarios")

func TestTestCommandAllPass(t *testing.T) {
	stdout, _, err := execute(t, "test", scenariosDir)
	require.NoError(t, err)

	assert.Contains(t, stdout, "✓ deploy\n")
	assert.Contains(t, stdout, "✓ eval_rejected\n")
	assert.Contains(t, stdout, "8 passed, 0 failed, 8 total")
}

func TestTestCommandFilter(t *testing.T) {
	stdout, _, err := execute(t, "test", scenariosDir, "--filter", "eval*", "--workers", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "3 passed, 0 failed, 3 total")
	assert.NotContains(t, stdout, "deploy")

	stdout, _, err = execute(t, "test", scenariosDir, "--filter", "nothing*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found.")

	_, _, err = execute(t, "test", scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandJSON(t *testing.T) {
	stdout, _, err := execute(t, "test", scenariosDir, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   harness.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, 8, resp.Data.Total)
	assert.Equal(t, 8, resp.Data.Passed)
	assert.Len(t, resp.Data.Results, 8)
}

func TestTestCommandFailure(t *testing.T) {
	dir := t.TempDir()
	script, err := filepath.Abs(scriptPath("seed"))
	require.NoError(t, err)
	scenario := `name: wrong-outcome
description: expects a rejection that never happens
script: ` + script + `
expect:
  outcome: rejected
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(scenario), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.yaml"), []byte("name: [\n"), 0o644))

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, stdout, "✗ wrong-outcome")
	assert.Contains(t, stdout, "expected outcome rejected, got compiled")
	assert.Contains(t, stdout, "✗ garbage.yaml")
	assert.Contains(t, stdout, "0 passed, 2 failed, 2 total")
}

func TestTestCommandMissingDir(t *testing.T) {
	stdout, _, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [C002]")
}

func TestFilterScenarios(t *testing.T) {
	paths := []string{"a/deploy.yaml", "a/eval_basic.yaml", "a/eval_rejected.yml"}

	got, err := filterScenarios(paths, "")
	require.NoError(t, err)
	assert.Equal(t, paths, got)

	got, err = filterScenarios(paths, "eval_*")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/eval_basic.yaml", "a/eval_rejected.yml"}, got)

	_, err = filterScenarios(paths, "[")
	assert.Error(t, err)
}
