package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/puresh/internal/purify"
	"github.com/roach88/puresh/internal/source"
)

func TestPurifyText(t *testing.T) {
	stdout, _, err := execute(t, "purify", scriptPath("deploy"))
	require.NoError(t, err)

	assert.Contains(t, stdout, "✓ Purified deploy.sh: 0 determinism fix(es), 2 idempotency fix(es)")
	assert.Equal(t, 2, countLines(stdout, "  "))
	assert.NotContains(t, stdout, "Wrote purified tree")
}

func TestPurifyJSON(t *testing.T) {
	stdout, _, err := execute(t, "purify", scriptPath("seed"), "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   PurifyResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "seed.sh", resp.Data.Script)
	require.Len(t, resp.Data.Fixes, 1)
	assert.Equal(t, purify.FixDeterminism, resp.Data.Fixes[0].Kind)
}

func TestPurifyWritesTreeDocument(t *testing.T) {
	out := filepath.Join(t.TempDir(), "deploy.pure.yaml")

	stdout, _, err := execute(t, "purify", scriptPath("deploy"), "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote purified tree to "+out)

	doc, err := source.Load(out)
	require.NoError(t, err)
	assert.Equal(t, "deploy.sh", doc.Script.Name)

	// The purified tree is a fixed point.
	stdout, _, err = execute(t, "purify", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Purified deploy.sh: 0 determinism fix(es), 0 idempotency fix(es)")

	compiled, _, err := execute(t, "compile", out)
	require.NoError(t, err)
	assert.Equal(t, readGolden(t, "deploy"), compiled)
}

func TestPurifyCommandErrors(t *testing.T) {
	stdout, _, err := execute(t, "purify", scriptPath("broken"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [C003]")

	_, _, err = execute(t, "purify")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
