package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/puresh/internal/compiler"
)

func TestValidateValid(t *testing.T) {
	stdout, _, err := execute(t, "validate", scriptPath("deploy"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ deploy.sh is valid (minimal)")
}

func TestValidateInvalid(t *testing.T) {
	stdout, _, err := execute(t, "validate", scriptPath("invalid_name"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, stdout, "✗ bad.sh: 1 validation error(s) (minimal)")
	assert.Contains(t, stdout, "[E101]")
}

func TestValidateLevelNoneSkipsChecks(t *testing.T) {
	stdout, _, err := execute(t, "validate", scriptPath("invalid_name"), "--level", "none")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ bad.sh is valid (none)")
}

func TestValidateBadLevel(t *testing.T) {
	stdout, _, err := execute(t, "validate", scriptPath("deploy"), "--level", "paranoid")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [C004]")
}

func TestValidateJSON(t *testing.T) {
	stdout, _, err := execute(t, "validate", scriptPath("invalid_name"), "--format", "json")
	require.Error(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   ValidateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, compiler.ErrInvalidVariableName, resp.Data.Errors[0].Code)
}
