package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/puresh/internal/emit"
	"github.com/roach88/puresh/internal/ir"
	"github.com/roach88/puresh/internal/verify"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Optimize)
	assert.Equal(t, ValidationMinimal, cfg.ValidationLevel)
	assert.False(t, cfg.StrictMode)
	assert.Equal(t, emit.TargetPosix, cfg.Target)
	assert.Equal(t, verify.LevelStrict, cfg.Verify)
	assert.True(t, cfg.Purify.RemoveNonDeterministic)
	assert.True(t, cfg.Purify.EnforceIdempotency)
	assert.NoError(t, cfg.Check())
}

func TestConfigCheck(t *testing.T) {
	cfg := Config{ValidationLevel: "paranoid", Target: "zsh", Verify: "loose"}
	err := cfg.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid validation_level "paranoid"`)
	assert.Contains(t, err.Error(), `invalid target "zsh"`)
	assert.Contains(t, err.Error(), `invalid verify level "loose"`)
}

// =============================================================================
// Decoding
// =============================================================================

func TestDecodeConfig(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, cfg Config)
	}{
		{
			name:  "empty input keeps defaults",
			input: "",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name:  "whitespace keeps defaults",
			input: "\n  \n",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name:  "partial override",
			input: "target: bash\nstrict_mode: true\n",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, emit.TargetBash, cfg.Target)
				assert.True(t, cfg.StrictMode)
				assert.True(t, cfg.Optimize, "unset keys keep defaults")
				assert.Equal(t, verify.LevelStrict, cfg.Verify)
			},
		},
		{
			name: "full document",
			input: strings.Join([]string{
				"optimize: false",
				"validation_level: strict",
				"strict_mode: true",
				"target: dash",
				"verify: basic",
				"purify:",
				"  remove_non_deterministic: false",
				"  enforce_idempotency: true",
			}, "\n"),
			check: func(t *testing.T, cfg Config) {
				assert.False(t, cfg.Optimize)
				assert.Equal(t, ValidationStrict, cfg.ValidationLevel)
				assert.Equal(t, emit.TargetDash, cfg.Target)
				assert.Equal(t, verify.LevelBasic, cfg.Verify)
				assert.False(t, cfg.Purify.RemoveNonDeterministic)
				assert.True(t, cfg.Purify.EnforceIdempotency)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := DecodeConfig(strings.NewReader(tt.input))
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestDecodeConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{"unknown key", "optimise: true\n", "optimise"},
		{"unknown nested key", "purify:\n  remove_all: true\n", "remove_all"},
		{"invalid target", "target: fish\n", `invalid target "fish"`},
		{"invalid verify", "verify: maybe\n", `invalid verify level "maybe"`},
		{"wrong type", "optimize: [1, 2]\n", "decode config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeConfig(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "puresh.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target: bash\nverify: none\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, emit.TargetBash, cfg.Target)
	assert.Equal(t, verify.LevelNone, cfg.Verify)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open config")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("validation_level: loud\n"), 0o644))
	_, err = LoadConfig(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
	assert.Contains(t, err.Error(), "validation_level")
}

// =============================================================================
// Describe
// =============================================================================

func TestConfigDescribeHash(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()

	ha, err := ir.ConfigHash(a.Describe())
	require.NoError(t, err)
	hb, err := ir.ConfigHash(b.Describe())
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	b.Target = emit.TargetBash
	hc, err := ir.ConfigHash(b.Describe())
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)

	c := DefaultConfig()
	c.Purify.EnforceIdempotency = false
	hd, err := ir.ConfigHash(c.Describe())
	require.NoError(t, err)
	assert.NotEqual(t, ha, hd)
}
