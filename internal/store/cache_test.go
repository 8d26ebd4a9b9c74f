package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/puresh/internal/ir"
	"github.com/roach88/puresh/internal/verify"
)

// =============================================================================
// Keys
// =============================================================================

func TestKeyFor(t *testing.T) {
	a := testKey("statements: []")
	assert.Len(t, a.SourceHash, 64)
	assert.Len(t, a.ConfigHash, 64)
	assert.Equal(t, a, testKey("statements: []"))

	b := testKey("statements: [] ")
	assert.NotEqual(t, a.SourceHash, b.SourceHash)
	assert.Equal(t, a.ConfigHash, b.ConfigHash)

	c, err := KeyFor([]byte("statements: []"), map[string]any{"target": "bash"})
	require.NoError(t, err)
	assert.Equal(t, a.SourceHash, c.SourceHash)
	assert.NotEqual(t, a.ConfigHash, c.ConfigHash)
}

func TestKeyForRejectsUnhashableConfig(t *testing.T) {
	_, err := KeyFor(nil, map[string]any{"ch": make(chan int)})
	require.Error(t, err)
}

// =============================================================================
// Store cache
// =============================================================================

func TestCacheMiss(t *testing.T) {
	s := createTestStore(t)

	e, ok, err := s.Lookup(context.Background(), testKey("a"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, e)
}

func TestCacheSaveLookup(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	key := testKey("a")
	want := testEntry()

	require.NoError(t, s.Save(ctx, key, want))

	got, ok, err := s.Lookup(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Script, got.Script)
	assert.Equal(t, want.Digest, got.Digest)
	assert.Equal(t, want.Warnings, got.Warnings)
	assert.Equal(t, want.Fixes, got.Fixes)
}

func TestCacheKeepsShellTextVerbatim(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := testEntry()
	e.Warnings[0].Message = "make 2>&1 <in"
	require.NoError(t, s.Save(ctx, testKey("a"), e))

	var raw string
	require.NoError(t, s.db.QueryRow(`SELECT warnings FROM compile_cache`).Scan(&raw))
	assert.Contains(t, raw, "make 2>&1 <in")
	assert.NotContains(t, raw, `\u0026`)
}

func TestCacheEmptyWarnings(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	key := testKey("a")

	require.NoError(t, s.Save(ctx, key, Entry{Script: "#!/bin/sh\n", Digest: "d"}))

	got, ok, err := s.Lookup(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []verify.Violation{}, got.Warnings)
	require.NotNil(t, got.Fixes)
	assert.Zero(t, got.Fixes.Len())
}

func TestCacheSaveReplaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	key := testKey("a")

	require.NoError(t, s.Save(ctx, key, Entry{Script: "old", Digest: "d1"}))
	require.NoError(t, s.Save(ctx, key, Entry{Script: "new", Digest: "d2"}))

	got, ok, err := s.Lookup(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got.Script)

	var rows, seq int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*), MAX(seq) FROM compile_cache`).Scan(&rows, &seq))
	assert.Equal(t, 1, rows)
	assert.Equal(t, 2, seq)
}

func TestCacheKeysAreIndependent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testKey("a"), Entry{Script: "a"}))
	require.NoError(t, s.Save(ctx, testKey("b"), Entry{Script: "b"}))

	got, ok, err := s.Lookup(ctx, testKey("b"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", got.Script)
}

func TestCacheStaleVersionIsMiss(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	key := testKey("a")

	require.NoError(t, s.Save(ctx, key, testEntry()))
	_, err := s.db.Exec(`UPDATE compile_cache SET engine_version = '0.0.0-old'`)
	require.NoError(t, err)

	_, ok, err := s.Lookup(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, key, testEntry()))
	var version string
	require.NoError(t, s.db.QueryRow(`SELECT engine_version FROM compile_cache`).Scan(&version))
	assert.Equal(t, ir.EngineVersion, version)
}

func TestCacheCorruptWarnings(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	key := testKey("a")

	require.NoError(t, s.Save(ctx, key, testEntry()))
	_, err := s.db.Exec(`UPDATE compile_cache SET warnings = '{not json'`)
	require.NoError(t, err)

	_, _, err = s.Lookup(ctx, key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal warnings")
}

func TestCachePurge(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testKey("a"), Entry{Script: "a"}))
	require.NoError(t, s.Save(ctx, testKey("b"), Entry{Script: "b"}))
	require.NoError(t, s.RecordRun(ctx, &Run{Script: "a", Outcome: OutcomeCompiled}))

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, ok, err := s.Lookup(ctx, testKey("a"))
	require.NoError(t, err)
	assert.False(t, ok)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestCacheCanceledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Lookup(ctx, testKey("a"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Save(ctx, testKey("a"), testEntry()), context.Canceled)
}

// =============================================================================
// NopCache
// =============================================================================

func TestNopCache(t *testing.T) {
	var c NopCache
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, testKey("a"), testEntry()))
	e, ok, err := c.Lookup(ctx, testKey("a"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, e)
	require.NoError(t, c.RecordRun(ctx, &Run{}))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, _, err = c.Lookup(canceled, testKey("a"))
	assert.ErrorIs(t, err, context.Canceled)
}
