package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/puresh/internal/ast"
	"github.com/roach88/puresh/internal/purify"
	"github.com/roach88/puresh/internal/verify"
)

// fixedNow is the wall time stamped on runs by createTestStore.
var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

// createTestStore opens a store in a temp dir with a fixed clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testKey(source string) Key {
	key, err := KeyFor([]byte(source), map[string]any{"target": "posix"})
	if err != nil {
		panic(err)
	}
	return key
}

func testEntry() Entry {
	return Entry{
		Script: "#!/bin/sh\nmkdir -p /app\nmake 2>&1\n",
		Digest: "d1",
		Warnings: []verify.Violation{{
			Code:     verify.CodeUnlimitedResource,
			Category: verify.CategoryResourceSafety,
			Severity: verify.SeverityWarning,
			Message:  "ulimit set to unlimited",
			Command:  "ulimit",
			Span:     ast.Span{File: "a.yaml", StartLine: 3, StartCol: 5},
		}},
		Fixes: &purify.Report{Fixes: []purify.Fix{{
			Kind:       purify.FixIdempotency,
			Subject:    "mkdir",
			Message:    "added -p",
			Assumption: "an existing directory is acceptable",
			Span:       ast.Span{File: "a.yaml", StartLine: 2, StartCol: 5},
		}}},
	}
}
