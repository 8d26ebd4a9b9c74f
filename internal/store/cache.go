package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/puresh/internal/ir"
	"github.com/roach88/puresh/internal/purify"
	"github.com/roach88/puresh/internal/verify"
)

// Key identifies one compile: a source document under one configuration.
type Key struct {
	SourceHash string
	ConfigHash string
}

// KeyFor digests raw document bytes and a configuration description
// (compiler.Config.Describe).
func KeyFor(source []byte, config map[string]any) (Key, error) {
	ch, err := ir.ConfigHash(config)
	if err != nil {
		return Key{}, err
	}
	return Key{SourceHash: ir.SourceHash(source), ConfigHash: ch}, nil
}

// Entry is a cached compile result.
type Entry struct {
	Script   string
	Digest   string
	Warnings []verify.Violation
	Fixes    *purify.Report
}

// Cache looks up and saves compile results. Implementations must be safe
// to call with a canceled context, returning its error.
type Cache interface {
	Lookup(ctx context.Context, key Key) (*Entry, bool, error)
	Save(ctx context.Context, key Key, e Entry) error
}

// History records compile runs.
type History interface {
	RecordRun(ctx context.Context, run *Run) error
}

// NopCache never hits and discards writes.
type NopCache struct{}

func (NopCache) Lookup(ctx context.Context, _ Key) (*Entry, bool, error) {
	return nil, false, ctx.Err()
}

func (NopCache) Save(ctx context.Context, _ Key, _ Entry) error {
	return ctx.Err()
}

func (NopCache) RecordRun(ctx context.Context, _ *Run) error {
	return ctx.Err()
}

var (
	_ Cache   = NopCache{}
	_ History = NopCache{}
	_ Cache   = (*Store)(nil)
	_ History = (*Store)(nil)
)

// Lookup returns the entry for key. Entries written by another engine or
// IR version are reported as misses.
func (s *Store) Lookup(ctx context.Context, key Key) (*Entry, bool, error) {
	var (
		e                Entry
		warnings, fixes  string
		engineVer, irVer string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT script, digest, warnings, fixes, engine_version, ir_version
		FROM compile_cache
		WHERE source_hash = ? AND config_hash = ?
	`, key.SourceHash, key.ConfigHash).Scan(&e.Script, &e.Digest, &warnings, &fixes, &engineVer, &irVer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup cache: %w", err)
	}

	if engineVer != ir.EngineVersion || irVer != ir.IRVersion {
		slog.Debug("stale cache entry", "source", key.SourceHash, "engine_version", engineVer, "ir_version", irVer)
		return nil, false, nil
	}

	if e.Warnings, err = unmarshalWarnings(warnings); err != nil {
		return nil, false, fmt.Errorf("lookup cache: %w", err)
	}
	fx, err := unmarshalFixes(fixes)
	if err != nil {
		return nil, false, fmt.Errorf("lookup cache: %w", err)
	}
	e.Fixes = &purify.Report{Fixes: fx}
	return &e, true, nil
}

// Save inserts or replaces the entry for key, stamping the current engine
// and IR versions.
func (s *Store) Save(ctx context.Context, key Key, e Entry) error {
	warnings, err := marshalWarnings(e.Warnings)
	if err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	var fx []purify.Fix
	if e.Fixes != nil {
		fx = e.Fixes.Fixes
	}
	fixes, err := marshalFixes(fx)
	if err != nil {
		return fmt.Errorf("save cache: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save cache: begin tx: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "compile_cache")
	if err != nil {
		return fmt.Errorf("save cache: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO compile_cache
		(source_hash, config_hash, script, digest, warnings, fixes, engine_version, ir_version, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_hash, config_hash) DO UPDATE SET
			script = excluded.script,
			digest = excluded.digest,
			warnings = excluded.warnings,
			fixes = excluded.fixes,
			engine_version = excluded.engine_version,
			ir_version = excluded.ir_version,
			seq = excluded.seq
	`,
		key.SourceHash,
		key.ConfigHash,
		e.Script,
		e.Digest,
		warnings,
		fixes,
		ir.EngineVersion,
		ir.IRVersion,
		seq,
	)
	if err != nil {
		return fmt.Errorf("save cache: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save cache: commit: %w", err)
	}
	return nil
}

// Purge deletes every cache entry and returns how many were removed.
// Run history is kept.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM compile_cache`)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}
