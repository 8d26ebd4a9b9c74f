package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/puresh/internal/ir"
)

// Outcome is how a compile run ended.
type Outcome string

const (
	OutcomeCompiled Outcome = "compiled"
	OutcomeCached   Outcome = "cached"
	OutcomeFailed   Outcome = "failed"
)

// Run is one recorded compile invocation.
type Run struct {
	ID            string    `json:"id"`
	Seq           int64     `json:"seq"`
	Script        string    `json:"script"`
	SourcePath    string    `json:"source_path,omitempty"`
	SourceHash    string    `json:"source_hash"`
	ConfigHash    string    `json:"config_hash"`
	Digest        string    `json:"digest,omitempty"`
	Outcome       Outcome   `json:"outcome"`
	Error         string    `json:"error,omitempty"`
	Warnings      int       `json:"warnings"`
	Fixes         int       `json:"fixes"`
	EngineVersion string    `json:"engine_version"`
	CreatedAt     time.Time `json:"created_at"`
}

// ErrRunNotFound is returned by ReadRun when no run matches.
var ErrRunNotFound = errors.New("run not found")

// RecordRun inserts run. A missing ID is filled from the store's IDGenerator; Seq,
// EngineVersion and CreatedAt are always assigned by the store and written
// back into run.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	switch run.Outcome {
	case OutcomeCompiled, OutcomeCached, OutcomeFailed:
	default:
		return fmt.Errorf("record run: invalid outcome %q", run.Outcome)
	}
	if run.ID == "" {
		run.ID = s.ids.Generate()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "runs")
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	created := s.now().UTC().Truncate(time.Second)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, script_name, source_path, source_hash, config_hash, digest,
		 outcome, error, warnings, fixes, engine_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		seq,
		run.Script,
		run.SourcePath,
		run.SourceHash,
		run.ConfigHash,
		run.Digest,
		string(run.Outcome),
		run.Error,
		run.Warnings,
		run.Fixes,
		ir.EngineVersion,
		created.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: commit: %w", err)
	}

	run.Seq = seq
	run.EngineVersion = ir.EngineVersion
	run.CreatedAt = created
	return nil
}

const runColumns = `id, seq, script_name, source_path, source_hash, config_hash, digest,
	outcome, error, warnings, fixes, engine_version, created_at`

// ListRuns returns recorded runs oldest first. A positive limit keeps only
// the most recent runs. Returns an empty slice (not nil) when there are none.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY seq ASC, id COLLATE BINARY ASC`
	var args []any
	if limit > 0 {
		query = `SELECT ` + runColumns + ` FROM (
			SELECT * FROM runs ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC, id COLLATE BINARY ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunsForSource returns the runs of one source document, oldest first.
func (s *Store) RunsForSource(ctx context.Context, sourceHash string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+`
		FROM runs
		WHERE source_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sourceHash)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns the run with the given ID or unique ID prefix.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	if id == "" {
		return Run{}, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+`
		FROM runs
		WHERE id = ? OR substr(id, 1, ?) = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
		LIMIT 2
	`, id, len(id), id)
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}

	switch len(found) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return found[0], nil
	default:
		return Run{}, fmt.Errorf("read run: prefix %q is ambiguous", id)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r       Run
		outcome string
		created string
	)
	err := row.Scan(
		&r.ID,
		&r.Seq,
		&r.Script,
		&r.SourcePath,
		&r.SourceHash,
		&r.ConfigHash,
		&r.Digest,
		&outcome,
		&r.Error,
		&r.Warnings,
		&r.Fixes,
		&r.EngineVersion,
		&created,
	)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Outcome = Outcome(outcome)
	if r.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return Run{}, fmt.Errorf("scan run %s: created_at: %w", r.ID, err)
	}
	return r, nil
}
