// Package store provides SQLite-backed storage for compiled scripts and
// the history of compile runs.
//
// The store holds two tables:
//   - compile_cache: emitted scripts keyed by (source hash, config hash)
//   - runs: one row per compile invocation, identified by a UUID
//
// # Cache Keys
//
// A Key pairs ir.SourceHash of the raw tree document with ir.ConfigHash of
// the compile configuration. Entries written by a different engine or IR
// version are treated as misses, so a pipeline change never serves stale
// output.
//
// # Ordering
//
// Rows carry seq, a logical clock assigned inside the inserting
// transaction. Queries order by seq ASC, id ASC COLLATE BINARY. The
// created_at column is informational only.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Callers that run without a database use NopCache, which satisfies the
// same Cache interface and never hits.
package store
