// Package purify rewrites a parsed shell script so that re-running it is
// deterministic and idempotent.
//
// Purify visits every statement and expression exactly once, depth first,
// and builds a new tree; the input is never modified. Two rule families
// apply:
//
//   - Determinism: arithmetic references to values that differ between runs
//     ($RANDOM, $$, $SECONDS, variables captured from date or mktemp) become
//     the literal 0.
//   - Idempotency: mkdir, rm and ln -s gain the flag that makes a second run
//     a no-op (-p, -f, -f).
//
// Every rewrite is recorded in the Report with the assumption it relies on.
// Control-flow structure is never added or removed, so the purified tree has
// the same shape as the input.
package purify
