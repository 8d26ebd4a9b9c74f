// Package verify checks global safety properties of an IR program before it
// is emitted.
//
// Four independent checks run over every node:
//
//   - Injection: data that did not pass through the escaper reaching a
//     word the shell evaluates as code. eval, source, . and trap evaluate
//     every argument; exec and xargs run their first operand; sh, bash, dash
//     and su evaluate the word after -c
//   - Determinism: commands and parameters whose result differs between runs
//   - Idempotency: mutating commands that are neither flagged idempotent nor
//     guarded by a file test on the same path (see policy.go)
//   - Resource safety: constant-true loops with no exit, recursive function
//     groups, and unlimited ulimit requests
//
// Under LevelStrict, Injection and Determinism violations are errors that
// block emission. Idempotency and resource-safety findings are always
// warnings. The idempotency check is a syntactic heuristic: it can miss a
// guard written in an unusual form and can accept a guard that tests the
// wrong polarity.
package verify
