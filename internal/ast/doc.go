// Package ast defines the shell syntax tree consumed by the puresh pipeline.
//
// The tree is produced by an external parser (or decoded from a tree document
// by package source). This package contains type definitions and small
// helpers only; it imports nothing internal.
//
// Key design constraints:
//   - Statements, expressions, test expressions and arithmetic expressions are
//     sealed interfaces, so every pass must handle every variant
//   - Trees are treated as immutable: passes build new trees, never mutate
//   - Every statement carries a Span for diagnostics
package ast
