// Package emit renders an IR program as POSIX shell text.
//
// The escaper is the last line of defense against injection. Every literal
// the emitter writes goes through EscapeString, EscapeIdentifier or
// EscapeCommandName, and every expansion is double-quoted. Globs and case
// patterns keep their metacharacters unquoted and quote everything else.
//
// Output is a pure function of the program and Options: the same input
// yields the same bytes on every call.
package emit
