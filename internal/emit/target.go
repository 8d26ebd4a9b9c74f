package emit

// Target is the shell the emitted script is written for.
type Target string

const (
	// TargetPosix emits portable POSIX sh.
	TargetPosix Target = "posix"

	// TargetBash emits POSIX constructs plus native select.
	TargetBash Target = "bash"

	// TargetDash emits POSIX sh with a dash shebang.
	TargetDash Target = "dash"
)

// Valid reports whether t is a known target.
func (t Target) Valid() bool {
	switch t {
	case TargetPosix, TargetBash, TargetDash:
		return true
	}
	return false
}

// Shebang returns the interpreter line for t.
func (t Target) Shebang() string {
	switch t {
	case TargetBash:
		return "#!/bin/bash"
	case TargetDash:
		return "#!/bin/dash"
	default:
		return "#!/bin/sh"
	}
}

// nativeSelect reports whether the target shell has a select builtin.
func (t Target) nativeSelect() bool {
	return t == TargetBash
}

// nativeLocal reports whether the target shell has function-local variables.
// POSIX sh leaves local undefined; bash and dash both provide it.
func (t Target) nativeLocal() bool {
	return t == TargetBash || t == TargetDash
}
