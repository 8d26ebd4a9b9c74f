package purify

import "strings"

// nondeterministicVars are shell parameters whose value differs between runs.
var nondeterministicVars = map[string]bool{
	"RANDOM":        true,
	"SRANDOM":       true,
	"$":             true,
	"PPID":          true,
	"BASHPID":       true,
	"SECONDS":       true,
	"EPOCHSECONDS":  true,
	"EPOCHREALTIME": true,
}

// nondeterministicSources are commands whose captured output taints the
// variable it is assigned to.
var nondeterministicSources = map[string]bool{
	"date":   true,
	"mktemp": true,
}

// IsNondeterministicVar reports whether name is one of the fixed
// non-deterministic shell parameters.
func IsNondeterministicVar(name string) bool {
	return nondeterministicVars[name]
}

// idempotencyRule describes how one command is made safe to re-run.
type idempotencyRule struct {
	// applies reports whether the rule is relevant for these flags.
	applies func(flags []string) bool
	// satisfied reports whether the flags already make the command idempotent.
	satisfied func(flags []string) bool
	flag       string
	message    string
	assumption string
}

var idempotencyRules = map[string]idempotencyRule{
	"mkdir": {
		applies:    func([]string) bool { return true },
		satisfied:  hasFlag('p', "--parents"),
		flag:       "-p",
		message:    "added -p to mkdir so an existing directory is not an error",
		assumption: "an existing directory at the path is the desired end state",
	},
	"rm": {
		applies:    func([]string) bool { return true },
		satisfied:  hasFlag('f', "--force"),
		flag:       "-f",
		message:    "added -f to rm so a missing path is not an error",
		assumption: "absence of the path is the desired end state",
	},
	"ln": {
		applies:    hasFlag('s', "--symbolic"),
		satisfied:  hasFlag('f', "--force"),
		flag:       "-f",
		message:    "added -f to ln -s so an existing link is replaced",
		assumption: "replacing whatever exists at the link path is safe",
	},
}

// hasFlag matches a short option letter, possibly grouped as in -rf, or its
// long spelling.
func hasFlag(short byte, long string) func([]string) bool {
	return func(flags []string) bool {
		for _, f := range flags {
			if f == long {
				return true
			}
			if strings.HasPrefix(f, "--") {
				continue
			}
			if strings.IndexByte(f[1:], short) >= 0 {
				return true
			}
		}
		return false
	}
}
