package verify

import (
	"fmt"
	"slices"

	"github.com/roach88/puresh/internal/ir"
)

// operandPos picks which operand a guard must test.
type operandPos int

const (
	operandAny operandPos = iota
	operandFirst
	operandLast
)

// IdempotencyPolicy is one row of the idempotency decision table.
//
// A command matching Command (and Sub, when set) is idempotent when one of
// the Idempotent options is present, or when an enclosing if tests the
// guarded operand with one of GuardOps or runs one of GuardCommands.
// Otherwise the verifier reports Advice.
type IdempotencyPolicy struct {
	Command string
	// Sub is the required first operand, as in "git clone".
	Sub string

	// IdempotentShort and IdempotentLong are the options that make a re-run
	// a no-op.
	IdempotentShort byte
	IdempotentLong  []string

	Guard         operandPos
	GuardOps      []string
	GuardCommands []string

	Advice string
}

var existenceOps = []string{"-e", "-f", "-d", "-L", "-s"}

// idempotencyPolicies is the decision table. Commands absent from it are
// treated as idempotent (cp, touch, chmod, chown, tee overwrite to the same
// end state).
var idempotencyPolicies = []IdempotencyPolicy{
	{
		Command:         "mkdir",
		IdempotentShort: 'p',
		IdempotentLong:  []string{"--parents"},
		Guard:           operandAny,
		GuardOps:        existenceOps,
		Advice:          "use mkdir -p or guard with [ -d path ]",
	},
	{
		Command:         "rm",
		IdempotentShort: 'f',
		IdempotentLong:  []string{"--force"},
		Guard:           operandAny,
		GuardOps:        existenceOps,
		Advice:          "use rm -f or guard with [ -e path ]",
	},
	{
		Command:  "rmdir",
		Guard:    operandAny,
		GuardOps: existenceOps,
		Advice:   "guard with [ -d path ]",
	},
	{
		Command:         "ln",
		IdempotentShort: 'f',
		IdempotentLong:  []string{"--force"},
		Guard:           operandLast,
		GuardOps:        existenceOps,
		Advice:          "use ln -sf or guard with [ -e link ]",
	},
	{
		Command:  "mv",
		Guard:    operandFirst,
		GuardOps: existenceOps,
		Advice:   "guard with [ -e source ]; a second run finds the source gone",
	},
	{
		Command:       "useradd",
		GuardCommands: []string{"id", "getent"},
		Advice:        "guard with if ! id user",
	},
	{
		Command:         "groupadd",
		IdempotentShort: 'f',
		IdempotentLong:  []string{"--force"},
		GuardCommands:   []string{"getent"},
		Advice:          "use groupadd -f or guard with if ! getent group name",
	},
	{
		Command:  "git",
		Sub:      "clone",
		Guard:    operandLast,
		GuardOps: existenceOps,
		Advice:   "guard with [ -d dir ]",
	},
}

// IdempotencyPolicies returns a copy of the decision table.
func IdempotencyPolicies() []IdempotencyPolicy {
	return slices.Clone(idempotencyPolicies)
}

func policyFor(e *ir.Exec) (IdempotencyPolicy, bool) {
	for _, p := range idempotencyPolicies {
		if p.Command != e.Command {
			continue
		}
		if p.Sub != "" {
			_, operands := split(e.Args)
			if len(operands) == 0 {
				continue
			}
			if s, ok := ir.LiteralText(operands[0]); !ok || s != p.Sub {
				continue
			}
		}
		return p, true
	}
	return IdempotencyPolicy{}, false
}

// checkIdempotency applies the decision table to e under the enclosing
// if-conditions guards.
func checkIdempotency(e *ir.Exec, guards []ir.Condition) (Violation, bool) {
	p, ok := policyFor(e)
	if !ok {
		return Violation{}, false
	}

	flags, operands := split(e.Args)
	if p.Sub != "" && len(operands) > 0 {
		operands = operands[1:]
	}
	if p.IdempotentShort != 0 || len(p.IdempotentLong) > 0 {
		if hasOption(flags, p.IdempotentShort, p.IdempotentLong...) {
			return Violation{}, false
		}
	}
	if guarded(p, operands, guards) {
		return Violation{}, false
	}

	return Violation{
		Code:     CodeNonIdempotent,
		Category: CategoryIdempotency,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("%s is not idempotent: %s", e.Command, p.Advice),
		Command:  e.Command,
		Span:     e.Span,
	}, true
}

func guarded(p IdempotencyPolicy, operands []ir.Value, guards []ir.Condition) bool {
	var targets []ir.Value
	switch p.Guard {
	case operandFirst:
		if len(operands) > 0 {
			targets = operands[:1]
		}
	case operandLast:
		if len(operands) > 0 {
			targets = operands[len(operands)-1:]
		}
	default:
		targets = operands
	}

	for _, g := range guards {
		found := false
		walkCondition(g, func(c ir.Condition) {
			switch cond := c.(type) {
			case ir.FileCheck:
				if !slices.Contains(p.GuardOps, cond.Op) {
					return
				}
				for _, t := range targets {
					if sameWord(cond.Path, t) {
						found = true
					}
				}
			case ir.CommandCond:
				if cond.Exec != nil && slices.Contains(p.GuardCommands, cond.Exec.Command) {
					found = true
				}
			}
		})
		if found {
			return true
		}
	}
	return false
}

// walkCondition calls fn on c and every nested condition.
func walkCondition(c ir.Condition, fn func(ir.Condition)) {
	if c == nil {
		return
	}
	fn(c)
	switch cond := c.(type) {
	case ir.Not:
		walkCondition(cond.Cond, fn)
	case ir.And:
		walkCondition(cond.Left, fn)
		walkCondition(cond.Right, fn)
	case ir.Or:
		walkCondition(cond.Left, fn)
		walkCondition(cond.Right, fn)
	}
}
