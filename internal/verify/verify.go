package verify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/puresh/internal/ast"
	"github.com/roach88/puresh/internal/ir"
	"github.com/roach88/puresh/internal/purify"
)

// Verify runs every check over prog. The returned report is never nil; use
// Report.Err to decide whether emission may proceed.
func Verify(prog *ir.Program, level Level) *Report {
	r := &Report{Level: level, Violations: []Violation{}}
	if level == LevelNone || prog == nil {
		return r
	}

	v := &verifier{level: level, report: r}
	if prog.Body != nil {
		v.node(prog.Body, nil)
	}
	for _, g := range AnalyzeRecursion(prog) {
		r.Violations = append(r.Violations, g.violation())
	}

	slog.Debug("verified program",
		"program", prog.Name,
		"level", string(level),
		"errors", len(r.Errors()),
		"warnings", len(r.Warnings()),
	)
	return r
}

type verifier struct {
	level  Level
	report *Report
}

func (v *verifier) add(code string, cat Category, command, msg string, span ast.Span) {
	sev := SeverityWarning
	if v.level == LevelStrict && (cat == CategoryInjection || cat == CategoryDeterminism) {
		sev = SeverityError
	}
	v.report.Violations = append(v.report.Violations, Violation{
		Code:     code,
		Category: cat,
		Severity: sev,
		Message:  msg,
		Command:  command,
		Span:     span,
	})
}

// node checks n. guards are the conditions of enclosing if statements, with
// else branches seeing the negated condition.
func (v *verifier) node(n ir.Node, guards []ir.Condition) {
	switch node := n.(type) {
	case *ir.Sequence:
		if node == nil {
			return
		}
		for _, c := range node.Nodes {
			v.node(c, guards)
		}

	case *ir.Let:
		v.value(node.Value, node.Span, guards)

	case *ir.Exec:
		v.exec(node, guards)

	case *ir.Pipeline:
		for _, s := range node.Stages {
			v.exec(s, guards)
		}

	case *ir.If:
		v.condition(node.Cond, node.Span, guards)
		v.node(node.Then, withGuard(guards, node.Cond))
		if node.Else != nil {
			v.node(node.Else, withGuard(guards, ir.Not{Cond: node.Cond}))
		}

	case *ir.Loop:
		if node.Kind == ir.LoopWhile {
			v.condition(node.Cond, node.Span, guards)
			if ir.IsConstantTrue(node.Cond) && !loopExits(node.Body, 0) {
				v.add(CodeUnboundedLoop, CategoryResourceSafety, "",
					"loop condition is always true and the body has no break, return or exit", node.Span)
			}
		}
		for _, item := range node.Items {
			v.value(item, node.Span, guards)
		}
		v.node(node.Body, guards)

	case *ir.Case:
		v.value(node.Word, node.Span, guards)
		for _, a := range node.Arms {
			v.node(a.Body, guards)
		}

	case *ir.Function:
		// The definition site's guards say nothing about call sites.
		v.node(node.Body, nil)

	case *ir.Exit:
		v.value(node.Code, node.Span, guards)

	case *ir.Return:
		v.value(node.Code, node.Span, guards)
	}
}

func withGuard(guards []ir.Condition, c ir.Condition) []ir.Condition {
	out := make([]ir.Condition, len(guards), len(guards)+1)
	copy(out, guards)
	return append(out, c)
}

func (v *verifier) condition(c ir.Condition, span ast.Span, guards []ir.Condition) {
	walkCondition(c, func(c ir.Condition) {
		switch cond := c.(type) {
		case ir.CommandCond:
			if cond.Exec != nil {
				v.exec(cond.Exec, guards)
			}
		case ir.Compare:
			v.value(cond.Left, span, guards)
			v.value(cond.Right, span, guards)
		case ir.FileCheck:
			v.value(cond.Path, span, guards)
		case ir.StringCheck:
			v.value(cond.Value, span, guards)
		}
	})
}

// value checks parameter references and substituted commands inside a word.
func (v *verifier) value(val ir.Value, span ast.Span, guards []ir.Condition) {
	if val == nil {
		return
	}
	v.vars(val, span)
	valueExecs(val, func(e *ir.Exec) {
		v.execOnly(e, guards)
		for _, a := range e.Args {
			v.vars(a, e.Span)
		}
		for _, r := range e.Redirects {
			v.vars(r.Target, e.Span)
		}
	})
}

// vars reports non-deterministic parameters referenced directly by val.
func (v *verifier) vars(val ir.Value, span ast.Span) {
	valueVars(val, func(x ir.Variable) {
		if purify.IsNondeterministicVar(x.Name) {
			v.add(CodeNondetVariable, CategoryDeterminism, "",
				fmt.Sprintf("$%s differs between runs", x.Name), span)
		}
	})
}

// exec checks e and everything nested in its words.
func (v *verifier) exec(e *ir.Exec, guards []ir.Condition) {
	v.execOnly(e, guards)
	for _, a := range e.Args {
		v.value(a, e.Span, guards)
	}
	for _, r := range e.Redirects {
		v.value(r.Target, e.Span, guards)
	}
}

// execOnly runs the per-command checks on e itself. Nested substitutions
// are visited by the caller.
func (v *verifier) execOnly(e *ir.Exec, guards []ir.Condition) {
	if arg, ok := unescapedSinkArg(e); ok {
		v.add(CodeUnescapedSink, CategoryInjection, e.Command,
			fmt.Sprintf("%s evaluates %s as shell code; route it through the escaper", e.Command, describeWord(arg)), e.Span)
	}
	if reason, ok := nondeterministicCommand(e); ok {
		v.add(CodeNondetCommand, CategoryDeterminism, e.Command, reason, e.Span)
	}
	if viol, ok := checkIdempotency(e, guards); ok {
		v.report.Violations = append(v.report.Violations, viol)
	}
	if e.Command == "ulimit" {
		for _, a := range e.Args {
			if s, ok := ir.LiteralText(a); ok && s == "unlimited" {
				v.add(CodeUnlimitedResource, CategoryResourceSafety, e.Command,
					"ulimit requests an unlimited resource", e.Span)
				break
			}
		}
	}
}

// evalSinks evaluate every argument as shell code.
var evalSinks = map[string]bool{
	"eval":   true,
	"source": true,
	".":      true,
	"trap":   true,
}

// commandSinks run their first operand as a command. Each entry names the
// options that take an argument, so that argument is not read as the command.
var commandSinks = map[string]optionSpec{
	"exec": {short: "a"},
	"xargs": {
		short: "adEILnPs",
		long:  []string{"arg-file", "delimiter", "eof", "replace", "max-lines", "max-args", "max-procs", "max-chars"},
	},
}

// shellSinks run their first operand as shell code when c is among their
// options, alone or grouped as in -ec.
var shellSinks = map[string]bool{
	"sh":   true,
	"bash": true,
	"dash": true,
}

var shellOptions = optionSpec{
	short: "oO",
	long:  []string{"rcfile", "init-file"},
	plus:  true,
}

// su takes the command as the argument of -c, and parses options after
// its user operand too.
var suOptions = optionSpec{
	short:   "cgGsw",
	long:    []string{"command", "session-command", "group", "supp-group", "shell", "whitelist-environment"},
	permute: true,
}

// unescapedSinkArg returns the first argument of an eval-class sink that
// carries external data.
func unescapedSinkArg(e *ir.Exec) (ir.Value, bool) {
	switch {
	case evalSinks[e.Command]:
		for _, a := range e.Args {
			if external(a) {
				return a, true
			}
		}
	case e.Command == "su":
		opts, _ := scanOptions(e.Args, suOptions)
		for _, o := range opts {
			switch o.name {
			case "c", "command", "session-command":
				if external(o.arg) {
					return o.arg, true
				}
			}
		}
	case shellSinks[e.Command]:
		opts, operands := scanOptions(e.Args, shellOptions)
		if hasShort(opts, 'c') && len(operands) > 0 && external(operands[0]) {
			return operands[0], true
		}
	default:
		spec, ok := commandSinks[e.Command]
		if !ok {
			break
		}
		if _, operands := scanOptions(e.Args, spec); len(operands) > 0 && external(operands[0]) {
			return operands[0], true
		}
	}
	return nil, false
}

var nondeterministicCommands = map[string]string{
	"mktemp":  "mktemp creates a different name on every run",
	"shuf":    "shuf output order is random",
	"uuidgen": "uuidgen returns a new identifier on every run",
}

var randomDevices = []string{"/dev/urandom", "/dev/random"}

// nondeterministicCommand reports why e produces run-dependent output.
func nondeterministicCommand(e *ir.Exec) (string, bool) {
	if reason, ok := nondeterministicCommands[e.Command]; ok {
		return reason, true
	}
	switch e.Command {
	case "date":
		flags, _ := split(e.Args)
		if hasOption(flags, 'd', "--date") || hasOption(flags, 'r', "--reference") {
			return "", false
		}
		return "date reads the current time", true
	case "openssl":
		_, operands := split(e.Args)
		if len(operands) > 0 {
			if s, ok := ir.LiteralText(operands[0]); ok && s == "rand" {
				return "openssl rand returns random bytes", true
			}
		}
	}

	words := append([]ir.Value(nil), e.Args...)
	for _, r := range e.Redirects {
		if r.Target != nil {
			words = append(words, r.Target)
		}
	}
	for _, w := range words {
		s, ok := ir.LiteralText(w)
		if !ok {
			continue
		}
		for _, dev := range randomDevices {
			if strings.Contains(s, dev) {
				return fmt.Sprintf("%s reads %s", e.Command, dev), true
			}
		}
	}
	return "", false
}

// loopExits reports whether body contains a break that targets this loop
// (depth 0), or any return or exit outside nested function definitions.
func loopExits(n ir.Node, depth int) bool {
	switch node := n.(type) {
	case *ir.Sequence:
		if node == nil {
			return false
		}
		for _, c := range node.Nodes {
			if loopExits(c, depth) {
				return true
			}
		}
	case *ir.Break:
		return depth == 0
	case *ir.Exit, *ir.Return:
		return true
	case *ir.If:
		return loopExits(node.Then, depth) || (node.Else != nil && loopExits(node.Else, depth))
	case *ir.Case:
		for _, a := range node.Arms {
			if loopExits(a.Body, depth) {
				return true
			}
		}
	case *ir.Loop:
		return loopExits(node.Body, depth+1)
	}
	return false
}
