package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a sealed interface over IR word values.
//
// Value types:
//   - String: literal bytes
//   - Variable: parameter expansion
//   - Arithmetic: binary arithmetic tree
//   - CommandSubst: command substitution
//   - Concat: adjacent parts forming one word
//   - Glob: pattern left for pathname expansion
//   - Escaped: data rendered as a shell-quoted word for re-evaluation sinks
type Value interface {
	valueNode() // Sealed - only types in this package implement it
	Effects() EffectSet
}

// String is a literal value.
type String struct {
	Value string
}

// Variable is a reference to a shell parameter.
type Variable struct {
	Name string
}

// ArithOp is a binary arithmetic operator.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Mod
)

var arithOpSymbols = [...]string{Add: "+", Sub: "-", Mul: "*", Div: "/", Mod: "%"}

func (op ArithOp) String() string {
	if op >= 0 && int(op) < len(arithOpSymbols) {
		return arithOpSymbols[op]
	}
	return fmt.Sprintf("ArithOp(%d)", int(op))
}

// ParseArithOp maps an operator symbol to its ArithOp.
func ParseArithOp(sym string) (ArithOp, error) {
	for i, s := range arithOpSymbols {
		if s == sym {
			return ArithOp(i), nil
		}
	}
	return 0, fmt.Errorf("unknown arithmetic operator %q", sym)
}

// Arithmetic is a binary arithmetic expression. Leaves are String (integer
// literals) or Variable; inner nodes are Arithmetic.
type Arithmetic struct {
	Op    ArithOp
	Left  Value
	Right Value
}

// CommandSubst captures the output of Exec.
type CommandSubst struct {
	Exec *Exec
}

// Concat is a single word built from adjacent parts.
type Concat struct {
	Parts []Value
}

// Glob is a pathname pattern emitted unquoted.
type Glob struct {
	Pattern string
}

// Escaped marks data that has been routed through the escaper.
//
// The emitted word evaluates to the shell-quoted form of Inner, so a
// re-evaluation sink such as eval sees Inner as one literal word instead of
// shell syntax.
type Escaped struct {
	Inner Value
}

func (String) valueNode()       {}
func (Variable) valueNode()     {}
func (Arithmetic) valueNode()   {}
func (CommandSubst) valueNode() {}
func (Concat) valueNode()       {}
func (Glob) valueNode()         {}
func (Escaped) valueNode()      {}

// Effects of a literal: none.
func (String) Effects() EffectSet { return 0 }

// Effects of a variable read.
func (Variable) Effects() EffectSet { return NewEffectSet(EnvRead) }

// Effects is the union of both operands.
func (a Arithmetic) Effects() EffectSet {
	return valueEffects(a.Left).Union(valueEffects(a.Right))
}

// Effects of the substituted command.
func (c CommandSubst) Effects() EffectSet {
	if c.Exec == nil {
		return 0
	}
	return c.Exec.Effects()
}

// Effects is the union over all parts.
func (c Concat) Effects() EffectSet {
	return valuesEffects(c.Parts)
}

// Effects of a glob: it reads directory entries.
func (Glob) Effects() EffectSet { return NewEffectSet(FileRead) }

// Effects of the wrapped value.
func (e Escaped) Effects() EffectSet { return valueEffects(e.Inner) }

func valueEffects(v Value) EffectSet {
	if v == nil {
		return 0
	}
	return v.Effects()
}

func valuesEffects(vs []Value) EffectSet {
	var s EffectSet
	for _, v := range vs {
		s = s.Union(valueEffects(v))
	}
	return s
}

// Lit is shorthand for String{Value: s}.
func Lit(s string) String {
	return String{Value: s}
}

// Var is shorthand for Variable{Name: name}.
func Var(name string) Variable {
	return Variable{Name: name}
}

// Int is shorthand for an integer literal.
func Int(n int64) String {
	return String{Value: strconv.FormatInt(n, 10)}
}

// Arith is shorthand for an Arithmetic node.
func Arith(op ArithOp, left, right Value) Arithmetic {
	return Arithmetic{Op: op, Left: left, Right: right}
}

// Escape routes v through the escaper.
func Escape(v Value) Escaped {
	if e, ok := v.(Escaped); ok {
		return e
	}
	return Escaped{Inner: v}
}

// IntLiteral reports the integer held by a String literal, if any.
// Only plain decimal integers with an optional leading minus sign qualify;
// a leading zero means octal to the shell, so "010" is not a literal here.
func IntLiteral(v Value) (int64, bool) {
	s, ok := v.(String)
	if !ok {
		return 0, false
	}
	digits := strings.TrimPrefix(s.Value, "-")
	if digits == "" || (len(digits) > 1 && digits[0] == '0') {
		return 0, false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s.Value, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsLiteral reports whether v is built from literal strings only.
func IsLiteral(v Value) bool {
	switch val := v.(type) {
	case String:
		return true
	case Concat:
		for _, p := range val.Parts {
			if !IsLiteral(p) {
				return false
			}
		}
		return true
	case Escaped:
		return IsLiteral(val.Inner)
	default:
		return false
	}
}

// LiteralText returns the text of a literal value and whether v was literal.
func LiteralText(v Value) (string, bool) {
	switch val := v.(type) {
	case String:
		return val.Value, true
	case Concat:
		out := ""
		for _, p := range val.Parts {
			s, ok := LiteralText(p)
			if !ok {
				return "", false
			}
			out += s
		}
		return out, true
	default:
		return "", false
	}
}
