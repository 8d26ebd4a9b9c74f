package ir

import "slices"

// Condition is a sealed interface over branch and loop conditions.
type Condition interface {
	conditionNode()
	Effects() EffectSet
}

// Compare is a binary test: =, != or one of -eq, -ne, -lt, -le, -gt, -ge.
type Compare struct {
	Op    string
	Left  Value
	Right Value
}

// FileCheck is a unary file test such as -d or -f.
type FileCheck struct {
	Op   string
	Path Value
}

// StringCheck is -z or -n.
type StringCheck struct {
	Op    string
	Value Value
}

// Not negates a condition.
type Not struct {
	Cond Condition
}

// And holds when both sides hold.
type And struct {
	Left  Condition
	Right Condition
}

// Or holds when either side holds.
type Or struct {
	Left  Condition
	Right Condition
}

// CommandCond holds when Exec exits zero.
type CommandCond struct {
	Exec *Exec
}

func (Compare) conditionNode()     {}
func (FileCheck) conditionNode()   {}
func (StringCheck) conditionNode() {}
func (Not) conditionNode()         {}
func (And) conditionNode()         {}
func (Or) conditionNode()          {}
func (CommandCond) conditionNode() {}

func (c Compare) Effects() EffectSet {
	return valueEffects(c.Left).Union(valueEffects(c.Right))
}

func (c FileCheck) Effects() EffectSet {
	return valueEffects(c.Path).Union(NewEffectSet(FileRead))
}

func (c StringCheck) Effects() EffectSet { return valueEffects(c.Value) }

func (c Not) Effects() EffectSet { return conditionEffects(c.Cond) }

func (c And) Effects() EffectSet {
	return conditionEffects(c.Left).Union(conditionEffects(c.Right))
}

func (c Or) Effects() EffectSet {
	return conditionEffects(c.Left).Union(conditionEffects(c.Right))
}

func (c CommandCond) Effects() EffectSet {
	if c.Exec == nil {
		return 0
	}
	return c.Exec.Effects()
}

func conditionEffects(c Condition) EffectSet {
	if c == nil {
		return 0
	}
	return c.Effects()
}

// IsConstantTrue reports whether c always holds: `true` or `:` with no
// arguments, or the negation of a condition that never holds.
func IsConstantTrue(c Condition) bool {
	if n, ok := c.(Not); ok {
		return IsConstantFalse(n.Cond)
	}
	return isBareCommand(c, "true", ":")
}

// IsConstantFalse reports whether c never holds: `false` with no arguments,
// or the negation of a condition that always holds.
func IsConstantFalse(c Condition) bool {
	if n, ok := c.(Not); ok {
		return IsConstantTrue(n.Cond)
	}
	return isBareCommand(c, "false")
}

func isBareCommand(c Condition, names ...string) bool {
	cc, ok := c.(CommandCond)
	if !ok || cc.Exec == nil || len(cc.Exec.Args) != 0 {
		return false
	}
	return slices.Contains(names, cc.Exec.Command)
}
