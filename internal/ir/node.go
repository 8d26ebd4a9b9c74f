package ir

import "github.com/roach88/puresh/internal/ast"

// Node is a sealed interface over IR operations.
//
// Nodes are built through the New* constructors, which compute the node's
// EffectSet exactly once. Exported fields are for reading; treat nodes as
// immutable and build a new node instead of assigning to a field.
type Node interface {
	irNode() // Sealed - only types in this package implement it
	Effects() EffectSet
	Pos() ast.Span
}

// Program is a lowered script.
type Program struct {
	Name string
	Body *Sequence
}

// Effects of the whole program.
func (p *Program) Effects() EffectSet {
	if p == nil || p.Body == nil {
		return 0
	}
	return p.Body.Effects()
}

// Redirect is a lowered redirection. Target is nil for 2>&1.
type Redirect struct {
	Op     string
	Target Value
}

// Let assigns Value to Name.
type Let struct {
	Name     string
	Value    Value
	Exported bool
	Local    bool
	Span     ast.Span
	effects  EffectSet
}

// NewLet builds a Let node.
func NewLet(name string, value Value, exported, local bool, span ast.Span) *Let {
	return &Let{
		Name:     name,
		Value:    value,
		Exported: exported,
		Local:    local,
		Span:     span,
		effects:  valueEffects(value),
	}
}

// Exec runs a command.
type Exec struct {
	Command   string
	Args      []Value
	Redirects []Redirect
	Span      ast.Span
	effects   EffectSet
}

// NewExec builds an Exec node. base holds the effects of the command itself,
// as decided by the caller's command classifier; argument and redirect
// effects are added here.
func NewExec(command string, args []Value, redirects []Redirect, base EffectSet, span ast.Span) *Exec {
	effects := base.Union(valuesEffects(args))
	for _, r := range redirects {
		effects = effects.Union(valueEffects(r.Target))
		switch r.Op {
		case ">", ">>", "2>", "2>>":
			if !isDevNull(r.Target) {
				effects = effects.Union(NewEffectSet(FileWrite))
			}
		case "<":
			effects = effects.Union(NewEffectSet(FileRead))
		}
	}
	return &Exec{
		Command:   command,
		Args:      args,
		Redirects: redirects,
		Span:      span,
		effects:   effects,
	}
}

func isDevNull(v Value) bool {
	s, ok := v.(String)
	return ok && s.Value == "/dev/null"
}

// Pipeline connects stages stdout to stdin.
type Pipeline struct {
	Stages  []*Exec
	Span    ast.Span
	effects EffectSet
}

// NewPipeline builds a Pipeline node.
func NewPipeline(stages []*Exec, span ast.Span) *Pipeline {
	var effects EffectSet
	for _, s := range stages {
		effects = effects.Union(s.Effects())
	}
	return &Pipeline{Stages: stages, Span: span, effects: effects}
}

// Sequence runs nodes in order.
type Sequence struct {
	Nodes   []Node
	Span    ast.Span
	effects EffectSet
}

// NewSequence builds a Sequence node.
func NewSequence(nodes []Node, span ast.Span) *Sequence {
	var effects EffectSet
	for _, n := range nodes {
		effects = effects.Union(n.Effects())
	}
	return &Sequence{Nodes: nodes, Span: span, effects: effects}
}

// If branches on Cond. Else may be nil.
type If struct {
	Cond    Condition
	Then    *Sequence
	Else    *Sequence
	Span    ast.Span
	effects EffectSet
}

// NewIf builds an If node.
func NewIf(cond Condition, then, els *Sequence, span ast.Span) *If {
	effects := conditionEffects(cond).Union(seqEffects(then)).Union(seqEffects(els))
	return &If{Cond: cond, Then: then, Else: els, Span: span, effects: effects}
}

// LoopKind distinguishes loop forms.
type LoopKind int

const (
	// LoopWhile repeats while Cond holds.
	LoopWhile LoopKind = iota
	// LoopFor binds Variable to each of Items.
	LoopFor
	// LoopSelect offers Items as a numbered menu and binds the choice.
	LoopSelect
)

func (k LoopKind) String() string {
	switch k {
	case LoopWhile:
		return "while"
	case LoopFor:
		return "for"
	case LoopSelect:
		return "select"
	default:
		return "unknown"
	}
}

// Loop is a while, for or select loop.
type Loop struct {
	Kind     LoopKind
	Variable string
	Items    []Value
	Cond     Condition
	Body     *Sequence
	Span     ast.Span
	effects  EffectSet
}

// NewWhile builds a while loop.
func NewWhile(cond Condition, body *Sequence, span ast.Span) *Loop {
	return &Loop{
		Kind:    LoopWhile,
		Cond:    cond,
		Body:    body,
		Span:    span,
		effects: conditionEffects(cond).Union(seqEffects(body)),
	}
}

// NewFor builds a for loop over items.
func NewFor(variable string, items []Value, body *Sequence, span ast.Span) *Loop {
	return newItemLoop(LoopFor, variable, items, body, span)
}

// NewSelect builds a select loop over items.
func NewSelect(variable string, items []Value, body *Sequence, span ast.Span) *Loop {
	return newItemLoop(LoopSelect, variable, items, body, span)
}

func newItemLoop(kind LoopKind, variable string, items []Value, body *Sequence, span ast.Span) *Loop {
	effects := valuesEffects(items).Union(seqEffects(body))
	if kind == LoopSelect {
		effects = effects.Union(NewEffectSet(FileRead))
	}
	return &Loop{
		Kind:     kind,
		Variable: variable,
		Items:    items,
		Body:     body,
		Span:     span,
		effects:  effects,
	}
}

// CaseArm is one arm of a Case.
type CaseArm struct {
	Patterns []string
	Body     *Sequence
}

// Case matches Word against Arms in order.
type Case struct {
	Word    Value
	Arms    []CaseArm
	Span    ast.Span
	effects EffectSet
}

// NewCase builds a Case node.
func NewCase(word Value, arms []CaseArm, span ast.Span) *Case {
	effects := valueEffects(word)
	for _, a := range arms {
		effects = effects.Union(seqEffects(a.Body))
	}
	return &Case{Word: word, Arms: arms, Span: span, effects: effects}
}

// Function defines a shell function. Its effects are those of its body,
// although defining it has none of them.
type Function struct {
	Name    string
	Body    *Sequence
	Span    ast.Span
	effects EffectSet
}

// NewFunction builds a Function node.
func NewFunction(name string, body *Sequence, span ast.Span) *Function {
	return &Function{Name: name, Body: body, Span: span, effects: seqEffects(body)}
}

// Exit terminates the script. Code may be nil.
type Exit struct {
	Code    Value
	Span    ast.Span
	effects EffectSet
}

// NewExit builds an Exit node.
func NewExit(code Value, span ast.Span) *Exit {
	return &Exit{Code: code, Span: span, effects: valueEffects(code)}
}

// Return leaves the current function. Code may be nil.
type Return struct {
	Code    Value
	Span    ast.Span
	effects EffectSet
}

// NewReturn builds a Return node.
func NewReturn(code Value, span ast.Span) *Return {
	return &Return{Code: code, Span: span, effects: valueEffects(code)}
}

// Break leaves the innermost loop.
type Break struct {
	Span ast.Span
}

// Continue restarts the innermost loop.
type Continue struct {
	Span ast.Span
}

// Comment is carried through to the output.
type Comment struct {
	Text string
	Span ast.Span
}

func (*Let) irNode()      {}
func (*Exec) irNode()     {}
func (*Pipeline) irNode() {}
func (*Sequence) irNode() {}
func (*If) irNode()       {}
func (*Loop) irNode()     {}
func (*Case) irNode()     {}
func (*Function) irNode() {}
func (*Exit) irNode()     {}
func (*Return) irNode()   {}
func (*Break) irNode()    {}
func (*Continue) irNode() {}
func (*Comment) irNode()  {}

func (n *Let) Effects() EffectSet      { return n.effects }
func (n *Exec) Effects() EffectSet     { return n.effects }
func (n *Pipeline) Effects() EffectSet { return n.effects }
func (n *Sequence) Effects() EffectSet { return n.effects }
func (n *If) Effects() EffectSet       { return n.effects }
func (n *Loop) Effects() EffectSet     { return n.effects }
func (n *Case) Effects() EffectSet     { return n.effects }
func (n *Function) Effects() EffectSet { return n.effects }
func (n *Exit) Effects() EffectSet     { return n.effects }
func (n *Return) Effects() EffectSet   { return n.effects }
func (*Break) Effects() EffectSet      { return 0 }
func (*Continue) Effects() EffectSet   { return 0 }
func (*Comment) Effects() EffectSet    { return 0 }

func (n *Let) Pos() ast.Span      { return n.Span }
func (n *Exec) Pos() ast.Span     { return n.Span }
func (n *Pipeline) Pos() ast.Span { return n.Span }
func (n *Sequence) Pos() ast.Span { return n.Span }
func (n *If) Pos() ast.Span       { return n.Span }
func (n *Loop) Pos() ast.Span     { return n.Span }
func (n *Case) Pos() ast.Span     { return n.Span }
func (n *Function) Pos() ast.Span { return n.Span }
func (n *Exit) Pos() ast.Span     { return n.Span }
func (n *Return) Pos() ast.Span   { return n.Span }
func (n *Break) Pos() ast.Span    { return n.Span }
func (n *Continue) Pos() ast.Span { return n.Span }
func (n *Comment) Pos() ast.Span  { return n.Span }

func seqEffects(s *Sequence) EffectSet {
	if s == nil {
		return 0
	}
	return s.Effects()
}
