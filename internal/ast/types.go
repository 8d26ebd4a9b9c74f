package ast

import "fmt"

// Span locates a node in its source document.
type Span struct {
	File      string `json:"file,omitempty" yaml:"file,omitempty"`
	StartLine int    `json:"start_line,omitempty" yaml:"start_line,omitempty"`
	StartCol  int    `json:"start_col,omitempty" yaml:"start_col,omitempty"`
	EndLine   int    `json:"end_line,omitempty" yaml:"end_line,omitempty"`
	EndCol    int    `json:"end_col,omitempty" yaml:"end_col,omitempty"`
}

// IsValid reports whether the span points at a real source line.
func (s Span) IsValid() bool {
	return s.StartLine > 0
}

// String renders the span as file:line:col.
func (s Span) String() string {
	if !s.IsValid() {
		return "<unknown>"
	}
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.StartLine, s.StartCol)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.StartLine, s.StartCol)
}

// Script is the root of a parsed shell script.
type Script struct {
	Name       string
	Statements []Stmt
}

// Stmt is a sealed interface over statement variants.
type Stmt interface {
	stmtNode()
	Pos() Span
}

// Expr is a sealed interface over word-level expressions.
type Expr interface {
	exprNode()
}

// TestExpr is a sealed interface over conditional test expressions.
type TestExpr interface {
	testNode()
}

// ArithExpr is a sealed interface over arithmetic expressions.
type ArithExpr interface {
	arithNode()
}

// Assign is `NAME=value`, optionally exported or function-local.
type Assign struct {
	Name     string
	Value    Expr
	Exported bool
	Local    bool
	Span     Span
}

// RedirectOp is a redirection operator.
type RedirectOp string

// Supported redirection operators.
const (
	RedirectOut       RedirectOp = ">"
	RedirectAppend    RedirectOp = ">>"
	RedirectIn        RedirectOp = "<"
	RedirectErr       RedirectOp = "2>"
	RedirectErrAppend RedirectOp = "2>>"
	RedirectErrToOut  RedirectOp = "2>&1"
)

// Redirect attaches a redirection to a command. Target is nil for 2>&1.
type Redirect struct {
	Op     RedirectOp
	Target Expr
}

// Command is a simple command invocation.
type Command struct {
	Name      string
	Args      []Expr
	Redirects []Redirect
	Span      Span
}

// Pipeline connects commands stdout to stdin.
type Pipeline struct {
	Commands []*Command
	Span     Span
}

// Function is a function definition.
type Function struct {
	Name string
	Body []Stmt
	Span Span
}

// ElifClause is one `elif` branch of an If.
type ElifClause struct {
	Cond Expr
	Body []Stmt
}

// If is a conditional with optional elif and else branches.
type If struct {
	Cond  Expr
	Then  []Stmt
	Elifs []ElifClause
	Else  []Stmt
	Span  Span
}

// While loops while Cond holds.
type While struct {
	Cond Expr
	Body []Stmt
	Span Span
}

// Until loops until Cond holds.
type Until struct {
	Cond Expr
	Body []Stmt
	Span Span
}

// For iterates Variable over Items.
type For struct {
	Variable string
	Items    Expr
	Body     []Stmt
	Span     Span
}

// ForCStyle is `for ((init; cond; update))`. Init and Update may be nil.
type ForCStyle struct {
	Init   *Assign
	Cond   Expr
	Update *Assign
	Body   []Stmt
	Span   Span
}

// CaseArm is one `pattern) body ;;` arm.
type CaseArm struct {
	Patterns []string
	Body     []Stmt
}

// Case matches Word against arms in order.
type Case struct {
	Word Expr
	Arms []CaseArm
	Span Span
}

// Select presents a menu of Items and binds the choice to Variable.
type Select struct {
	Variable string
	Items    Expr
	Body     []Stmt
	Span     Span
}

// Return leaves the enclosing function. Code may be nil.
type Return struct {
	Code Expr
	Span Span
}

// Exit terminates the script. Code may be nil.
type Exit struct {
	Code Expr
	Span Span
}

// Break leaves the innermost loop.
type Break struct {
	Span Span
}

// Continue starts the next iteration of the innermost loop.
type Continue struct {
	Span Span
}

// Comment is a source comment carried through to the output.
type Comment struct {
	Text string
	Span Span
}

func (*Assign) stmtNode()    {}
func (*Command) stmtNode()   {}
func (*Pipeline) stmtNode()  {}
func (*Function) stmtNode()  {}
func (*If) stmtNode()        {}
func (*While) stmtNode()     {}
func (*Until) stmtNode()     {}
func (*For) stmtNode()       {}
func (*ForCStyle) stmtNode() {}
func (*Case) stmtNode()      {}
func (*Select) stmtNode()    {}
func (*Return) stmtNode()    {}
func (*Exit) stmtNode()      {}
func (*Break) stmtNode()     {}
func (*Continue) stmtNode()  {}
func (*Comment) stmtNode()   {}

func (s *Assign) Pos() Span    { return s.Span }
func (s *Command) Pos() Span   { return s.Span }
func (s *Pipeline) Pos() Span  { return s.Span }
func (s *Function) Pos() Span  { return s.Span }
func (s *If) Pos() Span        { return s.Span }
func (s *While) Pos() Span     { return s.Span }
func (s *Until) Pos() Span     { return s.Span }
func (s *For) Pos() Span       { return s.Span }
func (s *ForCStyle) Pos() Span { return s.Span }
func (s *Case) Pos() Span      { return s.Span }
func (s *Select) Pos() Span    { return s.Span }
func (s *Return) Pos() Span    { return s.Span }
func (s *Exit) Pos() Span      { return s.Span }
func (s *Break) Pos() Span     { return s.Span }
func (s *Continue) Pos() Span  { return s.Span }
func (s *Comment) Pos() Span   { return s.Span }

// Literal is a plain string word.
type Literal struct {
	Value string
}

// Variable is a parameter expansion `${Name}`.
type Variable struct {
	Name string
}

// CommandSubst is `$(command)`.
type CommandSubst struct {
	Command *Command
}

// Arithmetic is `$((expr))`.
type Arithmetic struct {
	Expr ArithExpr
}

// Array is a list of words, used for `for` items and similar.
type Array struct {
	Items []Expr
}

// Concat joins parts into a single word.
type Concat struct {
	Parts []Expr
}

// Test is a conditional expression used as a condition.
type Test struct {
	Expr TestExpr
}

// Glob is an unquoted pattern left for pathname expansion.
type Glob struct {
	Pattern string
}

// Escaped is data quoted as a single shell word before it reaches a
// command that evaluates its arguments again, such as eval or sh -c.
type Escaped struct {
	Expr Expr
}

func (Literal) exprNode()      {}
func (Variable) exprNode()     {}
func (CommandSubst) exprNode() {}
func (Arithmetic) exprNode()   {}
func (Array) exprNode()        {}
func (Concat) exprNode()       {}
func (Test) exprNode()         {}
func (Glob) exprNode()         {}
func (Escaped) exprNode()      {}

// StringCompare compares two words with = or !=.
type StringCompare struct {
	Op    string
	Left  Expr
	Right Expr
}

// IntCompare compares two integers with -eq, -ne, -lt, -le, -gt or -ge.
type IntCompare struct {
	Op    string
	Left  Expr
	Right Expr
}

// FileTest checks a path with a unary file operator such as -d or -f.
type FileTest struct {
	Op   string
	Path Expr
}

// StringTest checks a word with -z or -n.
type StringTest struct {
	Op    string
	Value Expr
}

// And is a logical conjunction.
type And struct {
	Left  TestExpr
	Right TestExpr
}

// Or is a logical disjunction.
type Or struct {
	Left  TestExpr
	Right TestExpr
}

// Not negates a test.
type Not struct {
	Expr TestExpr
}

func (StringCompare) testNode() {}
func (IntCompare) testNode()    {}
func (FileTest) testNode()      {}
func (StringTest) testNode()    {}
func (And) testNode()           {}
func (Or) testNode()            {}
func (Not) testNode()           {}

// Number is an integer literal in arithmetic context.
type Number struct {
	Value int64
}

// ArithVar is a variable reference in arithmetic context.
type ArithVar struct {
	Name string
}

// Binary is a binary arithmetic operation.
type Binary struct {
	Op    string
	Left  ArithExpr
	Right ArithExpr
}

func (Number) arithNode()   {}
func (ArithVar) arithNode() {}
func (Binary) arithNode()   {}

// ValidStringCompareOp reports whether op is a string comparison operator.
func ValidStringCompareOp(op string) bool {
	return op == "=" || op == "!="
}

// ValidIntCompareOp reports whether op is an integer comparison operator.
func ValidIntCompareOp(op string) bool {
	switch op {
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		return true
	}
	return false
}

// ValidFileTestOp reports whether op is a unary file test operator.
func ValidFileTestOp(op string) bool {
	switch op {
	case "-e", "-f", "-d", "-r", "-w", "-x", "-s", "-L":
		return true
	}
	return false
}

// ValidStringTestOp reports whether op is -z or -n.
func ValidStringTestOp(op string) bool {
	return op == "-z" || op == "-n"
}

// ValidArithOp reports whether op is a supported binary arithmetic operator.
func ValidArithOp(op string) bool {
	switch op {
	case "+", "-", "*", "/", "%":
		return true
	}
	return false
}

// CommandStatus uses the exit status of Command as a condition,
// as in `if grep -q x file; then`.
type CommandStatus struct {
	Command *Command
}

func (CommandStatus) exprNode() {}
