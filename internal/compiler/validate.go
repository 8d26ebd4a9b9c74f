package compiler

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/puresh/internal/ast"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrMalformedNode = "E100" // nil or unknown tree node

	// Name errors (E101-E103)
	ErrInvalidVariableName = "E101" // not a shell identifier
	ErrInvalidFunctionName = "E102" // not a portable function name
	ErrEmptyCommandName    = "E103" // command with no name

	// Structure errors (E104-E109)
	ErrInvalidOperator   = "E104" // unknown test or arithmetic operator
	ErrDuplicateFunction = "E105" // function defined twice
	ErrEmptyCasePatterns = "E106" // case arm without patterns
	ErrInvalidRedirect   = "E107" // unknown redirect or missing target
	ErrInvalidCondition  = "E108" // condition is not a test or command
	ErrUnsupportedValue  = "E109" // value cannot appear in this position

	// Strict-only errors (E120-E129)
	ErrBreakOutsideLoop  = "E120" // break or continue outside a loop
	ErrReturnOutsideFunc = "E121" // return outside a function
	ErrLocalOutsideFunc  = "E122" // local assignment outside a function
)

// ValidationError represents a tree validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is the error returned by Compile when validation fails.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	if len(es) == 1 {
		return es[0].Error()
	}
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("%d validation errors:\n  %s", len(es), strings.Join(parts, "\n  "))
}

// identifierPattern also governs function names: dash rejects a function
// name that is not a plain identifier.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether name is a valid shell variable name.
func IsIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// isArithName accepts identifiers and the special parameters that
// purification rewrites, so validation never rejects a tree that purify
// would have fixed.
func isArithName(name string) bool {
	return IsIdentifier(name) || name == "$" || isPositional(name)
}

func isPositional(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Validate checks script at the given level and returns every error found
// (it does not fail fast). ValidationNone always returns nil.
func Validate(script *ast.Script, level ValidationLevel) []ValidationError {
	if level == ValidationNone {
		return nil
	}
	if script == nil {
		return []ValidationError{{Field: "script", Message: "script is nil", Code: ErrMalformedNode}}
	}

	v := &validator{
		strict:    level == ValidationStrict,
		functions: make(map[string]ast.Span),
	}
	v.stmts(script.Statements, "statements")
	return v.errs
}

type validator struct {
	strict    bool
	functions map[string]ast.Span
	errs      []ValidationError

	loopDepth int
	funcDepth int
}

func (v *validator) add(code, field string, span ast.Span, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
		Line:    span.StartLine,
		Col:     span.StartCol,
	})
}

func (v *validator) stmts(stmts []ast.Stmt, field string) {
	for i, s := range stmts {
		v.stmt(s, fmt.Sprintf("%s[%d]", field, i))
	}
}

func (v *validator) stmt(s ast.Stmt, field string) {
	switch st := s.(type) {
	case nil:
		v.add(ErrMalformedNode, field, ast.Span{}, "statement is nil")

	case *ast.Assign:
		v.assign(st, field)

	case *ast.Command:
		v.command(st, field)

	case *ast.Pipeline:
		if len(st.Commands) == 0 {
			v.add(ErrMalformedNode, field, st.Span, "pipeline has no commands")
		}
		for i, c := range st.Commands {
			v.command(c, fmt.Sprintf("%s.commands[%d]", field, i))
		}

	case *ast.Function:
		if !IsIdentifier(st.Name) {
			v.add(ErrInvalidFunctionName, field+".name", st.Span, "invalid function name %q", st.Name)
		}
		if prev, ok := v.functions[st.Name]; ok {
			v.add(ErrDuplicateFunction, field+".name", st.Span, "function %q already defined at %s", st.Name, prev)
		} else {
			v.functions[st.Name] = st.Span
		}
		v.funcDepth++
		saved := v.loopDepth
		v.loopDepth = 0
		v.stmts(st.Body, field+".body")
		v.loopDepth = saved
		v.funcDepth--

	case *ast.If:
		v.condition(st.Cond, field+".cond", st.Span)
		v.stmts(st.Then, field+".then")
		for i, e := range st.Elifs {
			v.condition(e.Cond, fmt.Sprintf("%s.elifs[%d].cond", field, i), st.Span)
			v.stmts(e.Body, fmt.Sprintf("%s.elifs[%d].body", field, i))
		}
		v.stmts(st.Else, field+".else")

	case *ast.While:
		v.condition(st.Cond, field+".cond", st.Span)
		v.loopBody(st.Body, field)

	case *ast.Until:
		v.condition(st.Cond, field+".cond", st.Span)
		v.loopBody(st.Body, field)

	case *ast.For:
		v.variable(st.Variable, field+".variable", st.Span)
		v.items(st.Items, field+".items", st.Span)
		v.loopBody(st.Body, field)

	case *ast.Select:
		v.variable(st.Variable, field+".variable", st.Span)
		v.items(st.Items, field+".items", st.Span)
		v.loopBody(st.Body, field)

	case *ast.ForCStyle:
		if st.Init != nil {
			v.assign(st.Init, field+".init")
		}
		if st.Cond != nil {
			v.condition(st.Cond, field+".cond", st.Span)
		}
		if st.Update != nil {
			v.assign(st.Update, field+".update")
		}
		v.loopBody(st.Body, field)

	case *ast.Case:
		v.value(st.Word, field+".word", st.Span)
		for i, a := range st.Arms {
			if len(a.Patterns) == 0 {
				v.add(ErrEmptyCasePatterns, fmt.Sprintf("%s.arms[%d]", field, i), st.Span, "case arm has no patterns")
			}
			v.stmts(a.Body, fmt.Sprintf("%s.arms[%d].body", field, i))
		}

	case *ast.Return:
		if v.strict && v.funcDepth == 0 {
			v.add(ErrReturnOutsideFunc, field, st.Span, "return outside a function")
		}
		if st.Code != nil {
			v.value(st.Code, field+".code", st.Span)
		}

	case *ast.Exit:
		if st.Code != nil {
			v.value(st.Code, field+".code", st.Span)
		}

	case *ast.Break:
		v.loopControl("break", field, st.Span)

	case *ast.Continue:
		v.loopControl("continue", field, st.Span)

	case *ast.Comment:
		// nothing to check

	default:
		v.add(ErrMalformedNode, field, s.Pos(), "unknown statement type %T", s)
	}
}

func (v *validator) loopBody(body []ast.Stmt, field string) {
	v.loopDepth++
	v.stmts(body, field+".body")
	v.loopDepth--
}

func (v *validator) loopControl(word, field string, span ast.Span) {
	if v.strict && v.loopDepth == 0 {
		v.add(ErrBreakOutsideLoop, field, span, "%s outside a loop", word)
	}
}

func (v *validator) assign(a *ast.Assign, field string) {
	if a == nil {
		v.add(ErrMalformedNode, field, ast.Span{}, "assignment is nil")
		return
	}
	v.variable(a.Name, field+".name", a.Span)
	if v.strict && a.Local && v.funcDepth == 0 {
		v.add(ErrLocalOutsideFunc, field, a.Span, "local assignment to %q outside a function", a.Name)
	}
	if a.Value != nil {
		v.value(a.Value, field+".value", a.Span)
	}
}

func (v *validator) variable(name, field string, span ast.Span) {
	if !IsIdentifier(name) {
		v.add(ErrInvalidVariableName, field, span, "invalid variable name %q", name)
	}
}

func (v *validator) command(c *ast.Command, field string) {
	if c == nil {
		v.add(ErrMalformedNode, field, ast.Span{}, "command is nil")
		return
	}
	if strings.TrimSpace(c.Name) == "" {
		v.add(ErrEmptyCommandName, field+".name", c.Span, "command name is empty")
	}
	for i, a := range c.Args {
		v.items(a, fmt.Sprintf("%s.args[%d]", field, i), c.Span)
	}
	for i, r := range c.Redirects {
		rf := fmt.Sprintf("%s.redirects[%d]", field, i)
		switch r.Op {
		case ast.RedirectOut, ast.RedirectAppend, ast.RedirectIn, ast.RedirectErr, ast.RedirectErrAppend:
			if r.Target == nil {
				v.add(ErrInvalidRedirect, rf, c.Span, "redirect %q requires a target", r.Op)
			} else {
				v.value(r.Target, rf+".target", c.Span)
			}
		case ast.RedirectErrToOut:
			if r.Target != nil {
				v.add(ErrInvalidRedirect, rf, c.Span, "redirect 2>&1 takes no target")
			}
		default:
			v.add(ErrInvalidRedirect, rf, c.Span, "unknown redirect operator %q", r.Op)
		}
	}
}

// items accepts an Array in addition to any value.
func (v *validator) items(e ast.Expr, field string, span ast.Span) {
	if arr, ok := e.(ast.Array); ok {
		for i, item := range arr.Items {
			v.value(item, fmt.Sprintf("%s[%d]", field, i), span)
		}
		return
	}
	v.value(e, field, span)
}

// value checks an expression used as a word.
func (v *validator) value(e ast.Expr, field string, span ast.Span) {
	switch ex := e.(type) {
	case nil:
		v.add(ErrMalformedNode, field, span, "expression is nil")
	case ast.Literal, ast.Glob:
	case ast.Variable:
		if !isArithName(ex.Name) && !isSpecialParam(ex.Name) {
			v.add(ErrInvalidVariableName, field, span, "invalid variable name %q", ex.Name)
		}
	case ast.CommandSubst:
		v.command(ex.Command, field+".command")
	case ast.Arithmetic:
		v.arith(ex.Expr, field+".expr", span)
	case ast.Array:
		// Arrays are joined with spaces in word position.
		for i, item := range ex.Items {
			v.value(item, fmt.Sprintf("%s[%d]", field, i), span)
		}
	case ast.Concat:
		for i, part := range ex.Parts {
			v.value(part, fmt.Sprintf("%s.parts[%d]", field, i), span)
		}
	case ast.Escaped:
		if expandsToMany(ex.Expr) {
			v.add(ErrUnsupportedValue, field, span, "cannot escape a value that expands to several words")
		}
		v.value(ex.Expr, field+".escape", span)
	case ast.Test, ast.CommandStatus:
		v.add(ErrUnsupportedValue, field, span, "%T can only be used as a condition", e)
	default:
		v.add(ErrMalformedNode, field, span, "unknown expression type %T", e)
	}
}

// expandsToMany reports whether e can expand to more than one word: a glob,
// "$@", or an array or concatenation holding one.
func expandsToMany(e ast.Expr) bool {
	switch ex := e.(type) {
	case ast.Glob:
		return true
	case ast.Variable:
		return ex.Name == "@"
	case ast.Array:
		return slices.ContainsFunc(ex.Items, expandsToMany)
	case ast.Concat:
		return slices.ContainsFunc(ex.Parts, expandsToMany)
	}
	return false
}

func isSpecialParam(name string) bool {
	switch name {
	case "@", "*", "#", "?", "-", "!":
		return true
	}
	return false
}

// condition checks an expression used as an if or loop condition.
func (v *validator) condition(e ast.Expr, field string, span ast.Span) {
	switch ex := e.(type) {
	case nil:
		v.add(ErrMalformedNode, field, span, "condition is nil")
	case ast.Test:
		v.test(ex.Expr, field, span)
	case ast.CommandStatus:
		v.command(ex.Command, field+".command")
	case ast.Literal:
		if ex.Value != "true" && ex.Value != "false" && ex.Value != ":" {
			v.add(ErrInvalidCondition, field, span, "literal condition %q must be true, false or :", ex.Value)
		}
	default:
		v.add(ErrInvalidCondition, field, span, "condition must be a test or a command, got %T", e)
	}
}

func (v *validator) test(t ast.TestExpr, field string, span ast.Span) {
	switch te := t.(type) {
	case nil:
		v.add(ErrMalformedNode, field, span, "test expression is nil")
	case ast.StringCompare:
		if !ast.ValidStringCompareOp(te.Op) {
			v.add(ErrInvalidOperator, field+".op", span, "invalid string comparison operator %q", te.Op)
		}
		v.value(te.Left, field+".left", span)
		v.value(te.Right, field+".right", span)
	case ast.IntCompare:
		if !ast.ValidIntCompareOp(te.Op) {
			v.add(ErrInvalidOperator, field+".op", span, "invalid integer comparison operator %q", te.Op)
		}
		v.value(te.Left, field+".left", span)
		v.value(te.Right, field+".right", span)
	case ast.FileTest:
		if !ast.ValidFileTestOp(te.Op) {
			v.add(ErrInvalidOperator, field+".op", span, "invalid file test operator %q", te.Op)
		}
		v.value(te.Path, field+".path", span)
	case ast.StringTest:
		if !ast.ValidStringTestOp(te.Op) {
			v.add(ErrInvalidOperator, field+".op", span, "invalid string test operator %q", te.Op)
		}
		v.value(te.Value, field+".value", span)
	case ast.And:
		v.test(te.Left, field+".left", span)
		v.test(te.Right, field+".right", span)
	case ast.Or:
		v.test(te.Left, field+".left", span)
		v.test(te.Right, field+".right", span)
	case ast.Not:
		v.test(te.Expr, field+".expr", span)
	default:
		v.add(ErrMalformedNode, field, span, "unknown test type %T", t)
	}
}

func (v *validator) arith(a ast.ArithExpr, field string, span ast.Span) {
	switch ae := a.(type) {
	case nil:
		v.add(ErrMalformedNode, field, span, "arithmetic expression is nil")
	case ast.Number:
	case ast.ArithVar:
		if !isArithName(ae.Name) {
			v.add(ErrInvalidVariableName, field, span, "invalid arithmetic variable %q", ae.Name)
		}
	case ast.Binary:
		if !ast.ValidArithOp(ae.Op) {
			v.add(ErrInvalidOperator, field+".op", span, "invalid arithmetic operator %q", ae.Op)
		}
		v.arith(ae.Left, field+".left", span)
		v.arith(ae.Right, field+".right", span)
	default:
		v.add(ErrMalformedNode, field, span, "unknown arithmetic type %T", a)
	}
}
