package compiler

import (
	"fmt"

	"github.com/roach88/puresh/internal/ast"
	"github.com/roach88/puresh/internal/ir"
)

// BuildError reports a tree that cannot be lowered to IR. Validation at the
// minimal level rejects every such tree first, so Compile only returns a
// BuildError when validation is disabled.
type BuildError struct {
	Message string
	Span    ast.Span
}

func (e *BuildError) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("build: %s: %s", e.Span, e.Message)
	}
	return "build: " + e.Message
}

// Build lowers a purified script to IR. Each statement becomes one IR node;
// effects are assigned by ClassifyCommand and combined by the ir constructors.
//
// Two statements need more than a 1:1 mapping: until becomes a while loop
// over the negated condition, and a C-style for becomes its init followed by
// a while loop whose body ends with the update. A continue that targets the
// C-style loop is lowered to the update followed by continue, so the update
// still runs.
func Build(script *ast.Script) (*ir.Program, error) {
	if script == nil {
		return nil, &BuildError{Message: "nil script"}
	}
	b := &builder{}
	body, err := b.seq(script.Statements, ast.Span{})
	if err != nil {
		return nil, err
	}
	return &ir.Program{Name: script.Name, Body: body}, nil
}

type builder struct {
	// update is the pending C-style update for continue statements that
	// target the innermost loop. nil when that loop is not C-style.
	update *ast.Assign
}

func (b *builder) seq(stmts []ast.Stmt, span ast.Span) (*ir.Sequence, error) {
	nodes := make([]ir.Node, 0, len(stmts))
	for _, s := range stmts {
		n, err := b.stmt(s)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return ir.NewSequence(nodes, span), nil
}

// loopSeq lowers a loop body with update as the pending C-style update.
func (b *builder) loopSeq(stmts []ast.Stmt, update *ast.Assign, span ast.Span) (*ir.Sequence, error) {
	saved := b.update
	b.update = update
	defer func() { b.update = saved }()
	return b.seq(stmts, span)
}

func (b *builder) stmt(s ast.Stmt) (ir.Node, error) {
	switch st := s.(type) {
	case nil:
		return nil, &BuildError{Message: "nil statement"}

	case *ast.Assign:
		return b.let(st)

	case *ast.Command:
		return b.exec(st)

	case *ast.Pipeline:
		stages := make([]*ir.Exec, len(st.Commands))
		for i, c := range st.Commands {
			e, err := b.exec(c)
			if err != nil {
				return nil, err
			}
			stages[i] = e
		}
		return ir.NewPipeline(stages, st.Span), nil

	case *ast.Function:
		// A function body is a new loop context: break and continue inside
		// it do not reach an enclosing loop of the definition site.
		body, err := b.loopSeq(st.Body, nil, st.Span)
		if err != nil {
			return nil, err
		}
		return ir.NewFunction(st.Name, body, st.Span), nil

	case *ast.If:
		return b.ifChain(st.Cond, st.Then, st.Elifs, st.Else, st.Span)

	case *ast.While:
		cond, err := b.cond(st.Cond, st.Span)
		if err != nil {
			return nil, err
		}
		body, err := b.loopSeq(st.Body, nil, st.Span)
		if err != nil {
			return nil, err
		}
		return ir.NewWhile(cond, body, st.Span), nil

	case *ast.Until:
		cond, err := b.cond(st.Cond, st.Span)
		if err != nil {
			return nil, err
		}
		body, err := b.loopSeq(st.Body, nil, st.Span)
		if err != nil {
			return nil, err
		}
		return ir.NewWhile(ir.Not{Cond: cond}, body, st.Span), nil

	case *ast.For:
		items, err := b.items(st.Items, st.Span)
		if err != nil {
			return nil, err
		}
		body, err := b.loopSeq(st.Body, nil, st.Span)
		if err != nil {
			return nil, err
		}
		return ir.NewFor(st.Variable, items, body, st.Span), nil

	case *ast.Select:
		items, err := b.items(st.Items, st.Span)
		if err != nil {
			return nil, err
		}
		body, err := b.loopSeq(st.Body, nil, st.Span)
		if err != nil {
			return nil, err
		}
		return ir.NewSelect(st.Variable, items, body, st.Span), nil

	case *ast.ForCStyle:
		return b.forCStyle(st)

	case *ast.Case:
		word, err := b.value(st.Word, st.Span)
		if err != nil {
			return nil, err
		}
		arms := make([]ir.CaseArm, len(st.Arms))
		for i, a := range st.Arms {
			body, err := b.seq(a.Body, st.Span)
			if err != nil {
				return nil, err
			}
			arms[i] = ir.CaseArm{Patterns: a.Patterns, Body: body}
		}
		return ir.NewCase(word, arms, st.Span), nil

	case *ast.Return:
		code, err := b.optValue(st.Code, st.Span)
		if err != nil {
			return nil, err
		}
		return ir.NewReturn(code, st.Span), nil

	case *ast.Exit:
		code, err := b.optValue(st.Code, st.Span)
		if err != nil {
			return nil, err
		}
		return ir.NewExit(code, st.Span), nil

	case *ast.Break:
		return &ir.Break{Span: st.Span}, nil

	case *ast.Continue:
		if b.update == nil {
			return &ir.Continue{Span: st.Span}, nil
		}
		update, err := b.let(b.update)
		if err != nil {
			return nil, err
		}
		return ir.NewSequence([]ir.Node{update, &ir.Continue{Span: st.Span}}, st.Span), nil

	case *ast.Comment:
		return &ir.Comment{Text: st.Text, Span: st.Span}, nil

	default:
		return nil, &BuildError{Message: fmt.Sprintf("unknown statement type %T", s), Span: s.Pos()}
	}
}

// ifChain lowers if/elif/else into nested If nodes, each elif becoming the
// sole node of its predecessor's else branch.
func (b *builder) ifChain(cond ast.Expr, then []ast.Stmt, elifs []ast.ElifClause, els []ast.Stmt, span ast.Span) (ir.Node, error) {
	c, err := b.cond(cond, span)
	if err != nil {
		return nil, err
	}
	t, err := b.seq(then, span)
	if err != nil {
		return nil, err
	}

	var e *ir.Sequence
	switch {
	case len(elifs) > 0:
		next, err := b.ifChain(elifs[0].Cond, elifs[0].Body, elifs[1:], els, span)
		if err != nil {
			return nil, err
		}
		e = ir.NewSequence([]ir.Node{next}, span)
	case els != nil:
		e, err = b.seq(els, span)
		if err != nil {
			return nil, err
		}
	}
	return ir.NewIf(c, t, e, span), nil
}

func (b *builder) forCStyle(st *ast.ForCStyle) (ir.Node, error) {
	var nodes []ir.Node
	if st.Init != nil {
		init, err := b.let(st.Init)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, init)
	}

	var cond ir.Condition = ir.CommandCond{Exec: ir.NewExec("true", nil, nil, ClassifyCommand("true"), st.Span)}
	if st.Cond != nil {
		c, err := b.cond(st.Cond, st.Span)
		if err != nil {
			return nil, err
		}
		cond = c
	}

	body, err := b.loopSeq(st.Body, st.Update, st.Span)
	if err != nil {
		return nil, err
	}
	if st.Update != nil {
		update, err := b.let(st.Update)
		if err != nil {
			return nil, err
		}
		body = ir.NewSequence(append(append([]ir.Node(nil), body.Nodes...), update), st.Span)
	}

	nodes = append(nodes, ir.NewWhile(cond, body, st.Span))
	return ir.NewSequence(nodes, st.Span), nil
}

func (b *builder) let(a *ast.Assign) (*ir.Let, error) {
	if a == nil {
		return nil, &BuildError{Message: "nil assignment"}
	}
	value, err := b.optValue(a.Value, a.Span)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = ir.Lit("")
	}
	return ir.NewLet(a.Name, value, a.Exported, a.Local, a.Span), nil
}

func (b *builder) exec(c *ast.Command) (*ir.Exec, error) {
	if c == nil {
		return nil, &BuildError{Message: "nil command"}
	}

	var args []ir.Value
	for _, a := range c.Args {
		vs, err := b.items(a, c.Span)
		if err != nil {
			return nil, err
		}
		args = append(args, vs...)
	}

	var redirects []ir.Redirect
	for _, r := range c.Redirects {
		target, err := b.optValue(r.Target, c.Span)
		if err != nil {
			return nil, err
		}
		redirects = append(redirects, ir.Redirect{Op: string(r.Op), Target: target})
	}

	return ir.NewExec(c.Name, args, redirects, ClassifyCommand(c.Name), c.Span), nil
}

// items lowers a word list: an Array contributes one value per item,
// anything else a single value.
func (b *builder) items(e ast.Expr, span ast.Span) ([]ir.Value, error) {
	if arr, ok := e.(ast.Array); ok {
		out := make([]ir.Value, 0, len(arr.Items))
		for _, item := range arr.Items {
			v, err := b.value(item, span)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	v, err := b.value(e, span)
	if err != nil {
		return nil, err
	}
	return []ir.Value{v}, nil
}

func (b *builder) optValue(e ast.Expr, span ast.Span) (ir.Value, error) {
	if e == nil {
		return nil, nil
	}
	return b.value(e, span)
}

func (b *builder) value(e ast.Expr, span ast.Span) (ir.Value, error) {
	switch ex := e.(type) {
	case nil:
		return nil, &BuildError{Message: "nil expression", Span: span}
	case ast.Literal:
		return ir.Lit(ex.Value), nil
	case ast.Variable:
		return ir.Var(ex.Name), nil
	case ast.Glob:
		return ir.Glob{Pattern: ex.Pattern}, nil
	case ast.CommandSubst:
		exec, err := b.exec(ex.Command)
		if err != nil {
			return nil, err
		}
		return ir.CommandSubst{Exec: exec}, nil
	case ast.Arithmetic:
		return b.arith(ex.Expr, span)
	case ast.Concat:
		parts := make([]ir.Value, len(ex.Parts))
		for i, p := range ex.Parts {
			v, err := b.value(p, span)
			if err != nil {
				return nil, err
			}
			parts[i] = v
		}
		return ir.Concat{Parts: parts}, nil
	case ast.Array:
		// In word position an array reads as its items joined by spaces.
		var parts []ir.Value
		for i, item := range ex.Items {
			if i > 0 {
				parts = append(parts, ir.Lit(" "))
			}
			v, err := b.value(item, span)
			if err != nil {
				return nil, err
			}
			parts = append(parts, v)
		}
		if len(parts) == 0 {
			return ir.Lit(""), nil
		}
		return ir.Concat{Parts: parts}, nil
	case ast.Escaped:
		inner, err := b.value(ex.Expr, span)
		if err != nil {
			return nil, err
		}
		return ir.Escape(inner), nil
	default:
		return nil, &BuildError{Message: fmt.Sprintf("%T cannot be used as a value", e), Span: span}
	}
}

func (b *builder) arith(a ast.ArithExpr, span ast.Span) (ir.Value, error) {
	switch ae := a.(type) {
	case ast.Number:
		return ir.Int(ae.Value), nil
	case ast.ArithVar:
		return ir.Var(ae.Name), nil
	case ast.Binary:
		op, err := ir.ParseArithOp(ae.Op)
		if err != nil {
			return nil, &BuildError{Message: err.Error(), Span: span}
		}
		l, err := b.arith(ae.Left, span)
		if err != nil {
			return nil, err
		}
		r, err := b.arith(ae.Right, span)
		if err != nil {
			return nil, err
		}
		return ir.Arith(op, l, r), nil
	default:
		return nil, &BuildError{Message: fmt.Sprintf("unknown arithmetic type %T", a), Span: span}
	}
}

func (b *builder) cond(e ast.Expr, span ast.Span) (ir.Condition, error) {
	switch ex := e.(type) {
	case ast.Test:
		return b.test(ex.Expr, span)
	case ast.CommandStatus:
		exec, err := b.exec(ex.Command)
		if err != nil {
			return nil, err
		}
		return ir.CommandCond{Exec: exec}, nil
	case ast.Literal:
		switch ex.Value {
		case "true", "false", ":":
			return ir.CommandCond{Exec: ir.NewExec(ex.Value, nil, nil, ClassifyCommand(ex.Value), span)}, nil
		}
	}
	return nil, &BuildError{Message: fmt.Sprintf("%T cannot be used as a condition", e), Span: span}
}

func (b *builder) test(t ast.TestExpr, span ast.Span) (ir.Condition, error) {
	switch te := t.(type) {
	case ast.StringCompare:
		return b.compare(te.Op, te.Left, te.Right, span)
	case ast.IntCompare:
		return b.compare(te.Op, te.Left, te.Right, span)
	case ast.FileTest:
		path, err := b.value(te.Path, span)
		if err != nil {
			return nil, err
		}
		return ir.FileCheck{Op: te.Op, Path: path}, nil
	case ast.StringTest:
		v, err := b.value(te.Value, span)
		if err != nil {
			return nil, err
		}
		return ir.StringCheck{Op: te.Op, Value: v}, nil
	case ast.And:
		l, r, err := b.testPair(te.Left, te.Right, span)
		if err != nil {
			return nil, err
		}
		return ir.And{Left: l, Right: r}, nil
	case ast.Or:
		l, r, err := b.testPair(te.Left, te.Right, span)
		if err != nil {
			return nil, err
		}
		return ir.Or{Left: l, Right: r}, nil
	case ast.Not:
		inner, err := b.test(te.Expr, span)
		if err != nil {
			return nil, err
		}
		return ir.Not{Cond: inner}, nil
	default:
		return nil, &BuildError{Message: fmt.Sprintf("unknown test type %T", t), Span: span}
	}
}

func (b *builder) compare(op string, left, right ast.Expr, span ast.Span) (ir.Condition, error) {
	l, err := b.value(left, span)
	if err != nil {
		return nil, err
	}
	r, err := b.value(right, span)
	if err != nil {
		return nil, err
	}
	return ir.Compare{Op: op, Left: l, Right: r}, nil
}

func (b *builder) testPair(left, right ast.TestExpr, span ast.Span) (ir.Condition, ir.Condition, error) {
	l, err := b.test(left, span)
	if err != nil {
		return nil, nil, err
	}
	r, err := b.test(right, span)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}
