package purify

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/puresh/internal/ast"
)

// Result is a purified script together with the fixes that produced it.
type Result struct {
	Script *ast.Script
	Report *Report
}

// Purify returns a deterministic, idempotent copy of script.
//
// The input tree is not modified. Purify(Purify(x).Script) yields the same
// tree as Purify(x).Script and logs no further fixes.
func Purify(script *ast.Script, opts Options) (*Result, error) {
	if script == nil {
		return nil, &PurificationError{Message: "nil script"}
	}

	p := &purifier{
		opts:    opts,
		report:  &Report{},
		tainted: make(map[string]bool),
	}

	stmts, err := p.stmts(script.Statements)
	if err != nil {
		return nil, err
	}

	slog.Debug("purified script",
		"script", script.Name,
		"determinism_fixes", p.report.Count(FixDeterminism),
		"idempotency_fixes", p.report.Count(FixIdempotency),
	)

	return &Result{
		Script: &ast.Script{Name: script.Name, Statements: stmts},
		Report: p.report,
	}, nil
}

// purifier holds the state of a single run.
type purifier struct {
	opts   Options
	report *Report

	// tainted holds variables assigned from date or mktemp output earlier
	// in walk order.
	tainted map[string]bool

	// branches counts the enclosing bodies that may not run. A reassignment
	// clears taint only outside all of them.
	branches int
}

func (p *purifier) stmts(in []ast.Stmt) ([]ast.Stmt, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]ast.Stmt, len(in))
	for i, s := range in {
		ps, err := p.stmt(s)
		if err != nil {
			return nil, err
		}
		out[i] = ps
	}
	return out, nil
}

// branch purifies a body that runs conditionally or repeatedly.
func (p *purifier) branch(in []ast.Stmt) ([]ast.Stmt, error) {
	p.branches++
	defer func() { p.branches-- }()
	return p.stmts(in)
}

func (p *purifier) stmt(s ast.Stmt) (ast.Stmt, error) {
	switch st := s.(type) {
	case nil:
		return nil, &PurificationError{Message: "nil statement"}

	case *ast.Assign:
		return p.assign(st)

	case *ast.Command:
		return p.command(st)

	case *ast.Pipeline:
		cmds := make([]*ast.Command, len(st.Commands))
		for i, c := range st.Commands {
			pc, err := p.command(c)
			if err != nil {
				return nil, err
			}
			cmds[i] = pc
		}
		return &ast.Pipeline{Commands: cmds, Span: st.Span}, nil

	case *ast.Function:
		body, err := p.branch(st.Body)
		if err != nil {
			return nil, err
		}
		return &ast.Function{Name: st.Name, Body: body, Span: st.Span}, nil

	case *ast.If:
		cond, err := p.expr(st.Cond, st.Span)
		if err != nil {
			return nil, err
		}
		then, err := p.branch(st.Then)
		if err != nil {
			return nil, err
		}
		var elifs []ast.ElifClause
		if st.Elifs != nil {
			elifs = make([]ast.ElifClause, len(st.Elifs))
			for i, e := range st.Elifs {
				ec, err := p.expr(e.Cond, st.Span)
				if err != nil {
					return nil, err
				}
				eb, err := p.branch(e.Body)
				if err != nil {
					return nil, err
				}
				elifs[i] = ast.ElifClause{Cond: ec, Body: eb}
			}
		}
		els, err := p.branch(st.Else)
		if err != nil {
			return nil, err
		}
		return &ast.If{Cond: cond, Then: then, Elifs: elifs, Else: els, Span: st.Span}, nil

	case *ast.While:
		cond, body, err := p.condBody(st.Cond, st.Body, st.Span)
		if err != nil {
			return nil, err
		}
		return &ast.While{Cond: cond, Body: body, Span: st.Span}, nil

	case *ast.Until:
		cond, body, err := p.condBody(st.Cond, st.Body, st.Span)
		if err != nil {
			return nil, err
		}
		return &ast.Until{Cond: cond, Body: body, Span: st.Span}, nil

	case *ast.For:
		items, body, err := p.condBody(st.Items, st.Body, st.Span)
		if err != nil {
			return nil, err
		}
		return &ast.For{Variable: st.Variable, Items: items, Body: body, Span: st.Span}, nil

	case *ast.Select:
		items, body, err := p.condBody(st.Items, st.Body, st.Span)
		if err != nil {
			return nil, err
		}
		return &ast.Select{Variable: st.Variable, Items: items, Body: body, Span: st.Span}, nil

	case *ast.ForCStyle:
		return p.forCStyle(st)

	case *ast.Case:
		word, err := p.expr(st.Word, st.Span)
		if err != nil {
			return nil, err
		}
		arms := make([]ast.CaseArm, len(st.Arms))
		for i, a := range st.Arms {
			body, err := p.branch(a.Body)
			if err != nil {
				return nil, err
			}
			arms[i] = ast.CaseArm{Patterns: append([]string(nil), a.Patterns...), Body: body}
		}
		return &ast.Case{Word: word, Arms: arms, Span: st.Span}, nil

	case *ast.Return:
		code, err := p.optExpr(st.Code, st.Span)
		if err != nil {
			return nil, err
		}
		return &ast.Return{Code: code, Span: st.Span}, nil

	case *ast.Exit:
		code, err := p.optExpr(st.Code, st.Span)
		if err != nil {
			return nil, err
		}
		return &ast.Exit{Code: code, Span: st.Span}, nil

	case *ast.Break:
		return &ast.Break{Span: st.Span}, nil

	case *ast.Continue:
		return &ast.Continue{Span: st.Span}, nil

	case *ast.Comment:
		return &ast.Comment{Text: st.Text, Span: st.Span}, nil

	default:
		return nil, &PurificationError{
			Message: fmt.Sprintf("unknown statement type %T", s),
			Span:    s.Pos(),
		}
	}
}

func (p *purifier) condBody(cond ast.Expr, body []ast.Stmt, span ast.Span) (ast.Expr, []ast.Stmt, error) {
	pc, err := p.expr(cond, span)
	if err != nil {
		return nil, nil, err
	}
	pb, err := p.branch(body)
	if err != nil {
		return nil, nil, err
	}
	return pc, pb, nil
}

func (p *purifier) forCStyle(st *ast.ForCStyle) (ast.Stmt, error) {
	out := &ast.ForCStyle{Span: st.Span}
	if st.Init != nil {
		init, err := p.assign(st.Init)
		if err != nil {
			return nil, err
		}
		out.Init = init
	}
	cond, err := p.optExpr(st.Cond, st.Span)
	if err != nil {
		return nil, err
	}
	out.Cond = cond
	p.branches++
	defer func() { p.branches-- }()
	if st.Update != nil {
		update, err := p.assign(st.Update)
		if err != nil {
			return nil, err
		}
		out.Update = update
	}
	body, err := p.stmts(st.Body)
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

func (p *purifier) assign(a *ast.Assign) (*ast.Assign, error) {
	value, err := p.optExpr(a.Value, a.Span)
	if err != nil {
		return nil, err
	}

	// Taint is tracked on the input value so a second run over purified
	// output sees the same assignments and reaches the same decisions.
	// Inside a branch the other path may still hold the old value.
	switch {
	case capturesNondeterminism(a.Value):
		p.tainted[a.Name] = true
	case p.branches == 0:
		delete(p.tainted, a.Name)
	}

	return &ast.Assign{
		Name:     a.Name,
		Value:    value,
		Exported: a.Exported,
		Local:    a.Local,
		Span:     a.Span,
	}, nil
}

// capturesNondeterminism reports whether an assignment value holds output of
// date or mktemp, or copies a non-deterministic parameter.
func capturesNondeterminism(e ast.Expr) bool {
	switch ex := e.(type) {
	case ast.CommandSubst:
		return ex.Command != nil && nondeterministicSources[ex.Command.Name]
	case ast.Variable:
		return nondeterministicVars[ex.Name]
	case ast.Concat:
		for _, part := range ex.Parts {
			if capturesNondeterminism(part) {
				return true
			}
		}
	}
	return false
}

func (p *purifier) command(c *ast.Command) (*ast.Command, error) {
	if c == nil {
		return nil, &PurificationError{Message: "nil command"}
	}

	args, err := p.exprs(c.Args, c.Span)
	if err != nil {
		return nil, err
	}

	redirects := make([]ast.Redirect, len(c.Redirects))
	for i, r := range c.Redirects {
		target, err := p.optExpr(r.Target, c.Span)
		if err != nil {
			return nil, err
		}
		redirects[i] = ast.Redirect{Op: r.Op, Target: target}
	}
	if c.Redirects == nil {
		redirects = nil
	}

	if p.opts.EnforceIdempotency {
		args = p.idempotent(c.Name, args, c.Span)
	}

	return &ast.Command{Name: c.Name, Args: args, Redirects: redirects, Span: c.Span}, nil
}

// idempotent applies the idempotency rule for name, if any.
func (p *purifier) idempotent(name string, args []ast.Expr, span ast.Span) []ast.Expr {
	rule, ok := idempotencyRules[name]
	if !ok {
		return args
	}

	flags := literalFlags(args)
	if !rule.applies(flags) || rule.satisfied(flags) {
		return args
	}

	p.report.add(Fix{
		Kind:       FixIdempotency,
		Subject:    name,
		Message:    rule.message,
		Assumption: rule.assumption,
		Span:       span,
	})

	out := make([]ast.Expr, 0, len(args)+1)
	out = append(out, ast.Literal{Value: rule.flag})
	return append(out, args...)
}

// literalFlags returns the literal option words of a command, stopping at "--".
func literalFlags(args []ast.Expr) []string {
	var flags []string
	for _, a := range args {
		lit, ok := a.(ast.Literal)
		if !ok {
			continue
		}
		if lit.Value == "--" {
			break
		}
		if len(lit.Value) > 1 && strings.HasPrefix(lit.Value, "-") {
			flags = append(flags, lit.Value)
		}
	}
	return flags
}

func (p *purifier) exprs(in []ast.Expr, span ast.Span) ([]ast.Expr, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]ast.Expr, len(in))
	for i, e := range in {
		pe, err := p.expr(e, span)
		if err != nil {
			return nil, err
		}
		out[i] = pe
	}
	return out, nil
}

func (p *purifier) optExpr(e ast.Expr, span ast.Span) (ast.Expr, error) {
	if e == nil {
		return nil, nil
	}
	return p.expr(e, span)
}

// expr purifies a word-level expression. span is the enclosing statement's
// span, used for fixes inside the expression.
func (p *purifier) expr(e ast.Expr, span ast.Span) (ast.Expr, error) {
	switch ex := e.(type) {
	case nil:
		return nil, &PurificationError{Message: "nil expression", Span: span}

	case ast.Literal:
		return ex, nil

	case ast.Variable:
		return ex, nil

	case ast.Glob:
		return ex, nil

	case ast.CommandSubst:
		cmd, err := p.command(ex.Command)
		if err != nil {
			return nil, err
		}
		return ast.CommandSubst{Command: cmd}, nil

	case ast.CommandStatus:
		cmd, err := p.command(ex.Command)
		if err != nil {
			return nil, err
		}
		return ast.CommandStatus{Command: cmd}, nil

	case ast.Arithmetic:
		arith, err := p.arith(ex.Expr, span)
		if err != nil {
			return nil, err
		}
		return ast.Arithmetic{Expr: arith}, nil

	case ast.Array:
		items, err := p.exprs(ex.Items, span)
		if err != nil {
			return nil, err
		}
		return ast.Array{Items: items}, nil

	case ast.Concat:
		parts, err := p.exprs(ex.Parts, span)
		if err != nil {
			return nil, err
		}
		return ast.Concat{Parts: parts}, nil

	case ast.Test:
		t, err := p.test(ex.Expr, span)
		if err != nil {
			return nil, err
		}
		return ast.Test{Expr: t}, nil

	case ast.Escaped:
		inner, err := p.expr(ex.Expr, span)
		if err != nil {
			return nil, err
		}
		return ast.Escaped{Expr: inner}, nil

	default:
		return nil, &PurificationError{Message: fmt.Sprintf("unknown expression type %T", e), Span: span}
	}
}

func (p *purifier) test(t ast.TestExpr, span ast.Span) (ast.TestExpr, error) {
	switch te := t.(type) {
	case nil:
		return nil, &PurificationError{Message: "nil test expression", Span: span}

	case ast.StringCompare:
		l, r, err := p.pair(te.Left, te.Right, span)
		if err != nil {
			return nil, err
		}
		return ast.StringCompare{Op: te.Op, Left: l, Right: r}, nil

	case ast.IntCompare:
		l, r, err := p.pair(te.Left, te.Right, span)
		if err != nil {
			return nil, err
		}
		return ast.IntCompare{Op: te.Op, Left: l, Right: r}, nil

	case ast.FileTest:
		path, err := p.expr(te.Path, span)
		if err != nil {
			return nil, err
		}
		return ast.FileTest{Op: te.Op, Path: path}, nil

	case ast.StringTest:
		v, err := p.expr(te.Value, span)
		if err != nil {
			return nil, err
		}
		return ast.StringTest{Op: te.Op, Value: v}, nil

	case ast.And:
		l, err := p.test(te.Left, span)
		if err != nil {
			return nil, err
		}
		r, err := p.test(te.Right, span)
		if err != nil {
			return nil, err
		}
		return ast.And{Left: l, Right: r}, nil

	case ast.Or:
		l, err := p.test(te.Left, span)
		if err != nil {
			return nil, err
		}
		r, err := p.test(te.Right, span)
		if err != nil {
			return nil, err
		}
		return ast.Or{Left: l, Right: r}, nil

	case ast.Not:
		inner, err := p.test(te.Expr, span)
		if err != nil {
			return nil, err
		}
		return ast.Not{Expr: inner}, nil

	default:
		return nil, &PurificationError{Message: fmt.Sprintf("unknown test type %T", t), Span: span}
	}
}

func (p *purifier) pair(left, right ast.Expr, span ast.Span) (ast.Expr, ast.Expr, error) {
	l, err := p.expr(left, span)
	if err != nil {
		return nil, nil, err
	}
	r, err := p.expr(right, span)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func (p *purifier) arith(a ast.ArithExpr, span ast.Span) (ast.ArithExpr, error) {
	switch ae := a.(type) {
	case nil:
		return nil, &PurificationError{Message: "nil arithmetic expression", Span: span}

	case ast.Number:
		return ae, nil

	case ast.ArithVar:
		if !p.opts.RemoveNonDeterministic {
			return ae, nil
		}
		if nondeterministicVars[ae.Name] || p.tainted[ae.Name] {
			p.report.add(Fix{
				Kind:       FixDeterminism,
				Subject:    ae.Name,
				Message:    fmt.Sprintf("replaced $%s with 0 in arithmetic context", ae.Name),
				Assumption: "a fixed value is acceptable where the script used a varying one",
				Span:       span,
			})
			return ast.Number{Value: 0}, nil
		}
		return ae, nil

	case ast.Binary:
		l, err := p.arith(ae.Left, span)
		if err != nil {
			return nil, err
		}
		r, err := p.arith(ae.Right, span)
		if err != nil {
			return nil, err
		}
		return ast.Binary{Op: ae.Op, Left: l, Right: r}, nil

	default:
		return nil, &PurificationError{Message: fmt.Sprintf("unknown arithmetic type %T", a), Span: span}
	}
}
