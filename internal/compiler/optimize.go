package compiler

import (
	"errors"
	"fmt"

	"github.com/roach88/puresh/internal/ast"
	"github.com/roach88/puresh/internal/ir"
)

// OptimizeError reports an arithmetic expression that cannot be folded.
type OptimizeError struct {
	Message string
	Expr    string
	Span    ast.Span
}

func (e *OptimizeError) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("optimize: %s: %s in %s", e.Span, e.Message, e.Expr)
	}
	return fmt.Sprintf("optimize: %s in %s", e.Message, e.Expr)
}

// IsOptimizeError reports whether err wraps an *OptimizeError.
func IsOptimizeError(err error) bool {
	var oe *OptimizeError
	return errors.As(err, &oe)
}

// Optimize folds constant arithmetic throughout prog. It is a no-op when
// cfg.Optimize is false.
//
// Folding is bottom-up: children fold first, and a parent folds when both
// operands are now integer literals. Arithmetic is 64-bit two's complement
// with truncating division, matching $(( )). A subtree with any variable
// leaf is returned unchanged. Division or modulo by a literal zero is an
// error. Arithmetic is pure, so node effects are unchanged.
func Optimize(prog *ir.Program, cfg Config) (*ir.Program, error) {
	if !cfg.Optimize || prog == nil {
		return prog, nil
	}
	body, err := foldSeq(prog.Body)
	if err != nil {
		return nil, err
	}
	return &ir.Program{Name: prog.Name, Body: body}, nil
}

// FoldArithmetic folds a single value. It is exported for tests and tools
// that evaluate values outside a program.
func FoldArithmetic(v ir.Value) (ir.Value, error) {
	return foldValue(v, ast.Span{})
}

func foldSeq(s *ir.Sequence) (*ir.Sequence, error) {
	if s == nil {
		return nil, nil
	}
	nodes := make([]ir.Node, len(s.Nodes))
	for i, n := range s.Nodes {
		fn, err := foldNode(n)
		if err != nil {
			return nil, err
		}
		nodes[i] = fn
	}
	return ir.NewSequence(nodes, s.Span), nil
}

func foldNode(n ir.Node) (ir.Node, error) {
	switch node := n.(type) {
	case *ir.Sequence:
		return foldSeq(node)

	case *ir.Let:
		v, err := foldValue(node.Value, node.Span)
		if err != nil {
			return nil, err
		}
		return ir.NewLet(node.Name, v, node.Exported, node.Local, node.Span), nil

	case *ir.Exec:
		return foldExec(node)

	case *ir.Pipeline:
		stages := make([]*ir.Exec, len(node.Stages))
		for i, s := range node.Stages {
			fs, err := foldExec(s)
			if err != nil {
				return nil, err
			}
			stages[i] = fs
		}
		return ir.NewPipeline(stages, node.Span), nil

	case *ir.If:
		cond, err := foldCond(node.Cond, node.Span)
		if err != nil {
			return nil, err
		}
		then, err := foldSeq(node.Then)
		if err != nil {
			return nil, err
		}
		els, err := foldSeq(node.Else)
		if err != nil {
			return nil, err
		}
		return ir.NewIf(cond, then, els, node.Span), nil

	case *ir.Loop:
		body, err := foldSeq(node.Body)
		if err != nil {
			return nil, err
		}
		switch node.Kind {
		case ir.LoopWhile:
			cond, err := foldCond(node.Cond, node.Span)
			if err != nil {
				return nil, err
			}
			return ir.NewWhile(cond, body, node.Span), nil
		case ir.LoopSelect:
			items, err := foldValues(node.Items, node.Span)
			if err != nil {
				return nil, err
			}
			return ir.NewSelect(node.Variable, items, body, node.Span), nil
		default:
			items, err := foldValues(node.Items, node.Span)
			if err != nil {
				return nil, err
			}
			return ir.NewFor(node.Variable, items, body, node.Span), nil
		}

	case *ir.Case:
		word, err := foldValue(node.Word, node.Span)
		if err != nil {
			return nil, err
		}
		arms := make([]ir.CaseArm, len(node.Arms))
		for i, a := range node.Arms {
			body, err := foldSeq(a.Body)
			if err != nil {
				return nil, err
			}
			arms[i] = ir.CaseArm{Patterns: a.Patterns, Body: body}
		}
		return ir.NewCase(word, arms, node.Span), nil

	case *ir.Function:
		body, err := foldSeq(node.Body)
		if err != nil {
			return nil, err
		}
		return ir.NewFunction(node.Name, body, node.Span), nil

	case *ir.Exit:
		code, err := foldOptValue(node.Code, node.Span)
		if err != nil {
			return nil, err
		}
		return ir.NewExit(code, node.Span), nil

	case *ir.Return:
		code, err := foldOptValue(node.Code, node.Span)
		if err != nil {
			return nil, err
		}
		return ir.NewReturn(code, node.Span), nil

	default:
		// Break, Continue, Comment
		return n, nil
	}
}

func foldExec(e *ir.Exec) (*ir.Exec, error) {
	args, err := foldValues(e.Args, e.Span)
	if err != nil {
		return nil, err
	}
	var redirects []ir.Redirect
	for _, r := range e.Redirects {
		target, err := foldOptValue(r.Target, e.Span)
		if err != nil {
			return nil, err
		}
		redirects = append(redirects, ir.Redirect{Op: r.Op, Target: target})
	}
	// Folding only replaces pure arithmetic with pure literals, so the
	// original effect set carries over.
	return ir.NewExec(e.Command, args, redirects, e.Effects(), e.Span), nil
}

func foldCond(c ir.Condition, span ast.Span) (ir.Condition, error) {
	switch cond := c.(type) {
	case nil:
		return nil, nil
	case ir.Compare:
		l, err := foldValue(cond.Left, span)
		if err != nil {
			return nil, err
		}
		r, err := foldValue(cond.Right, span)
		if err != nil {
			return nil, err
		}
		return ir.Compare{Op: cond.Op, Left: l, Right: r}, nil
	case ir.FileCheck:
		p, err := foldValue(cond.Path, span)
		if err != nil {
			return nil, err
		}
		return ir.FileCheck{Op: cond.Op, Path: p}, nil
	case ir.StringCheck:
		v, err := foldValue(cond.Value, span)
		if err != nil {
			return nil, err
		}
		return ir.StringCheck{Op: cond.Op, Value: v}, nil
	case ir.Not:
		inner, err := foldCond(cond.Cond, span)
		if err != nil {
			return nil, err
		}
		return ir.Not{Cond: inner}, nil
	case ir.And:
		l, err := foldCond(cond.Left, span)
		if err != nil {
			return nil, err
		}
		r, err := foldCond(cond.Right, span)
		if err != nil {
			return nil, err
		}
		return ir.And{Left: l, Right: r}, nil
	case ir.Or:
		l, err := foldCond(cond.Left, span)
		if err != nil {
			return nil, err
		}
		r, err := foldCond(cond.Right, span)
		if err != nil {
			return nil, err
		}
		return ir.Or{Left: l, Right: r}, nil
	case ir.CommandCond:
		if cond.Exec == nil {
			return cond, nil
		}
		e, err := foldExec(cond.Exec)
		if err != nil {
			return nil, err
		}
		return ir.CommandCond{Exec: e}, nil
	default:
		return c, nil
	}
}

func foldValues(vs []ir.Value, span ast.Span) ([]ir.Value, error) {
	if vs == nil {
		return nil, nil
	}
	out := make([]ir.Value, len(vs))
	for i, v := range vs {
		fv, err := foldValue(v, span)
		if err != nil {
			return nil, err
		}
		out[i] = fv
	}
	return out, nil
}

func foldOptValue(v ir.Value, span ast.Span) (ir.Value, error) {
	if v == nil {
		return nil, nil
	}
	return foldValue(v, span)
}

func foldValue(v ir.Value, span ast.Span) (ir.Value, error) {
	switch val := v.(type) {
	case ir.Arithmetic:
		return foldArith(val, span)
	case ir.Concat:
		parts, err := foldValues(val.Parts, span)
		if err != nil {
			return nil, err
		}
		return ir.Concat{Parts: parts}, nil
	case ir.CommandSubst:
		if val.Exec == nil {
			return val, nil
		}
		e, err := foldExec(val.Exec)
		if err != nil {
			return nil, err
		}
		return ir.CommandSubst{Exec: e}, nil
	case ir.Escaped:
		inner, err := foldValue(val.Inner, span)
		if err != nil {
			return nil, err
		}
		return ir.Escaped{Inner: inner}, nil
	default:
		return v, nil
	}
}

func foldArith(a ir.Arithmetic, span ast.Span) (ir.Value, error) {
	left, err := foldValue(a.Left, span)
	if err != nil {
		return nil, err
	}
	right, err := foldValue(a.Right, span)
	if err != nil {
		return nil, err
	}

	l, lok := ir.IntLiteral(left)
	r, rok := ir.IntLiteral(right)
	if !lok || !rok {
		return ir.Arith(a.Op, left, right), nil
	}

	n, err := evalArith(a.Op, l, r)
	if err != nil {
		return nil, &OptimizeError{
			Message: err.Error(),
			Expr:    fmt.Sprintf("%d %s %d", l, a.Op, r),
			Span:    span,
		}
	}
	return ir.Int(n), nil
}

// evalArith computes l op r with int64 wrap-around. Go's / and % truncate
// toward zero, as $(( )) does.
func evalArith(op ir.ArithOp, l, r int64) (int64, error) {
	switch op {
	case ir.Add:
		return l + r, nil
	case ir.Sub:
		return l - r, nil
	case ir.Mul:
		return l * r, nil
	case ir.Div:
		if r == 0 {
			return 0, errors.New("division by zero")
		}
		return l / r, nil
	case ir.Mod:
		if r == 0 {
			return 0, errors.New("modulo by zero")
		}
		return l % r, nil
	default:
		return 0, fmt.Errorf("unknown operator %s", op)
	}
}
