package verify

import "github.com/roach88/puresh/internal/ir"

// walkNodes calls fn on n and every node nested in it, including function
// bodies, in source order.
func walkNodes(n ir.Node, fn func(ir.Node)) {
	if n == nil {
		return
	}
	if s, ok := n.(*ir.Sequence); ok && s == nil {
		return
	}
	fn(n)
	switch node := n.(type) {
	case *ir.Sequence:
		for _, c := range node.Nodes {
			walkNodes(c, fn)
		}
	case *ir.If:
		walkNodes(node.Then, fn)
		if node.Else != nil {
			walkNodes(node.Else, fn)
		}
	case *ir.Loop:
		walkNodes(node.Body, fn)
	case *ir.Case:
		for _, a := range node.Arms {
			walkNodes(a.Body, fn)
		}
	case *ir.Function:
		walkNodes(node.Body, fn)
	}
}

// walkExecs calls fn on every Exec reachable from n, including those inside
// pipelines, substitutions and conditions.
func walkExecs(n ir.Node, fn func(*ir.Exec)) {
	walkNodes(n, func(n ir.Node) {
		switch node := n.(type) {
		case *ir.Let:
			valueExecs(node.Value, fn)
		case *ir.Exec:
			execTree(node, fn)
		case *ir.Pipeline:
			for _, s := range node.Stages {
				execTree(s, fn)
			}
		case *ir.If:
			conditionExecs(node.Cond, fn)
		case *ir.Loop:
			conditionExecs(node.Cond, fn)
			for _, v := range node.Items {
				valueExecs(v, fn)
			}
		case *ir.Case:
			valueExecs(node.Word, fn)
		case *ir.Exit:
			valueExecs(node.Code, fn)
		case *ir.Return:
			valueExecs(node.Code, fn)
		}
	})
}

func execTree(e *ir.Exec, fn func(*ir.Exec)) {
	if e == nil {
		return
	}
	fn(e)
	for _, a := range e.Args {
		valueExecs(a, fn)
	}
	for _, r := range e.Redirects {
		valueExecs(r.Target, fn)
	}
}

func valueExecs(v ir.Value, fn func(*ir.Exec)) {
	switch val := v.(type) {
	case ir.CommandSubst:
		execTree(val.Exec, fn)
	case ir.Concat:
		for _, p := range val.Parts {
			valueExecs(p, fn)
		}
	case ir.Arithmetic:
		valueExecs(val.Left, fn)
		valueExecs(val.Right, fn)
	case ir.Escaped:
		valueExecs(val.Inner, fn)
	}
}

func conditionExecs(c ir.Condition, fn func(*ir.Exec)) {
	walkCondition(c, func(c ir.Condition) {
		switch cond := c.(type) {
		case ir.CommandCond:
			execTree(cond.Exec, fn)
		case ir.Compare:
			valueExecs(cond.Left, fn)
			valueExecs(cond.Right, fn)
		case ir.FileCheck:
			valueExecs(cond.Path, fn)
		case ir.StringCheck:
			valueExecs(cond.Value, fn)
		}
	})
}

// valueVars calls fn on every variable referenced by v.
func valueVars(v ir.Value, fn func(ir.Variable)) {
	switch val := v.(type) {
	case ir.Variable:
		fn(val)
	case ir.Concat:
		for _, p := range val.Parts {
			valueVars(p, fn)
		}
	case ir.Arithmetic:
		valueVars(val.Left, fn)
		valueVars(val.Right, fn)
	case ir.Escaped:
		valueVars(val.Inner, fn)
	}
}
