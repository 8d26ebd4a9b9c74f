package source

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/puresh/internal/ast"
)

// EncodeYAML renders script as a YAML tree document that DecodeYAML reads
// back into an equal tree. Spans are written as line and col keys; the
// file name is not.
func EncodeYAML(script *ast.Script) ([]byte, error) {
	if script == nil {
		return nil, fmt.Errorf("encode: nil script")
	}
	stmts, err := encodeStmts(script.Statements)
	if err != nil {
		return nil, err
	}
	root := mapping(
		"name", str(script.Name),
		"statements", stmts,
	)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

func mapping(pairs ...any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for i := 0; i+1 < len(pairs); i += 2 {
		val, _ := pairs[i+1].(*yaml.Node)
		if val == nil {
			continue
		}
		n.Content = append(n.Content, str(pairs[i].(string)), val)
	}
	return n
}

func sequence(items []*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

// flow renders a sequence on one line, as in args: [-p, /app].
func flow(items []*yaml.Node) *yaml.Node {
	n := sequence(items)
	n.Style = yaml.FlowStyle
	return n
}

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func integer(n int64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(n, 10)}
}

func boolean(b bool) *yaml.Node {
	if !b {
		return nil
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"}
}

func encodeStmts(stmts []ast.Stmt) (*yaml.Node, error) {
	items := make([]*yaml.Node, len(stmts))
	for i, s := range stmts {
		n, err := encodeStmt(s)
		if err != nil {
			return nil, err
		}
		items[i] = n
	}
	return sequence(items), nil
}

// optStmts omits an absent body and keeps an empty one.
func optStmts(stmts []ast.Stmt) (*yaml.Node, error) {
	if stmts == nil {
		return nil, nil
	}
	return encodeStmts(stmts)
}

func spanPairs(span ast.Span) []any {
	if !span.IsValid() {
		return nil
	}
	pairs := []any{"line", integer(int64(span.StartLine)), "col", integer(int64(span.StartCol))}
	if span.EndLine > 0 {
		pairs = append(pairs, "end_line", integer(int64(span.EndLine)), "end_col", integer(int64(span.EndCol)))
	}
	return pairs
}

func stmtNode(kind string, span ast.Span, pairs ...any) *yaml.Node {
	all := append([]any{"kind", str(kind)}, pairs...)
	return mapping(append(all, spanPairs(span)...)...)
}

func encodeStmt(s ast.Stmt) (*yaml.Node, error) {
	switch st := s.(type) {
	case *ast.Assign:
		value, err := optExpr(st.Value)
		if err != nil {
			return nil, err
		}
		return stmtNode("assign", st.Span,
			"name", str(st.Name),
			"value", value,
			"exported", boolean(st.Exported),
			"local", boolean(st.Local),
		), nil

	case *ast.Command:
		pairs, err := commandPairs(st)
		if err != nil {
			return nil, err
		}
		return stmtNode("command", st.Span, pairs...), nil

	case *ast.Pipeline:
		stages := make([]*yaml.Node, len(st.Commands))
		for i, c := range st.Commands {
			n, err := encodeCommand(c)
			if err != nil {
				return nil, err
			}
			stages[i] = n
		}
		return stmtNode("pipeline", st.Span, "commands", sequence(stages)), nil

	case *ast.Function:
		body, err := encodeStmts(st.Body)
		if err != nil {
			return nil, err
		}
		return stmtNode("function", st.Span, "name", str(st.Name), "body", body), nil

	case *ast.If:
		return encodeIf(st)

	case *ast.While:
		return encodeLoop("while", st.Span, st.Cond, st.Body)

	case *ast.Until:
		return encodeLoop("until", st.Span, st.Cond, st.Body)

	case *ast.For:
		return encodeItemLoop("for", st.Span, st.Variable, st.Items, st.Body)

	case *ast.Select:
		return encodeItemLoop("select", st.Span, st.Variable, st.Items, st.Body)

	case *ast.ForCStyle:
		init, err := encodeAssign(st.Init)
		if err != nil {
			return nil, err
		}
		cond, err := optExpr(st.Cond)
		if err != nil {
			return nil, err
		}
		update, err := encodeAssign(st.Update)
		if err != nil {
			return nil, err
		}
		body, err := encodeStmts(st.Body)
		if err != nil {
			return nil, err
		}
		return stmtNode("for_c", st.Span, "init", init, "cond", cond, "update", update, "body", body), nil

	case *ast.Case:
		word, err := encodeExpr(st.Word)
		if err != nil {
			return nil, err
		}
		arms := make([]*yaml.Node, len(st.Arms))
		for i, a := range st.Arms {
			patterns := make([]*yaml.Node, len(a.Patterns))
			for j, p := range a.Patterns {
				patterns[j] = str(p)
			}
			body, err := encodeStmts(a.Body)
			if err != nil {
				return nil, err
			}
			arms[i] = mapping("patterns", flow(patterns), "body", body)
		}
		return stmtNode("case", st.Span, "word", word, "arms", sequence(arms)), nil

	case *ast.Return:
		code, err := optExpr(st.Code)
		if err != nil {
			return nil, err
		}
		return stmtNode("return", st.Span, "code", code), nil

	case *ast.Exit:
		code, err := optExpr(st.Code)
		if err != nil {
			return nil, err
		}
		return stmtNode("exit", st.Span, "code", code), nil

	case *ast.Break:
		return stmtNode("break", st.Span), nil

	case *ast.Continue:
		return stmtNode("continue", st.Span), nil

	case *ast.Comment:
		return stmtNode("comment", st.Span, "text", str(st.Text)), nil

	default:
		return nil, fmt.Errorf("encode: unsupported statement %T", s)
	}
}

func encodeIf(st *ast.If) (*yaml.Node, error) {
	cond, err := encodeExpr(st.Cond)
	if err != nil {
		return nil, err
	}
	then, err := encodeStmts(st.Then)
	if err != nil {
		return nil, err
	}
	var elifs *yaml.Node
	if len(st.Elifs) > 0 {
		items := make([]*yaml.Node, len(st.Elifs))
		for i, e := range st.Elifs {
			c, err := encodeExpr(e.Cond)
			if err != nil {
				return nil, err
			}
			body, err := encodeStmts(e.Body)
			if err != nil {
				return nil, err
			}
			items[i] = mapping("cond", c, "body", body)
		}
		elifs = sequence(items)
	}
	els, err := optStmts(st.Else)
	if err != nil {
		return nil, err
	}
	return stmtNode("if", st.Span, "cond", cond, "then", then, "elifs", elifs, "else", els), nil
}

func encodeLoop(kind string, span ast.Span, cond ast.Expr, body []ast.Stmt) (*yaml.Node, error) {
	c, err := encodeExpr(cond)
	if err != nil {
		return nil, err
	}
	b, err := encodeStmts(body)
	if err != nil {
		return nil, err
	}
	return stmtNode(kind, span, "cond", c, "body", b), nil
}

func encodeItemLoop(kind string, span ast.Span, variable string, items ast.Expr, body []ast.Stmt) (*yaml.Node, error) {
	it, err := encodeExpr(items)
	if err != nil {
		return nil, err
	}
	b, err := encodeStmts(body)
	if err != nil {
		return nil, err
	}
	return stmtNode(kind, span, "variable", str(variable), "items", it, "body", b), nil
}

func encodeAssign(a *ast.Assign) (*yaml.Node, error) {
	if a == nil {
		return nil, nil
	}
	value, err := optExpr(a.Value)
	if err != nil {
		return nil, err
	}
	return mapping(
		"name", str(a.Name),
		"value", value,
		"exported", boolean(a.Exported),
		"local", boolean(a.Local),
	), nil
}

func commandPairs(c *ast.Command) ([]any, error) {
	pairs := []any{"name", str(c.Name)}
	if len(c.Args) > 0 {
		args := make([]*yaml.Node, len(c.Args))
		for i, a := range c.Args {
			n, err := encodeExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = n
		}
		pairs = append(pairs, "args", flow(args))
	}
	if len(c.Redirects) > 0 {
		redirects := make([]*yaml.Node, len(c.Redirects))
		for i, r := range c.Redirects {
			target, err := optExpr(r.Target)
			if err != nil {
				return nil, err
			}
			redirects[i] = mapping("op", str(string(r.Op)), "target", target)
		}
		pairs = append(pairs, "redirects", sequence(redirects))
	}
	return pairs, nil
}

func encodeCommand(c *ast.Command) (*yaml.Node, error) {
	if c == nil {
		return nil, fmt.Errorf("encode: nil command")
	}
	pairs, err := commandPairs(c)
	if err != nil {
		return nil, err
	}
	return mapping(pairs...), nil
}

func optExpr(e ast.Expr) (*yaml.Node, error) {
	if e == nil {
		return nil, nil
	}
	return encodeExpr(e)
}

func single(key string, val *yaml.Node) *yaml.Node {
	n := mapping(key, val)
	n.Style = yaml.FlowStyle
	return n
}

func encodeExpr(e ast.Expr) (*yaml.Node, error) {
	switch ex := e.(type) {
	case ast.Literal:
		return str(ex.Value), nil
	case ast.Variable:
		return single("var", str(ex.Name)), nil
	case ast.Glob:
		return single("glob", str(ex.Pattern)), nil
	case ast.CommandSubst:
		c, err := encodeCommand(ex.Command)
		if err != nil {
			return nil, err
		}
		return mapping("subst", c), nil
	case ast.CommandStatus:
		c, err := encodeCommand(ex.Command)
		if err != nil {
			return nil, err
		}
		return mapping("status", c), nil
	case ast.Arithmetic:
		a, err := encodeArith(ex.Expr)
		if err != nil {
			return nil, err
		}
		return mapping("arith", a), nil
	case ast.Array:
		items, err := encodeExprs(ex.Items)
		if err != nil {
			return nil, err
		}
		return flow(items), nil
	case ast.Concat:
		parts, err := encodeExprs(ex.Parts)
		if err != nil {
			return nil, err
		}
		return single("concat", flow(parts)), nil
	case ast.Test:
		t, err := encodeTest(ex.Expr)
		if err != nil {
			return nil, err
		}
		return mapping("test", t), nil
	case ast.Escaped:
		inner, err := encodeExpr(ex.Expr)
		if err != nil {
			return nil, err
		}
		return single("escape", inner), nil
	default:
		return nil, fmt.Errorf("encode: unsupported expression %T", e)
	}
}

func encodeExprs(es []ast.Expr) ([]*yaml.Node, error) {
	out := make([]*yaml.Node, len(es))
	for i, e := range es {
		n, err := encodeExpr(e)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func encodeTest(t ast.TestExpr) (*yaml.Node, error) {
	switch te := t.(type) {
	case ast.StringCompare:
		return encodeCompare(te.Op, te.Left, te.Right)
	case ast.IntCompare:
		return encodeCompare(te.Op, te.Left, te.Right)
	case ast.FileTest:
		p, err := encodeExpr(te.Path)
		if err != nil {
			return nil, err
		}
		return mapping("op", str(te.Op), "path", p), nil
	case ast.StringTest:
		v, err := encodeExpr(te.Value)
		if err != nil {
			return nil, err
		}
		return mapping("op", str(te.Op), "value", v), nil
	case ast.Not:
		inner, err := encodeTest(te.Expr)
		if err != nil {
			return nil, err
		}
		return mapping("not", inner), nil
	case ast.And:
		return encodeLogic("and", te.Left, te.Right)
	case ast.Or:
		return encodeLogic("or", te.Left, te.Right)
	default:
		return nil, fmt.Errorf("encode: unsupported test %T", t)
	}
}

func encodeCompare(op string, left, right ast.Expr) (*yaml.Node, error) {
	l, err := encodeExpr(left)
	if err != nil {
		return nil, err
	}
	r, err := encodeExpr(right)
	if err != nil {
		return nil, err
	}
	return mapping("op", str(op), "left", l, "right", r), nil
}

// encodeLogic writes exactly two operands so that nested groupings
// survive decoding unchanged.
func encodeLogic(op string, left, right ast.TestExpr) (*yaml.Node, error) {
	l, err := encodeTest(left)
	if err != nil {
		return nil, err
	}
	r, err := encodeTest(right)
	if err != nil {
		return nil, err
	}
	return mapping(op, sequence([]*yaml.Node{l, r})), nil
}

func encodeArith(a ast.ArithExpr) (*yaml.Node, error) {
	switch ae := a.(type) {
	case ast.Number:
		return integer(ae.Value), nil
	case ast.ArithVar:
		return single("var", str(ae.Name)), nil
	case ast.Binary:
		l, err := encodeArith(ae.Left)
		if err != nil {
			return nil, err
		}
		r, err := encodeArith(ae.Right)
		if err != nil {
			return nil, err
		}
		n := mapping("op", str(ae.Op), "left", l, "right", r)
		n.Style = yaml.FlowStyle
		return n, nil
	default:
		return nil, fmt.Errorf("encode: unsupported arithmetic %T", a)
	}
}
