package source

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/puresh/internal/ast"
)

// DecodeYAML decodes a YAML or JSON tree document. name is used for
// positions and as the script name when the document has none.
func DecodeYAML(name string, data []byte) (*ast.Script, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &DecodeError{File: name, Message: "empty document"}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &DecodeError{File: name, Message: err.Error()}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &DecodeError{File: name, Message: "empty document"}
	}
	return decodeDocument(name, doc.Content[0])
}

// decodeDocument turns the root node of a document into a script. CUE
// documents reach here after conversion to a yaml.Node tree.
func decodeDocument(name string, root *yaml.Node) (*ast.Script, error) {
	d := &decoder{file: name}
	script, err := d.script(root)
	if err != nil {
		return nil, err
	}
	slog.Debug("decoded tree document", "file", name, "statements", len(script.Statements))
	return script, nil
}

type decoder struct {
	file string
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...any) error {
	e := &DecodeError{File: d.file, Message: fmt.Sprintf(format, args...)}
	if n != nil {
		e.Line = n.Line
		e.Col = n.Column
	}
	return e
}

// object is a mapping node whose keys are consumed as they are read, so
// leftover keys can be reported as unknown.
type object struct {
	node   *yaml.Node
	keys   []*yaml.Node
	fields map[string]*yaml.Node
	used   map[string]bool
}

func (d *decoder) object(n *yaml.Node, what string) (*object, error) {
	n = resolve(n)
	if n.Kind != yaml.MappingNode {
		return nil, d.errorf(n, "%s must be a mapping, got %s", what, describeKind(n))
	}
	o := &object{
		node:   n,
		fields: make(map[string]*yaml.Node, len(n.Content)/2),
		used:   make(map[string]bool),
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		if _, dup := o.fields[key.Value]; dup {
			return nil, d.errorf(key, "duplicate key %q", key.Value)
		}
		o.keys = append(o.keys, key)
		o.fields[key.Value] = resolve(n.Content[i+1])
	}
	return o, nil
}

// get returns the value of key, or nil when it is absent or null.
func (o *object) get(key string) *yaml.Node {
	o.used[key] = true
	n := o.fields[key]
	if n == nil || isNull(n) {
		return nil
	}
	return n
}

// finish reports the first key that was never read.
func (d *decoder) finish(o *object, what string) error {
	for _, k := range o.keys {
		if !o.used[k.Value] {
			return d.errorf(k, "unknown key %q in %s", k.Value, what)
		}
	}
	return nil
}

func (d *decoder) required(o *object, key, what string) (*yaml.Node, error) {
	n := o.get(key)
	if n == nil {
		return nil, d.errorf(o.node, "%s requires %q", what, key)
	}
	return n, nil
}

func (d *decoder) scalar(n *yaml.Node, what string) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", d.errorf(n, "%s must be a scalar, got %s", what, describeKind(n))
	}
	return n.Value, nil
}

func (d *decoder) optString(o *object, key, what string) (string, error) {
	n := o.get(key)
	if n == nil {
		return "", nil
	}
	return d.scalar(n, what+"."+key)
}

func (d *decoder) reqString(o *object, key, what string) (string, error) {
	n, err := d.required(o, key, what)
	if err != nil {
		return "", err
	}
	return d.scalar(n, what+"."+key)
}

func (d *decoder) optBool(o *object, key, what string) (bool, error) {
	n := o.get(key)
	if n == nil {
		return false, nil
	}
	var b bool
	if n.Kind != yaml.ScalarNode || n.Decode(&b) != nil {
		return false, d.errorf(n, "%s.%s must be a boolean", what, key)
	}
	return b, nil
}

func (d *decoder) optInt(o *object, key, what string) (int, error) {
	n := o.get(key)
	if n == nil {
		return 0, nil
	}
	var v int
	if n.Kind != yaml.ScalarNode || n.Decode(&v) != nil {
		return 0, d.errorf(n, "%s.%s must be an integer", what, key)
	}
	return v, nil
}

func (d *decoder) sequence(n *yaml.Node, what string) ([]*yaml.Node, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, d.errorf(n, "%s must be a sequence, got %s", what, describeKind(n))
	}
	out := make([]*yaml.Node, len(n.Content))
	for i, c := range n.Content {
		out[i] = resolve(c)
	}
	return out, nil
}

// =============================================================================
// Script and statements
// =============================================================================

func (d *decoder) script(root *yaml.Node) (*ast.Script, error) {
	o, err := d.object(root, "document")
	if err != nil {
		return nil, err
	}
	name, err := d.optString(o, "name", "document")
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(d.file), filepath.Ext(d.file))
	}

	stmtsNode := o.get("statements")
	if stmtsNode == nil && o.fields["statements"] == nil {
		return nil, d.errorf(root, "document requires %q", "statements")
	}
	stmts, err := d.stmts(stmtsNode, "statements")
	if err != nil {
		return nil, err
	}
	if err := d.finish(o, "document"); err != nil {
		return nil, err
	}
	return &ast.Script{Name: name, Statements: stmts}, nil
}

func (d *decoder) stmts(n *yaml.Node, what string) ([]ast.Stmt, error) {
	items, err := d.sequence(n, what)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	out := make([]ast.Stmt, len(items))
	for i, item := range items {
		s, err := d.stmt(item)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (d *decoder) span(o *object) (ast.Span, error) {
	span := ast.Span{File: d.file, StartLine: o.node.Line, StartCol: o.node.Column}
	line, err := d.optInt(o, "line", "statement")
	if err != nil {
		return span, err
	}
	col, err := d.optInt(o, "col", "statement")
	if err != nil {
		return span, err
	}
	if line > 0 {
		span.StartLine, span.StartCol = line, col
	}
	if span.EndLine, err = d.optInt(o, "end_line", "statement"); err != nil {
		return span, err
	}
	if span.EndCol, err = d.optInt(o, "end_col", "statement"); err != nil {
		return span, err
	}
	return span, nil
}

func (d *decoder) stmt(n *yaml.Node) (ast.Stmt, error) {
	o, err := d.object(n, "statement")
	if err != nil {
		return nil, err
	}
	kind, err := d.reqString(o, "kind", "statement")
	if err != nil {
		return nil, err
	}
	span, err := d.span(o)
	if err != nil {
		return nil, err
	}

	s, err := d.stmtBody(o, kind, span)
	if err != nil {
		return nil, err
	}
	if err := d.finish(o, kind+" statement"); err != nil {
		return nil, err
	}
	return s, nil
}

func (d *decoder) stmtBody(o *object, kind string, span ast.Span) (ast.Stmt, error) {
	switch kind {
	case "assign":
		a, err := d.assignFields(o, "assign")
		if err != nil {
			return nil, err
		}
		a.Span = span
		return a, nil

	case "command":
		c, err := d.commandFields(o, "command")
		if err != nil {
			return nil, err
		}
		c.Span = span
		return c, nil

	case "pipeline":
		items, err := d.sequence(o.get("commands"), "pipeline.commands")
		if err != nil {
			return nil, err
		}
		p := &ast.Pipeline{Span: span}
		for _, item := range items {
			c, err := d.command(item, "pipeline stage")
			if err != nil {
				return nil, err
			}
			p.Commands = append(p.Commands, c)
		}
		return p, nil

	case "function":
		name, err := d.reqString(o, "name", "function")
		if err != nil {
			return nil, err
		}
		body, err := d.stmts(o.get("body"), "function.body")
		if err != nil {
			return nil, err
		}
		return &ast.Function{Name: name, Body: body, Span: span}, nil

	case "if":
		return d.ifStmt(o, span)

	case "while", "until":
		cond, err := d.reqExpr(o, "cond", kind)
		if err != nil {
			return nil, err
		}
		body, err := d.stmts(o.get("body"), kind+".body")
		if err != nil {
			return nil, err
		}
		if kind == "until" {
			return &ast.Until{Cond: cond, Body: body, Span: span}, nil
		}
		return &ast.While{Cond: cond, Body: body, Span: span}, nil

	case "for", "select":
		variable, err := d.reqString(o, "variable", kind)
		if err != nil {
			return nil, err
		}
		items, err := d.reqExpr(o, "items", kind)
		if err != nil {
			return nil, err
		}
		body, err := d.stmts(o.get("body"), kind+".body")
		if err != nil {
			return nil, err
		}
		if kind == "select" {
			return &ast.Select{Variable: variable, Items: items, Body: body, Span: span}, nil
		}
		return &ast.For{Variable: variable, Items: items, Body: body, Span: span}, nil

	case "for_c":
		return d.forCStyle(o, span)

	case "case":
		return d.caseStmt(o, span)

	case "return", "exit":
		code, err := d.optExpr(o, "code")
		if err != nil {
			return nil, err
		}
		if kind == "exit" {
			return &ast.Exit{Code: code, Span: span}, nil
		}
		return &ast.Return{Code: code, Span: span}, nil

	case "break":
		return &ast.Break{Span: span}, nil

	case "continue":
		return &ast.Continue{Span: span}, nil

	case "comment":
		text, err := d.optString(o, "text", "comment")
		if err != nil {
			return nil, err
		}
		return &ast.Comment{Text: text, Span: span}, nil

	default:
		return nil, d.errorf(o.fields["kind"], "unknown statement kind %q", kind)
	}
}

func (d *decoder) assignFields(o *object, what string) (*ast.Assign, error) {
	name, err := d.reqString(o, "name", what)
	if err != nil {
		return nil, err
	}
	value, err := d.optExpr(o, "value")
	if err != nil {
		return nil, err
	}
	exported, err := d.optBool(o, "exported", what)
	if err != nil {
		return nil, err
	}
	local, err := d.optBool(o, "local", what)
	if err != nil {
		return nil, err
	}
	return &ast.Assign{Name: name, Value: value, Exported: exported, Local: local}, nil
}

// assign decodes the init and update clauses of a C-style for.
func (d *decoder) assign(n *yaml.Node, what string) (*ast.Assign, error) {
	if n == nil {
		return nil, nil
	}
	o, err := d.object(n, what)
	if err != nil {
		return nil, err
	}
	a, err := d.assignFields(o, what)
	if err != nil {
		return nil, err
	}
	a.Span = ast.Span{File: d.file, StartLine: n.Line, StartCol: n.Column}
	return a, d.finish(o, what)
}

func (d *decoder) commandFields(o *object, what string) (*ast.Command, error) {
	name, err := d.optString(o, "name", what)
	if err != nil {
		return nil, err
	}
	c := &ast.Command{Name: name}

	args, err := d.sequence(o.get("args"), what+".args")
	if err != nil {
		return nil, err
	}
	for _, a := range args {
		e, err := d.expr(a)
		if err != nil {
			return nil, err
		}
		c.Args = append(c.Args, e)
	}

	redirects, err := d.sequence(o.get("redirects"), what+".redirects")
	if err != nil {
		return nil, err
	}
	for _, r := range redirects {
		rd, err := d.redirect(r)
		if err != nil {
			return nil, err
		}
		c.Redirects = append(c.Redirects, rd)
	}
	return c, nil
}

// command decodes a nested command: a pipeline stage, substitution or
// status condition. A bare scalar is shorthand for a command without
// arguments.
func (d *decoder) command(n *yaml.Node, what string) (*ast.Command, error) {
	n = resolve(n)
	if n.Kind == yaml.ScalarNode && !isNull(n) {
		return &ast.Command{Name: n.Value, Span: d.nodeSpan(n)}, nil
	}
	o, err := d.object(n, what)
	if err != nil {
		return nil, err
	}
	c, err := d.commandFields(o, what)
	if err != nil {
		return nil, err
	}
	c.Span = d.nodeSpan(n)
	return c, d.finish(o, what)
}

func (d *decoder) redirect(n *yaml.Node) (ast.Redirect, error) {
	o, err := d.object(n, "redirect")
	if err != nil {
		return ast.Redirect{}, err
	}
	op, err := d.reqString(o, "op", "redirect")
	if err != nil {
		return ast.Redirect{}, err
	}
	target, err := d.optExpr(o, "target")
	if err != nil {
		return ast.Redirect{}, err
	}
	return ast.Redirect{Op: ast.RedirectOp(op), Target: target}, d.finish(o, "redirect")
}

func (d *decoder) ifStmt(o *object, span ast.Span) (ast.Stmt, error) {
	cond, err := d.reqExpr(o, "cond", "if")
	if err != nil {
		return nil, err
	}
	then, err := d.stmts(o.get("then"), "if.then")
	if err != nil {
		return nil, err
	}
	st := &ast.If{Cond: cond, Then: then, Span: span}

	elifs, err := d.sequence(o.get("elifs"), "if.elifs")
	if err != nil {
		return nil, err
	}
	for _, e := range elifs {
		eo, err := d.object(e, "elif")
		if err != nil {
			return nil, err
		}
		c, err := d.reqExpr(eo, "cond", "elif")
		if err != nil {
			return nil, err
		}
		body, err := d.stmts(eo.get("body"), "elif.body")
		if err != nil {
			return nil, err
		}
		if err := d.finish(eo, "elif"); err != nil {
			return nil, err
		}
		st.Elifs = append(st.Elifs, ast.ElifClause{Cond: c, Body: body})
	}

	if els := o.get("else"); els != nil {
		st.Else, err = d.stmts(els, "if.else")
		if err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (d *decoder) forCStyle(o *object, span ast.Span) (ast.Stmt, error) {
	init, err := d.assign(o.get("init"), "for_c.init")
	if err != nil {
		return nil, err
	}
	cond, err := d.optExpr(o, "cond")
	if err != nil {
		return nil, err
	}
	update, err := d.assign(o.get("update"), "for_c.update")
	if err != nil {
		return nil, err
	}
	body, err := d.stmts(o.get("body"), "for_c.body")
	if err != nil {
		return nil, err
	}
	return &ast.ForCStyle{Init: init, Cond: cond, Update: update, Body: body, Span: span}, nil
}

func (d *decoder) caseStmt(o *object, span ast.Span) (ast.Stmt, error) {
	word, err := d.reqExpr(o, "word", "case")
	if err != nil {
		return nil, err
	}
	st := &ast.Case{Word: word, Span: span}

	arms, err := d.sequence(o.get("arms"), "case.arms")
	if err != nil {
		return nil, err
	}
	for _, a := range arms {
		ao, err := d.object(a, "case arm")
		if err != nil {
			return nil, err
		}
		patterns, err := d.patterns(ao.get("patterns"))
		if err != nil {
			return nil, err
		}
		body, err := d.stmts(ao.get("body"), "case arm body")
		if err != nil {
			return nil, err
		}
		if err := d.finish(ao, "case arm"); err != nil {
			return nil, err
		}
		st.Arms = append(st.Arms, ast.CaseArm{Patterns: patterns, Body: body})
	}
	return st, nil
}

// patterns accepts a sequence of scalars or a single scalar.
func (d *decoder) patterns(n *yaml.Node) ([]string, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode {
		return []string{n.Value}, nil
	}
	items, err := d.sequence(n, "case arm patterns")
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		if out[i], err = d.scalar(item, "case pattern"); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) nodeSpan(n *yaml.Node) ast.Span {
	return ast.Span{File: d.file, StartLine: n.Line, StartCol: n.Column}
}

// =============================================================================
// Expressions
// =============================================================================

func (d *decoder) optExpr(o *object, key string) (ast.Expr, error) {
	n := o.get(key)
	if n == nil {
		return nil, nil
	}
	return d.expr(n)
}

func (d *decoder) reqExpr(o *object, key, what string) (ast.Expr, error) {
	n, err := d.required(o, key, what)
	if err != nil {
		return nil, err
	}
	return d.expr(n)
}

// expr decodes a word. See the package documentation for the forms.
func (d *decoder) expr(n *yaml.Node) (ast.Expr, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		if isNull(n) {
			return nil, d.errorf(n, "expression is null")
		}
		return ast.Literal{Value: n.Value}, nil
	case yaml.SequenceNode:
		return d.array(n)
	case yaml.MappingNode:
	default:
		return nil, d.errorf(n, "unsupported expression node %s", describeKind(n))
	}

	if len(n.Content) != 2 {
		return nil, d.errorf(n, "expression mapping must have exactly one key, got %d", len(n.Content)/2)
	}
	key, val := n.Content[0], resolve(n.Content[1])

	switch key.Value {
	case "lit":
		s, err := d.scalar(val, "lit")
		return ast.Literal{Value: s}, err
	case "var":
		s, err := d.scalar(val, "var")
		return ast.Variable{Name: s}, err
	case "glob":
		s, err := d.scalar(val, "glob")
		return ast.Glob{Pattern: s}, err
	case "subst":
		c, err := d.command(val, "subst")
		if err != nil {
			return nil, err
		}
		return ast.CommandSubst{Command: c}, nil
	case "status":
		c, err := d.command(val, "status")
		if err != nil {
			return nil, err
		}
		return ast.CommandStatus{Command: c}, nil
	case "arith":
		a, err := d.arith(val)
		if err != nil {
			return nil, err
		}
		return ast.Arithmetic{Expr: a}, nil
	case "array":
		return d.array(val)
	case "concat":
		parts, err := d.exprs(val, "concat")
		if err != nil {
			return nil, err
		}
		return ast.Concat{Parts: parts}, nil
	case "test":
		t, err := d.test(val)
		if err != nil {
			return nil, err
		}
		return ast.Test{Expr: t}, nil
	case "escape":
		inner, err := d.expr(val)
		if err != nil {
			return nil, err
		}
		return ast.Escaped{Expr: inner}, nil
	default:
		return nil, d.errorf(key, "unknown expression form %q", key.Value)
	}
}

func (d *decoder) exprs(n *yaml.Node, what string) ([]ast.Expr, error) {
	items, err := d.sequence(n, what)
	if err != nil {
		return nil, err
	}
	out := make([]ast.Expr, len(items))
	for i, item := range items {
		if out[i], err = d.expr(item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) array(n *yaml.Node) (ast.Expr, error) {
	items, err := d.exprs(n, "array")
	if err != nil {
		return nil, err
	}
	return ast.Array{Items: items}, nil
}

// test decodes a test expression: {not: t}, {and: [t...]}, {or: [t...]}, or
// a mapping with op plus path (file test), value (string test) or left and
// right (comparison).
func (d *decoder) test(n *yaml.Node) (ast.TestExpr, error) {
	o, err := d.object(n, "test")
	if err != nil {
		return nil, err
	}

	if inner := o.get("not"); inner != nil {
		t, err := d.test(inner)
		if err != nil {
			return nil, err
		}
		return ast.Not{Expr: t}, d.finish(o, "not test")
	}
	for _, logic := range []string{"and", "or"} {
		operands := o.get(logic)
		if operands == nil {
			continue
		}
		t, err := d.logic(logic, operands)
		if err != nil {
			return nil, err
		}
		return t, d.finish(o, logic+" test")
	}

	op, err := d.reqString(o, "op", "test")
	if err != nil {
		return nil, err
	}
	var t ast.TestExpr
	switch {
	case o.fields["path"] != nil:
		path, err := d.reqExpr(o, "path", "file test")
		if err != nil {
			return nil, err
		}
		t = ast.FileTest{Op: op, Path: path}
	case o.fields["value"] != nil:
		value, err := d.reqExpr(o, "value", "string test")
		if err != nil {
			return nil, err
		}
		t = ast.StringTest{Op: op, Value: value}
	default:
		left, err := d.reqExpr(o, "left", "comparison")
		if err != nil {
			return nil, err
		}
		right, err := d.reqExpr(o, "right", "comparison")
		if err != nil {
			return nil, err
		}
		if ast.ValidIntCompareOp(op) {
			t = ast.IntCompare{Op: op, Left: left, Right: right}
		} else {
			t = ast.StringCompare{Op: op, Left: left, Right: right}
		}
	}
	return t, d.finish(o, "test")
}

// logic folds two or more operands left to right.
func (d *decoder) logic(op string, n *yaml.Node) (ast.TestExpr, error) {
	items, err := d.sequence(n, op)
	if err != nil {
		return nil, err
	}
	if len(items) < 2 {
		return nil, d.errorf(n, "%s needs at least two operands, got %d", op, len(items))
	}
	acc, err := d.test(items[0])
	if err != nil {
		return nil, err
	}
	for _, item := range items[1:] {
		next, err := d.test(item)
		if err != nil {
			return nil, err
		}
		if op == "and" {
			acc = ast.And{Left: acc, Right: next}
		} else {
			acc = ast.Or{Left: acc, Right: next}
		}
	}
	return acc, nil
}

// arith decodes an arithmetic expression: an integer scalar is a number,
// any other scalar a variable, and a mapping is {op, left, right}, {var}
// or {num}.
func (d *decoder) arith(n *yaml.Node) (ast.ArithExpr, error) {
	n = resolve(n)
	if n.Kind == yaml.ScalarNode {
		if isNull(n) {
			return nil, d.errorf(n, "arithmetic expression is null")
		}
		if n.ShortTag() == "!!int" {
			return d.number(n)
		}
		return ast.ArithVar{Name: n.Value}, nil
	}

	o, err := d.object(n, "arithmetic expression")
	if err != nil {
		return nil, err
	}
	var a ast.ArithExpr
	switch {
	case o.fields["var"] != nil:
		name, err := d.reqString(o, "var", "arithmetic")
		if err != nil {
			return nil, err
		}
		a = ast.ArithVar{Name: name}
	case o.fields["num"] != nil:
		a, err = d.number(o.get("num"))
		if err != nil {
			return nil, err
		}
	default:
		op, err := d.reqString(o, "op", "arithmetic")
		if err != nil {
			return nil, err
		}
		leftNode, err := d.required(o, "left", "arithmetic")
		if err != nil {
			return nil, err
		}
		rightNode, err := d.required(o, "right", "arithmetic")
		if err != nil {
			return nil, err
		}
		left, err := d.arith(leftNode)
		if err != nil {
			return nil, err
		}
		right, err := d.arith(rightNode)
		if err != nil {
			return nil, err
		}
		a = ast.Binary{Op: op, Left: left, Right: right}
	}
	return a, d.finish(o, "arithmetic expression")
}

func (d *decoder) number(n *yaml.Node) (ast.Number, error) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return ast.Number{}, d.errorf(n, "number must be an integer scalar")
	}
	v, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		var yv int64
		if n.Decode(&yv) != nil {
			return ast.Number{}, d.errorf(n, "invalid integer %q", n.Value)
		}
		v = yv
	}
	return ast.Number{Value: v}, nil
}

// =============================================================================
// Node helpers
// =============================================================================

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func describeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		if isNull(n) {
			return "null"
		}
		return "scalar"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.DocumentNode:
		return "document"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown node"
	}
}
