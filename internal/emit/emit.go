package emit

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/puresh/internal/ast"
	"github.com/roach88/puresh/internal/ir"
)

// Options controls emission.
type Options struct {
	Target     Target
	StrictMode bool
}

const indent = "    "

// quoteHelper renders its argument as a single-quoted shell word at run
// time. It is emitted only when the program escapes a non-literal value.
const quoteHelper = `_puresh_quote() {
    _puresh_rest=$1
    _puresh_out=
    while :; do
        case $_puresh_rest in
            *\'*)
                _puresh_out=$_puresh_out${_puresh_rest%%\'*}\'\"\'\"\'
                _puresh_rest=${_puresh_rest#*\'}
                ;;
            *)
                _puresh_out=$_puresh_out$_puresh_rest
                break
                ;;
        esac
    done
    printf "'%s'" "$_puresh_out"
}
`

// Emit renders prog as a shell script for opts.Target. Functions are
// emitted where they are declared; an empty block becomes `:`.
func Emit(prog *ir.Program, opts Options) (string, error) {
	if prog == nil {
		return "", &EmissionError{Message: "nil program"}
	}
	target := opts.Target
	if target == "" {
		target = TargetPosix
	}
	if !target.Valid() {
		return "", &EmissionError{Message: fmt.Sprintf("unknown target %q", target)}
	}

	e := &emitter{target: target}
	if prog.Body != nil {
		for _, n := range prog.Body.Nodes {
			if err := e.node(n, 0); err != nil {
				return "", err
			}
		}
	}

	var out strings.Builder
	out.WriteString(target.Shebang())
	out.WriteByte('\n')
	if name := headerName(prog.Name); name != "" {
		out.WriteString("# Generated by puresh from " + name + "\n")
	} else {
		out.WriteString("# Generated by puresh\n")
	}
	if opts.StrictMode {
		out.WriteString("set -eu\n")
	}
	if e.needsQuote {
		out.WriteByte('\n')
		out.WriteString(quoteHelper)
	}
	if e.body.Len() > 0 {
		out.WriteByte('\n')
		out.WriteString(e.body.String())
	}

	slog.Debug("emitted script",
		"program", prog.Name,
		"target", string(target),
		"bytes", out.Len(),
		"quote_helper", e.needsQuote,
	)
	return out.String(), nil
}

func headerName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

type emitter struct {
	target     Target
	body       strings.Builder
	needsQuote bool
}

func (e *emitter) line(depth int, text string) {
	for range depth {
		e.body.WriteString(indent)
	}
	e.body.WriteString(text)
	e.body.WriteByte('\n')
}

func (e *emitter) block(s *ir.Sequence, depth int) error {
	if s == nil {
		e.line(depth, ":")
		return nil
	}
	for _, n := range s.Nodes {
		if err := e.node(n, depth); err != nil {
			return err
		}
	}
	if !hasCommand(s) {
		e.line(depth, ":")
	}
	return nil
}

// hasCommand reports whether s would emit anything besides comments.
func hasCommand(s *ir.Sequence) bool {
	if s == nil {
		return false
	}
	for _, n := range s.Nodes {
		switch node := n.(type) {
		case *ir.Comment:
			continue
		case *ir.Sequence:
			if hasCommand(node) {
				return true
			}
		default:
			return true
		}
	}
	return false
}

func (e *emitter) node(n ir.Node, depth int) error {
	switch node := n.(type) {
	case *ir.Sequence:
		if node == nil {
			return nil
		}
		for _, c := range node.Nodes {
			if err := e.node(c, depth); err != nil {
				return err
			}
		}
		return nil

	case *ir.Let:
		return e.let(node, depth)

	case *ir.Exec:
		text, err := e.exec(node)
		if err != nil {
			return err
		}
		e.line(depth, text)
		return nil

	case *ir.Pipeline:
		stages := make([]string, len(node.Stages))
		for i, s := range node.Stages {
			text, err := e.exec(s)
			if err != nil {
				return err
			}
			stages[i] = text
		}
		e.line(depth, strings.Join(stages, " | "))
		return nil

	case *ir.If:
		return e.ifChain(node, depth)

	case *ir.Loop:
		return e.loop(node, depth)

	case *ir.Case:
		return e.caseNode(node, depth)

	case *ir.Function:
		if !IsIdentifier(node.Name) {
			return &EmissionError{Message: fmt.Sprintf("invalid function name %q", node.Name), Span: node.Span}
		}
		e.line(depth, node.Name+"() {")
		if err := e.block(node.Body, depth+1); err != nil {
			return err
		}
		e.line(depth, "}")
		return nil

	case *ir.Exit:
		return e.withCode(depth, "exit", node.Code, node.Span)

	case *ir.Return:
		return e.withCode(depth, "return", node.Code, node.Span)

	case *ir.Break:
		e.line(depth, "break")
		return nil

	case *ir.Continue:
		e.line(depth, "continue")
		return nil

	case *ir.Comment:
		for _, l := range strings.Split(node.Text, "\n") {
			if l == "" {
				e.line(depth, "#")
			} else {
				e.line(depth, "# "+l)
			}
		}
		return nil

	case nil:
		return &EmissionError{Message: "nil node"}

	default:
		return &EmissionError{Message: fmt.Sprintf("unsupported node %T", n), Span: n.Pos()}
	}
}

func (e *emitter) let(n *ir.Let, depth int) error {
	if !IsIdentifier(n.Name) {
		return &EmissionError{Message: fmt.Sprintf("invalid variable name %q", n.Name), Span: n.Span}
	}
	value, err := e.word(n.Value, n.Span)
	if err != nil {
		return err
	}
	assign := n.Name + "=" + value
	switch {
	case n.Local:
		if !e.target.nativeLocal() {
			return &EmissionError{
				Message: fmt.Sprintf("local variable %q needs a bash or dash target", n.Name),
				Span:    n.Span,
			}
		}
		e.line(depth, "local "+assign)
		if n.Exported {
			e.line(depth, "export "+n.Name)
		}
	case n.Exported:
		e.line(depth, "export "+assign)
	default:
		e.line(depth, assign)
	}
	return nil
}

func (e *emitter) withCode(depth int, keyword string, code ir.Value, span ast.Span) error {
	if code == nil {
		e.line(depth, keyword)
		return nil
	}
	w, err := e.word(code, span)
	if err != nil {
		return err
	}
	e.line(depth, keyword+" "+w)
	return nil
}

func (e *emitter) exec(x *ir.Exec) (string, error) {
	if x == nil {
		return "", &EmissionError{Message: "nil command"}
	}
	if x.Command == "" {
		return "", &EmissionError{Message: "empty command name", Span: x.Span}
	}
	parts := []string{EscapeCommandName(x.Command)}
	for _, a := range x.Args {
		w, err := e.word(a, x.Span)
		if err != nil {
			return "", err
		}
		parts = append(parts, w)
	}
	for _, r := range x.Redirects {
		rd, err := e.redirect(r, x.Span)
		if err != nil {
			return "", err
		}
		parts = append(parts, rd)
	}
	return strings.Join(parts, " "), nil
}

var redirectOps = []string{">", ">>", "<", "2>", "2>>"}

func (e *emitter) redirect(r ir.Redirect, span ast.Span) (string, error) {
	if r.Op == "2>&1" {
		return "2>&1", nil
	}
	if !slices.Contains(redirectOps, r.Op) {
		return "", &EmissionError{Message: fmt.Sprintf("unsupported redirect %q", r.Op), Span: span}
	}
	if r.Target == nil {
		return "", &EmissionError{Message: fmt.Sprintf("redirect %s has no target", r.Op), Span: span}
	}
	w, err := e.word(r.Target, span)
	if err != nil {
		return "", err
	}
	return r.Op + w, nil
}

// ifChain writes n, folding an else branch that holds a single If into elif.
func (e *emitter) ifChain(n *ir.If, depth int) error {
	keyword := "if"
	for {
		cond, err := e.condition(n.Cond, n.Span)
		if err != nil {
			return err
		}
		e.line(depth, keyword+" "+cond+"; then")
		if err := e.block(n.Then, depth+1); err != nil {
			return err
		}
		if n.Else == nil {
			break
		}
		if len(n.Else.Nodes) == 1 {
			if inner, ok := n.Else.Nodes[0].(*ir.If); ok {
				n = inner
				keyword = "elif"
				continue
			}
		}
		e.line(depth, "else")
		if err := e.block(n.Else, depth+1); err != nil {
			return err
		}
		break
	}
	e.line(depth, "fi")
	return nil
}

func (e *emitter) loop(n *ir.Loop, depth int) error {
	switch n.Kind {
	case ir.LoopWhile:
		cond, err := e.condition(n.Cond, n.Span)
		if err != nil {
			return err
		}
		e.line(depth, "while "+cond+"; do")

	case ir.LoopFor, ir.LoopSelect:
		if !IsIdentifier(n.Variable) {
			return &EmissionError{Message: fmt.Sprintf("invalid loop variable %q", n.Variable), Span: n.Span}
		}
		items, err := e.words(n.Items, n.Span)
		if err != nil {
			return err
		}
		if n.Kind == ir.LoopSelect && !e.target.nativeSelect() {
			return e.selectMenu(n, items, depth)
		}
		keyword := "for"
		if n.Kind == ir.LoopSelect {
			keyword = "select"
		}
		e.line(depth, keyword+" "+n.Variable+" in"+items+"; do")

	default:
		return &EmissionError{Message: fmt.Sprintf("unknown loop kind %d", n.Kind), Span: n.Span}
	}

	if err := e.block(n.Body, depth+1); err != nil {
		return err
	}
	e.line(depth, "done")
	return nil
}

// selectMenu lowers select to a loop that prints the numbered items to
// stderr, reads REPLY and binds the chosen item, or the empty string for an
// invalid choice. End of input leaves the loop.
func (e *emitter) selectMenu(n *ir.Loop, items string, depth int) error {
	e.line(depth, "while :; do")
	e.line(depth+1, "_puresh_n=0")
	e.line(depth+1, "for _puresh_item in"+items+"; do")
	e.line(depth+2, "_puresh_n=$((_puresh_n + 1))")
	e.line(depth+2, `printf '%s) %s\n' "$_puresh_n" "$_puresh_item" >&2`)
	e.line(depth+1, "done")
	e.line(depth+1, `printf '%s' "${PS3-#? }" >&2`)
	e.line(depth+1, "IFS= read -r REPLY || break")
	e.line(depth+1, n.Variable+"=")
	e.line(depth+1, "_puresh_n=0")
	e.line(depth+1, "for _puresh_item in"+items+"; do")
	e.line(depth+2, "_puresh_n=$((_puresh_n + 1))")
	e.line(depth+2, `if [ "$_puresh_n" = "$REPLY" ]; then`)
	e.line(depth+3, n.Variable+"=$_puresh_item")
	e.line(depth+2, "fi")
	e.line(depth+1, "done")
	if err := e.block(n.Body, depth+1); err != nil {
		return err
	}
	e.line(depth, "done")
	return nil
}

func (e *emitter) caseNode(n *ir.Case, depth int) error {
	word, err := e.word(n.Word, n.Span)
	if err != nil {
		return err
	}
	e.line(depth, "case "+word+" in")
	for _, arm := range n.Arms {
		if len(arm.Patterns) == 0 {
			return &EmissionError{Message: "case arm has no patterns", Span: n.Span}
		}
		pats := make([]string, len(arm.Patterns))
		for i, p := range arm.Patterns {
			pats[i] = escapePattern(p)
		}
		e.line(depth+1, strings.Join(pats, "|")+")")
		if err := e.block(arm.Body, depth+2); err != nil {
			return err
		}
		e.line(depth+2, ";;")
	}
	e.line(depth, "esac")
	return nil
}

// words renders vs with a leading space before each word, so an empty list
// renders as the empty string.
func (e *emitter) words(vs []ir.Value, span ast.Span) (string, error) {
	var b strings.Builder
	for _, v := range vs {
		w, err := e.word(v, span)
		if err != nil {
			return "", err
		}
		b.WriteByte(' ')
		b.WriteString(w)
	}
	return b.String(), nil
}

// word renders v as one shell word. Expansions are double-quoted so they
// never split or glob.
func (e *emitter) word(v ir.Value, span ast.Span) (string, error) {
	switch val := v.(type) {
	case nil:
		return "''", nil

	case ir.String:
		return escapeArg(val.Value), nil

	case ir.Variable:
		if !isParameter(val.Name) {
			return "", &EmissionError{Message: fmt.Sprintf("invalid parameter name %q", val.Name), Span: span}
		}
		return `"${` + val.Name + `}"`, nil

	case ir.Arithmetic:
		expr, err := e.arith(val, span, true)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(expr, "(") {
			// $((( could be read as a subshell inside $( ).
			return `"$(( ` + expr + ` ))"`, nil
		}
		return `"$((` + expr + `))"`, nil

	case ir.CommandSubst:
		text, err := e.exec(val.Exec)
		if err != nil {
			return "", err
		}
		return `"$(` + text + `)"`, nil

	case ir.Concat:
		if len(val.Parts) == 0 {
			return "''", nil
		}
		var b strings.Builder
		for _, p := range val.Parts {
			w, err := e.word(p, span)
			if err != nil {
				return "", err
			}
			b.WriteString(w)
		}
		return b.String(), nil

	case ir.Glob:
		return escapePattern(val.Pattern), nil

	case ir.Escaped:
		if text, ok := ir.LiteralText(val.Inner); ok {
			return EscapeString(EscapeString(text)), nil
		}
		if expandsToMany(val.Inner) {
			return "", &EmissionError{Message: "cannot escape a value that expands to several words", Span: span}
		}
		inner, err := e.word(val.Inner, span)
		if err != nil {
			return "", err
		}
		e.needsQuote = true
		return `"$(_puresh_quote ` + inner + `)"`, nil

	default:
		return "", &EmissionError{Message: fmt.Sprintf("unsupported value %T", v), Span: span}
	}
}

// expandsToMany reports whether v can render as more than one word.
// _puresh_quote quotes only its first argument.
func expandsToMany(v ir.Value) bool {
	switch val := v.(type) {
	case ir.Glob:
		return true
	case ir.Variable:
		return val.Name == "@"
	case ir.Concat:
		return slices.ContainsFunc(val.Parts, expandsToMany)
	}
	return false
}

// arith renders the inside of $(( )). Nested operations are parenthesized
// so the tree shape survives regardless of operator precedence.
func (e *emitter) arith(v ir.Value, span ast.Span, top bool) (string, error) {
	switch val := v.(type) {
	case ir.String:
		n, ok := ir.IntLiteral(val)
		if !ok {
			return "", &EmissionError{Message: fmt.Sprintf("non-integer literal %q in arithmetic", val.Value), Span: span}
		}
		if n < 0 {
			return "(" + strconv.FormatInt(n, 10) + ")", nil
		}
		return strconv.FormatInt(n, 10), nil

	case ir.Variable:
		if IsIdentifier(val.Name) {
			return val.Name, nil
		}
		if isParameter(val.Name) {
			return "${" + val.Name + "}", nil
		}
		return "", &EmissionError{Message: fmt.Sprintf("invalid parameter name %q", val.Name), Span: span}

	case ir.Arithmetic:
		left, err := e.arith(val.Left, span, false)
		if err != nil {
			return "", err
		}
		right, err := e.arith(val.Right, span, false)
		if err != nil {
			return "", err
		}
		expr := left + " " + val.Op.String() + " " + right
		if top {
			return expr, nil
		}
		return "(" + expr + ")", nil

	case ir.CommandSubst:
		text, err := e.exec(val.Exec)
		if err != nil {
			return "", err
		}
		return "$(" + text + ")", nil

	default:
		return "", &EmissionError{Message: fmt.Sprintf("cannot use %T in arithmetic", v), Span: span}
	}
}

var (
	compareOps     = []string{"=", "!=", "-eq", "-ne", "-lt", "-le", "-gt", "-ge"}
	fileCheckOps   = []string{"-e", "-f", "-d", "-r", "-w", "-x", "-s", "-L"}
	stringCheckOps = []string{"-z", "-n"}
)

func (e *emitter) condition(c ir.Condition, span ast.Span) (string, error) {
	switch cond := c.(type) {
	case ir.Compare:
		if !slices.Contains(compareOps, cond.Op) {
			return "", &EmissionError{Message: fmt.Sprintf("unsupported comparison %q", cond.Op), Span: span}
		}
		l, err := e.word(cond.Left, span)
		if err != nil {
			return "", err
		}
		r, err := e.word(cond.Right, span)
		if err != nil {
			return "", err
		}
		return "[ " + l + " " + cond.Op + " " + r + " ]", nil

	case ir.FileCheck:
		if !slices.Contains(fileCheckOps, cond.Op) {
			return "", &EmissionError{Message: fmt.Sprintf("unsupported file test %q", cond.Op), Span: span}
		}
		p, err := e.word(cond.Path, span)
		if err != nil {
			return "", err
		}
		return "[ " + cond.Op + " " + p + " ]", nil

	case ir.StringCheck:
		if !slices.Contains(stringCheckOps, cond.Op) {
			return "", &EmissionError{Message: fmt.Sprintf("unsupported string test %q", cond.Op), Span: span}
		}
		w, err := e.word(cond.Value, span)
		if err != nil {
			return "", err
		}
		return "[ " + cond.Op + " " + w + " ]", nil

	case ir.Not:
		inner, err := e.condition(cond.Cond, span)
		if err != nil {
			return "", err
		}
		switch cond.Cond.(type) {
		case ir.And, ir.Or, ir.Not:
			inner = group(inner)
		}
		return "! " + inner, nil

	case ir.And:
		return e.binary(cond.Left, cond.Right, "&&", span)

	case ir.Or:
		return e.binary(cond.Left, cond.Right, "||", span)

	case ir.CommandCond:
		return e.exec(cond.Exec)

	case nil:
		return "", &EmissionError{Message: "nil condition", Span: span}

	default:
		return "", &EmissionError{Message: fmt.Sprintf("unsupported condition %T", c), Span: span}
	}
}

// binary joins two conditions. && and || bind equally and associate left,
// so only a compound right operand needs grouping.
func (e *emitter) binary(left, right ir.Condition, op string, span ast.Span) (string, error) {
	l, err := e.condition(left, span)
	if err != nil {
		return "", err
	}
	r, err := e.condition(right, span)
	if err != nil {
		return "", err
	}
	switch right.(type) {
	case ir.And, ir.Or:
		r = group(r)
	}
	return l + " " + op + " " + r, nil
}

func group(s string) string {
	return "{ " + s + "; }"
}
