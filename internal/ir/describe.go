package ir

import "fmt"

// Describe converts a program into JSON-shaped Go values (maps, slices,
// strings, ints) suitable for MarshalCanonical. Every node records its kind
// and effect names so the digest covers effect annotations too.
func Describe(p *Program) map[string]any {
	return map[string]any{
		"name": p.Name,
		"body": describeNode(p.Body),
	}
}

func describeNode(n Node) any {
	switch node := n.(type) {
	case nil:
		return map[string]any{"kind": "nil"}
	case *Sequence:
		if node == nil {
			return map[string]any{"kind": "nil"}
		}
		nodes := make([]any, len(node.Nodes))
		for i, c := range node.Nodes {
			nodes[i] = describeNode(c)
		}
		return withEffects("sequence", node, map[string]any{"nodes": nodes})
	case *Let:
		return withEffects("let", node, map[string]any{
			"name":     node.Name,
			"value":    describeValue(node.Value),
			"exported": node.Exported,
			"local":    node.Local,
		})
	case *Exec:
		return describeExec(node)
	case *Pipeline:
		stages := make([]any, len(node.Stages))
		for i, s := range node.Stages {
			stages[i] = describeExec(s)
		}
		return withEffects("pipeline", node, map[string]any{"stages": stages})
	case *If:
		fields := map[string]any{
			"cond": describeCondition(node.Cond),
			"then": describeNode(node.Then),
		}
		if node.Else != nil {
			fields["else"] = describeNode(node.Else)
		}
		return withEffects("if", node, fields)
	case *Loop:
		fields := map[string]any{
			"loop": node.Kind.String(),
			"body": describeNode(node.Body),
		}
		if node.Kind == LoopWhile {
			fields["cond"] = describeCondition(node.Cond)
		} else {
			fields["variable"] = node.Variable
			fields["items"] = describeValues(node.Items)
		}
		return withEffects("loop", node, fields)
	case *Case:
		arms := make([]any, len(node.Arms))
		for i, a := range node.Arms {
			arms[i] = map[string]any{
				"patterns": a.Patterns,
				"body":     describeNode(a.Body),
			}
		}
		return withEffects("case", node, map[string]any{
			"word": describeValue(node.Word),
			"arms": arms,
		})
	case *Function:
		return withEffects("function", node, map[string]any{
			"name": node.Name,
			"body": describeNode(node.Body),
		})
	case *Exit:
		return withEffects("exit", node, optionalCode(node.Code))
	case *Return:
		return withEffects("return", node, optionalCode(node.Code))
	case *Break:
		return map[string]any{"kind": "break"}
	case *Continue:
		return map[string]any{"kind": "continue"}
	case *Comment:
		return map[string]any{"kind": "comment", "text": node.Text}
	default:
		return map[string]any{"kind": fmt.Sprintf("unknown(%T)", n)}
	}
}

func describeExec(e *Exec) map[string]any {
	redirects := make([]any, len(e.Redirects))
	for i, r := range e.Redirects {
		rd := map[string]any{"op": r.Op}
		if r.Target != nil {
			rd["target"] = describeValue(r.Target)
		}
		redirects[i] = rd
	}
	return withEffects("exec", e, map[string]any{
		"command":   e.Command,
		"args":      describeValues(e.Args),
		"redirects": redirects,
	})
}

func optionalCode(code Value) map[string]any {
	if code == nil {
		return map[string]any{}
	}
	return map[string]any{"code": describeValue(code)}
}

func withEffects(kind string, n Node, fields map[string]any) map[string]any {
	fields["kind"] = kind
	fields["effects"] = n.Effects().Names()
	if fields["effects"] == nil {
		fields["effects"] = []string{}
	}
	return fields
}

func describeValues(vs []Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = describeValue(v)
	}
	return out
}

func describeValue(v Value) any {
	switch val := v.(type) {
	case nil:
		return map[string]any{"kind": "nil"}
	case String:
		return map[string]any{"kind": "string", "value": val.Value}
	case Variable:
		return map[string]any{"kind": "variable", "name": val.Name}
	case Arithmetic:
		return map[string]any{
			"kind":  "arithmetic",
			"op":    val.Op.String(),
			"left":  describeValue(val.Left),
			"right": describeValue(val.Right),
		}
	case CommandSubst:
		if val.Exec == nil {
			return map[string]any{"kind": "command_subst"}
		}
		return map[string]any{"kind": "command_subst", "exec": describeExec(val.Exec)}
	case Concat:
		return map[string]any{"kind": "concat", "parts": describeValues(val.Parts)}
	case Glob:
		return map[string]any{"kind": "glob", "pattern": val.Pattern}
	case Escaped:
		return map[string]any{"kind": "escaped", "inner": describeValue(val.Inner)}
	default:
		return map[string]any{"kind": fmt.Sprintf("unknown(%T)", v)}
	}
}

func describeCondition(c Condition) any {
	switch cond := c.(type) {
	case nil:
		return map[string]any{"kind": "nil"}
	case Compare:
		return map[string]any{
			"kind":  "compare",
			"op":    cond.Op,
			"left":  describeValue(cond.Left),
			"right": describeValue(cond.Right),
		}
	case FileCheck:
		return map[string]any{"kind": "file_check", "op": cond.Op, "path": describeValue(cond.Path)}
	case StringCheck:
		return map[string]any{"kind": "string_check", "op": cond.Op, "value": describeValue(cond.Value)}
	case Not:
		return map[string]any{"kind": "not", "cond": describeCondition(cond.Cond)}
	case And:
		return map[string]any{"kind": "and", "left": describeCondition(cond.Left), "right": describeCondition(cond.Right)}
	case Or:
		return map[string]any{"kind": "or", "left": describeCondition(cond.Left), "right": describeCondition(cond.Right)}
	case CommandCond:
		if cond.Exec == nil {
			return map[string]any{"kind": "command"}
		}
		return map[string]any{"kind": "command", "exec": describeExec(cond.Exec)}
	default:
		return map[string]any{"kind": fmt.Sprintf("unknown(%T)", c)}
	}
}
