package verify

import (
	"slices"
	"strings"

	"github.com/roach88/puresh/internal/ir"
)

// sameWord reports whether a and b name the same word: equal literal text,
// the same variable, or part-wise equal concatenations.
func sameWord(a, b ir.Value) bool {
	if at, ok := ir.LiteralText(a); ok {
		bt, ok := ir.LiteralText(b)
		return ok && at == bt
	}
	switch av := a.(type) {
	case ir.Variable:
		bv, ok := b.(ir.Variable)
		return ok && av.Name == bv.Name
	case ir.Concat:
		bv, ok := b.(ir.Concat)
		if !ok || len(av.Parts) != len(bv.Parts) {
			return false
		}
		for i := range av.Parts {
			if !sameWord(av.Parts[i], bv.Parts[i]) {
				return false
			}
		}
		return true
	case ir.Escaped:
		bv, ok := b.(ir.Escaped)
		return ok && sameWord(av.Inner, bv.Inner)
	}
	return false
}

// split separates literal option words from operands. Everything after "--"
// is an operand.
func split(args []ir.Value) (flags []string, operands []ir.Value) {
	seenDashDash := false
	for _, a := range args {
		if !seenDashDash {
			if s, ok := a.(ir.String); ok {
				if s.Value == "--" {
					seenDashDash = true
					continue
				}
				if len(s.Value) > 1 && strings.HasPrefix(s.Value, "-") {
					flags = append(flags, s.Value)
					continue
				}
			}
		}
		operands = append(operands, a)
	}
	return flags, operands
}

// hasOption matches a short option letter (also inside groups such as -rf)
// or one of the long spellings.
func hasOption(flags []string, short byte, long ...string) bool {
	for _, f := range flags {
		for _, l := range long {
			if f == l || strings.HasPrefix(f, l+"=") {
				return true
			}
		}
		if strings.HasPrefix(f, "--") || short == 0 {
			continue
		}
		if strings.IndexByte(f[1:], short) >= 0 {
			return true
		}
	}
	return false
}

// optionSpec describes how a command parses its options.
type optionSpec struct {
	short   string   // short options that take an argument
	long    []string // long options that take an argument
	plus    bool     // +x also introduces options, as in sh +o
	permute bool     // options may follow operands
}

// option is one parsed option. arg is set only for options that take an
// argument; an argument attached to a short group (-n1) is a literal.
type option struct {
	name string
	arg  ir.Value
}

// scanOptions parses args the way getopt does: short options may be
// grouped, an option that takes an argument ends its group and uses the
// rest of the group or the next word, and "--" ends the options. Only
// literal words can be options.
func scanOptions(args []ir.Value, spec optionSpec) (opts []option, operands []ir.Value) {
	for i := 0; i < len(args); i++ {
		text, ok := ir.LiteralText(args[i])
		if !ok || !isOptionWord(text, spec.plus) {
			operands = append(operands, args[i])
			if !spec.permute {
				return opts, append(operands, args[i+1:]...)
			}
			continue
		}
		if text == "--" {
			return opts, append(operands, args[i+1:]...)
		}

		if strings.HasPrefix(text, "--") {
			name, val, hasVal := strings.Cut(text[2:], "=")
			o := option{name: name}
			switch {
			case hasVal:
				o.arg = ir.Lit(val)
			case slices.Contains(spec.long, name) && i+1 < len(args):
				i++
				o.arg = args[i]
			}
			opts = append(opts, o)
			continue
		}

		for j := 1; j < len(text); j++ {
			o := option{name: text[j : j+1]}
			if strings.IndexByte(spec.short, text[j]) < 0 {
				opts = append(opts, o)
				continue
			}
			if j+1 < len(text) {
				o.arg = ir.Lit(text[j+1:])
			} else if i+1 < len(args) {
				i++
				o.arg = args[i]
			}
			opts = append(opts, o)
			break
		}
	}
	return opts, operands
}

func isOptionWord(text string, plus bool) bool {
	if len(text) < 2 {
		return false
	}
	return text[0] == '-' || plus && text[0] == '+'
}

// hasShort reports whether the single-letter option c was given.
func hasShort(opts []option, c byte) bool {
	for _, o := range opts {
		if len(o.name) == 1 && o.name[0] == c {
			return true
		}
	}
	return false
}

// external reports whether v carries data not fixed at compile time and not
// routed through the escaper.
func external(v ir.Value) bool {
	switch val := v.(type) {
	case nil, ir.String, ir.Escaped:
		return false
	case ir.Concat:
		for _, p := range val.Parts {
			if external(p) {
				return true
			}
		}
		return false
	case ir.Arithmetic:
		return external(val.Left) || external(val.Right)
	default:
		// Variable, CommandSubst and Glob all expand to data chosen at run
		// time.
		return true
	}
}

func describeWord(v ir.Value) string {
	switch val := v.(type) {
	case ir.String:
		return val.Value
	case ir.Variable:
		return "$" + val.Name
	case ir.CommandSubst:
		if val.Exec != nil {
			return "$(" + val.Exec.Command + " ...)"
		}
		return "$(...)"
	case ir.Glob:
		return val.Pattern
	case ir.Escaped:
		return describeWord(val.Inner)
	case ir.Arithmetic:
		return "$((" + describeWord(val.Left) + " " + val.Op.String() + " " + describeWord(val.Right) + "))"
	case ir.Concat:
		var b strings.Builder
		for _, p := range val.Parts {
			b.WriteString(describeWord(p))
		}
		return b.String()
	}
	return "?"
}
