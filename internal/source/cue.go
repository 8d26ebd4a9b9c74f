package source

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/puresh/internal/ast"
)

// DecodeCUE decodes a CUE tree document. The document must evaluate to a
// concrete value; constraints and definitions may be used to build it.
//
//	name: "deploy.sh"
//	statements: [
//		{kind: "command", name: "mkdir", args: ["-p", "/app"]},
//	]
func DecodeCUE(name string, data []byte) (*ast.Script, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(name, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(name, err)
	}

	root, err := cueNode(name, v)
	if err != nil {
		return nil, err
	}
	return decodeDocument(name, root)
}

// cueNode converts a concrete CUE value into a yaml.Node tree, keeping
// field order and source positions.
func cueNode(file string, v cue.Value) (*yaml.Node, error) {
	pos := v.Pos()
	n := &yaml.Node{Line: pos.Line(), Column: pos.Column()}

	switch v.Kind() {
	case cue.StructKind:
		n.Kind, n.Tag = yaml.MappingNode, "!!map"
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(file, err)
		}
		for iter.Next() {
			fv := iter.Value()
			fpos := fv.Pos()
			key := &yaml.Node{
				Kind:   yaml.ScalarNode,
				Tag:    "!!str",
				Value:  iter.Label(),
				Line:   fpos.Line(),
				Column: fpos.Column(),
			}
			val, err := cueNode(file, fv)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, key, val)
		}

	case cue.ListKind:
		n.Kind, n.Tag = yaml.SequenceNode, "!!seq"
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(file, err)
		}
		for iter.Next() {
			item, err := cueNode(file, iter.Value())
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, item)
		}

	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(file, err)
		}
		n.Kind, n.Tag, n.Value = yaml.ScalarNode, "!!str", s

	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(file, err)
		}
		n.Kind, n.Tag, n.Value = yaml.ScalarNode, "!!int", strconv.FormatInt(i, 10)

	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(file, err)
		}
		n.Kind, n.Tag, n.Value = yaml.ScalarNode, "!!bool", strconv.FormatBool(b)

	case cue.NullKind:
		n.Kind, n.Tag, n.Value = yaml.ScalarNode, "!!null", "null"

	default:
		return nil, &DecodeError{
			File:    file,
			Line:    pos.Line(),
			Col:     pos.Column(),
			Message: fmt.Sprintf("unsupported CUE value of kind %v", v.Kind()),
		}
	}
	return n, nil
}

// formatCUEError converts the first CUE error into a DecodeError carrying
// its position.
func formatCUEError(file string, err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &DecodeError{File: file, Message: err.Error()}
	}

	first := errs[0]
	de := &DecodeError{File: file, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		setPos(de, positions[0])
	}
	return de
}

func setPos(de *DecodeError, pos token.Pos) {
	if !pos.IsValid() {
		return
	}
	if f := pos.Filename(); f != "" {
		de.File = f
	}
	de.Line = pos.Line()
	de.Col = pos.Column()
}
