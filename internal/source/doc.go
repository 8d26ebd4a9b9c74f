// Package source decodes tree documents into ast.Script values.
//
// A tree document is the serialized form of a parsed shell script. It is
// written in YAML, JSON or CUE; all three share one schema:
//
//	name: deploy.sh
//	statements:
//	  - kind: assign
//	    name: sum
//	    value: {arith: {op: "+", left: 10, right: 20}}
//	  - kind: command
//	    name: mkdir
//	    args: [/app/releases]
//
// Every statement is a mapping with a kind key. Scalars in word position
// are literals, sequences are arrays, and single-key mappings (lit, var,
// subst, arith, array, concat, glob, test, status, escape) select the other
// expression forms. Statement spans come from optional line and col keys,
// falling back to the statement's position in the document.
//
// Unknown keys are errors. Every DecodeError carries file:line:col.
package source
