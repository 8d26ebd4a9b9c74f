package compiler

import (
	"github.com/roach88/puresh/internal/ast"
)

func at(line int) ast.Span {
	return ast.Span{File: "test.sh", StartLine: line, StartCol: 1}
}

func lit(s string) ast.Literal { return ast.Literal{Value: s} }

func vr(name string) ast.Variable { return ast.Variable{Name: name} }

func num(n int64) ast.Number { return ast.Number{Value: n} }

func bin(op string, l, r ast.ArithExpr) ast.Binary {
	return ast.Binary{Op: op, Left: l, Right: r}
}

func arith(e ast.ArithExpr) ast.Arithmetic { return ast.Arithmetic{Expr: e} }

func command(name string, args ...ast.Expr) *ast.Command {
	return &ast.Command{Name: name, Args: args, Span: at(1)}
}

func assign(name string, value ast.Expr) *ast.Assign {
	return &ast.Assign{Name: name, Value: value, Span: at(1)}
}

func script(stmts ...ast.Stmt) *ast.Script {
	return &ast.Script{Name: "test.sh", Statements: stmts}
}

func fileTest(op, path string) ast.Test {
	return ast.Test{Expr: ast.FileTest{Op: op, Path: lit(path)}}
}
