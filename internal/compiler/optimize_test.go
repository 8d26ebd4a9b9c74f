package compiler

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/puresh/internal/ast"
	"github.com/roach88/puresh/internal/ir"
)

func optimized(t *testing.T, stmts ...ast.Stmt) []ir.Node {
	t.Helper()
	prog, err := Build(script(stmts...))
	require.NoError(t, err)
	out, err := Optimize(prog, DefaultConfig())
	require.NoError(t, err)
	return out.Body.Nodes
}

// =============================================================================
// Constant Folding
// =============================================================================

func TestFoldArithmetic(t *testing.T) {
	tests := []struct {
		name string
		in   ir.Value
		want ir.Value
	}{
		{"add", ir.Arith(ir.Add, ir.Int(10), ir.Int(20)), ir.Lit("30")},
		{"nested multiply", ir.Arith(ir.Mul, ir.Arith(ir.Mul, ir.Int(10), ir.Int(1024)), ir.Int(1024)), ir.Lit("10485760")},
		{"mixed", ir.Arith(ir.Add, ir.Arith(ir.Mul, ir.Int(4096), ir.Int(256)), ir.Int(64)), ir.Lit("1048640")},
		{"subtract negative", ir.Arith(ir.Sub, ir.Int(3), ir.Int(5)), ir.Lit("-2")},
		{"truncating division", ir.Arith(ir.Div, ir.Int(7), ir.Int(2)), ir.Lit("3")},
		{"negative division", ir.Arith(ir.Div, ir.Int(-7), ir.Int(2)), ir.Lit("-3")},
		{"negative modulo", ir.Arith(ir.Mod, ir.Int(-7), ir.Int(3)), ir.Lit("-1")},
		{"wrap around", ir.Arith(ir.Add, ir.Int(math.MaxInt64), ir.Int(1)), ir.Int(math.MinInt64)},
		{"variable unchanged", ir.Arith(ir.Add, ir.Var("x"), ir.Int(1)), ir.Arith(ir.Add, ir.Var("x"), ir.Int(1))},
		{
			"partial fold",
			ir.Arith(ir.Mul, ir.Var("n"), ir.Arith(ir.Add, ir.Int(2), ir.Int(3))),
			ir.Arith(ir.Mul, ir.Var("n"), ir.Lit("5")),
		},
		{"octal-looking literal", ir.Arith(ir.Add, ir.Lit("010"), ir.Int(1)), ir.Arith(ir.Add, ir.Lit("010"), ir.Int(1))},
		{"plain string", ir.Lit("hello"), ir.Lit("hello")},
		{"concat", ir.Concat{Parts: []ir.Value{ir.Lit("v"), ir.Arith(ir.Add, ir.Int(1), ir.Int(1))}}, ir.Concat{Parts: []ir.Value{ir.Lit("v"), ir.Lit("2")}}},
		{"escaped", ir.Escape(ir.Arith(ir.Mul, ir.Int(6), ir.Int(7))), ir.Escaped{Inner: ir.Lit("42")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FoldArithmetic(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFoldArithmeticErrors(t *testing.T) {
	tests := []struct {
		name string
		in   ir.Value
		msg  string
	}{
		{"division by zero", ir.Arith(ir.Div, ir.Int(1), ir.Int(0)), "division by zero"},
		{"modulo by zero", ir.Arith(ir.Mod, ir.Int(1), ir.Int(0)), "modulo by zero"},
		{"folded zero divisor", ir.Arith(ir.Div, ir.Int(8), ir.Arith(ir.Sub, ir.Int(2), ir.Int(2))), "division by zero"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FoldArithmetic(tt.in)
			require.Error(t, err)
			assert.True(t, IsOptimizeError(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestFoldVariableDivisorIsNotAnError(t *testing.T) {
	in := ir.Arith(ir.Div, ir.Int(1), ir.Var("n"))
	got, err := FoldArithmetic(in)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

// =============================================================================
// Program Optimization
// =============================================================================

func TestOptimizeFoldsLet(t *testing.T) {
	nodes := optimized(t, assign("sum", arith(bin("+", num(10), num(20)))))
	assert.Equal(t, ir.Lit("30"), nodes[0].(*ir.Let).Value)
}

func TestOptimizeNestedPositions(t *testing.T) {
	sum := arith(bin("+", num(1), num(2)))
	nodes := optimized(t,
		&ast.Function{Name: "f", Body: []ast.Stmt{
			&ast.If{
				Cond: ast.Test{Expr: ast.IntCompare{Op: "-eq", Left: sum, Right: lit("3")}},
				Then: []ast.Stmt{&ast.Return{Code: sum}},
			},
		}},
		&ast.For{Variable: "x", Items: ast.Array{Items: []ast.Expr{sum}}, Body: []ast.Stmt{
			&ast.Command{Name: "echo", Args: []ast.Expr{sum}, Redirects: []ast.Redirect{{Op: ast.RedirectOut, Target: ast.Concat{Parts: []ast.Expr{lit("/tmp/"), sum}}}}},
		}},
		&ast.Case{Word: sum, Arms: []ast.CaseArm{{Patterns: []string{"3"}, Body: []ast.Stmt{&ast.Exit{Code: sum}}}}},
		&ast.While{Cond: ast.CommandStatus{Command: command("test", sum)}},
		&ast.Pipeline{Commands: []*ast.Command{command("echo", ast.CommandSubst{Command: command("echo", sum)}), command("cat")}},
	)

	fn := nodes[0].(*ir.Function)
	branch := fn.Body.Nodes[0].(*ir.If)
	assert.Equal(t, ir.Compare{Op: "-eq", Left: ir.Lit("3"), Right: ir.Lit("3")}, branch.Cond)
	assert.Equal(t, ir.Lit("3"), branch.Then.Nodes[0].(*ir.Return).Code)

	loop := nodes[1].(*ir.Loop)
	assert.Equal(t, []ir.Value{ir.Lit("3")}, loop.Items)
	echo := loop.Body.Nodes[0].(*ir.Exec)
	assert.Equal(t, []ir.Value{ir.Lit("3")}, echo.Args)
	assert.Equal(t, ir.Concat{Parts: []ir.Value{ir.Lit("/tmp/"), ir.Lit("3")}}, echo.Redirects[0].Target)

	c := nodes[2].(*ir.Case)
	assert.Equal(t, ir.Lit("3"), c.Word)
	assert.Equal(t, ir.Lit("3"), c.Arms[0].Body.Nodes[0].(*ir.Exit).Code)

	w := nodes[3].(*ir.Loop)
	assert.Equal(t, []ir.Value{ir.Lit("3")}, w.Cond.(ir.CommandCond).Exec.Args)

	p := nodes[4].(*ir.Pipeline)
	subst := p.Stages[0].Args[0].(ir.CommandSubst)
	assert.Equal(t, []ir.Value{ir.Lit("3")}, subst.Exec.Args)
}

func TestOptimizePreservesEffects(t *testing.T) {
	stmts := []ast.Stmt{
		command("curl", lit("-o"), arith(bin("+", num(1), num(1)))),
		&ast.Command{Name: "echo", Redirects: []ast.Redirect{{Op: ast.RedirectOut, Target: lit("/tmp/x")}}},
		&ast.If{Cond: fileTest("-f", "/etc/x"), Then: []ast.Stmt{command("rm", lit("-f"), lit("/etc/x"))}},
	}
	prog, err := Build(script(stmts...))
	require.NoError(t, err)
	out, err := Optimize(prog, DefaultConfig())
	require.NoError(t, err)

	require.Len(t, out.Body.Nodes, len(prog.Body.Nodes))
	for i := range prog.Body.Nodes {
		assert.Equal(t, prog.Body.Nodes[i].Effects(), out.Body.Nodes[i].Effects(), "node %d", i)
	}
	assert.Equal(t, prog.Effects(), out.Effects())
}

func TestOptimizeDisabled(t *testing.T) {
	prog, err := Build(script(assign("sum", arith(bin("+", num(10), num(20))))))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Optimize = false
	out, err := Optimize(prog, cfg)
	require.NoError(t, err)
	assert.Same(t, prog, out)
}

func TestOptimizeLeavesFoldedProgramUnchanged(t *testing.T) {
	prog, err := Build(script(
		assign("sum", arith(bin("+", num(10), num(20)))),
		assign("next", arith(bin("+", ast.ArithVar{Name: "sum"}, num(1)))),
	))
	require.NoError(t, err)

	once, err := Optimize(prog, DefaultConfig())
	require.NoError(t, err)
	twice, err := Optimize(once, DefaultConfig())
	require.NoError(t, err)
	if diff := cmp.Diff(ir.Describe(once), ir.Describe(twice)); diff != "" {
		t.Errorf("second optimization changed the program (-once +twice):\n%s", diff)
	}
}

func TestOptimizeDivisionByZeroSpan(t *testing.T) {
	s := script(&ast.Assign{Name: "x", Value: arith(bin("/", num(1), num(0))), Span: ast.Span{File: "m.sh", StartLine: 9, StartCol: 1}})
	prog, err := Build(s)
	require.NoError(t, err)

	_, err = Optimize(prog, DefaultConfig())
	require.Error(t, err)
	var oe *OptimizeError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, 9, oe.Span.StartLine)
	assert.Equal(t, "1 / 0", oe.Expr)
	assert.Equal(t, "optimize: m.sh:9:1: division by zero in 1 / 0", err.Error())
}

func TestOptimizeNilProgram(t *testing.T) {
	out, err := Optimize(nil, DefaultConfig())
	assert.NoError(t, err)
	assert.Nil(t, out)
}
