package verify

import (
	"testing"

	"github.com/roach88/puresh/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fn(name string, calls ...string) *ir.Function {
	nodes := make([]ir.Node, len(calls))
	for i, c := range calls {
		nodes[i] = exec(c)
	}
	return ir.NewFunction(name, seq(nodes...), span)
}

func TestAnalyzeRecursionNoFunctions(t *testing.T) {
	assert.Empty(t, AnalyzeRecursion(program(exec("echo"))))
	assert.Empty(t, AnalyzeRecursion(nil))
}

func TestAnalyzeRecursionDAG(t *testing.T) {
	prog := program(fn("a", "b", "c"), fn("b", "c"), fn("c", "echo"))
	assert.Empty(t, AnalyzeRecursion(prog))
}

func TestAnalyzeRecursionSelfLoop(t *testing.T) {
	groups := AnalyzeRecursion(program(fn("walk", "ls", "walk")))
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"walk", "walk"}, groups[0].Path)
}

func TestAnalyzeRecursionMutual(t *testing.T) {
	prog := program(fn("ping", "pong"), fn("pong", "ping"), fn("other", "ping"))
	groups := AnalyzeRecursion(prog)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"ping", "pong", "ping"}, groups[0].Path)
}

func TestAnalyzeRecursionThreeCycleAndSeparateSelfLoop(t *testing.T) {
	prog := program(fn("c", "a"), fn("a", "b"), fn("b", "c"), fn("z", "z"))
	groups := AnalyzeRecursion(prog)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"a", "b", "c", "a"}, groups[0].Path)
	assert.Equal(t, []string{"z", "z"}, groups[1].Path)
}

func TestAnalyzeRecursionCallsInSubstitution(t *testing.T) {
	body := seq(ir.NewLet("x", ir.CommandSubst{Exec: exec("count")}, false, false, span))
	prog := program(ir.NewFunction("count", body, span))
	groups := AnalyzeRecursion(prog)
	require.Len(t, groups, 1)
}

func TestAnalyzeRecursionDeterministic(t *testing.T) {
	prog := program(fn("d", "e"), fn("e", "d"), fn("a", "b"), fn("b", "a"))
	first := AnalyzeRecursion(prog)
	for range 20 {
		assert.Equal(t, first, AnalyzeRecursion(prog))
	}
	require.Len(t, first, 2)
	assert.Equal(t, "a", first[0].Path[0])
}

func TestRecursionReportedAsWarning(t *testing.T) {
	r := Verify(program(fn("loop", "loop")), LevelStrict)
	got := r.ByCategory(CategoryResourceSafety)
	require.Len(t, got, 1)
	assert.Equal(t, CodeRecursiveFunction, got[0].Code)
	assert.Equal(t, SeverityWarning, got[0].Severity)
	assert.NoError(t, r.Err())
}
