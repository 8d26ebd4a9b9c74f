package verify

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/puresh/internal/ast"
	"github.com/roach88/puresh/internal/ir"
)

// RecursionGroup is a set of functions that can call each other without
// bound.
//
// Recursion is a warning, not an error, because it may be intentional:
//   - Directory walkers that recurse into subdirectories
//   - Retry helpers with an explicit attempt counter
type RecursionGroup struct {
	// Path is a call cycle such as [a, b, a]. A self-recursive function
	// yields [f, f].
	Path []string
	Span ast.Span
}

// callGraph maps a function name to the names of functions it calls, in
// first-call order.
type callGraph map[string][]string

// AnalyzeRecursion finds recursive function groups in prog.
//
// The algorithm:
//  1. Build the call graph from function bodies, keeping only calls to
//     functions defined in prog
//  2. Find strongly connected components with Tarjan's algorithm
//  3. Report each component with more than one member, or one member that
//     calls itself
//
// Functions are visited in name order so the result is deterministic.
func AnalyzeRecursion(prog *ir.Program) []RecursionGroup {
	spans := make(map[string]ast.Span)
	bodies := make(map[string]*ir.Sequence)
	if prog != nil {
		collectFunctions(prog.Body, spans, bodies)
	}
	if len(bodies) == 0 {
		return nil
	}

	graph := make(callGraph, len(bodies))
	for name, body := range bodies {
		seen := make(map[string]bool)
		graph[name] = []string{}
		walkExecs(body, func(e *ir.Exec) {
			if _, ok := bodies[e.Command]; ok && !seen[e.Command] {
				seen[e.Command] = true
				graph[name] = append(graph[name], e.Command)
			}
		})
	}

	var groups []RecursionGroup
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			path := cyclePath(scc, graph)
			groups = append(groups, RecursionGroup{Path: path, Span: spans[path[0]]})
		}
	}
	slices.SortFunc(groups, func(a, b RecursionGroup) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return groups
}

func (g RecursionGroup) violation() Violation {
	msg := fmt.Sprintf("recursive function %s has no static bound", g.Path[0])
	if len(g.Path) > 2 {
		msg = fmt.Sprintf("mutually recursive functions: %s", strings.Join(g.Path, " -> "))
	}
	return Violation{
		Code:     CodeRecursiveFunction,
		Category: CategoryResourceSafety,
		Severity: SeverityWarning,
		Message:  msg,
		Command:  g.Path[0],
		Span:     g.Span,
	}
}

func collectFunctions(n ir.Node, spans map[string]ast.Span, bodies map[string]*ir.Sequence) {
	walkNodes(n, func(n ir.Node) {
		if f, ok := n.(*ir.Function); ok {
			if _, dup := bodies[f.Name]; !dup {
				spans[f.Name] = f.Span
				bodies[f.Name] = f.Body
			}
		}
	})
}

func hasSelfLoop(node string, graph callGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node components without self-loops are not cycles.
func tarjanSCC(graph callGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cyclePath walks the component from its smallest name, following edges
// that stay inside it, until it returns to the start.
func cyclePath(scc []string, graph callGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := slices.Min(scc)
	if len(scc) == 1 {
		return []string{start, start}
	}

	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		next := ""
		for _, w := range graph[current] {
			if members[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		visited[next] = true
		current = next
	}
	return path
}
