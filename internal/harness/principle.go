package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/puresh/internal/ast"
	"github.com/roach88/puresh/internal/compiler"
	"github.com/roach88/puresh/internal/purify"
)

// Principles every compiled scenario is held to.
const (
	PrincipleDeterminism = "determinism"
	PrincipleIdempotence = "idempotence"
)

// PrincipleError reports a broken pipeline principle.
type PrincipleError struct {
	Principle string
	Detail    string
}

func (e *PrincipleError) Error() string {
	return fmt.Sprintf("%s violated: %s", e.Principle, e.Detail)
}

// checkDeterminism transpiles script again and requires the same text and
// program digest as first.
func checkDeterminism(script *ast.Script, cfg compiler.Config, first *compiler.Output) error {
	again, err := compiler.Transpile(script, cfg)
	if err != nil {
		return &PrincipleError{Principle: PrincipleDeterminism, Detail: fmt.Sprintf("second transpile failed: %v", err)}
	}
	if again.Digest != first.Digest {
		return &PrincipleError{
			Principle: PrincipleDeterminism,
			Detail:    fmt.Sprintf("digest %s then %s", first.Digest, again.Digest),
		}
	}
	if again.Script != first.Script {
		return &PrincipleError{
			Principle: PrincipleDeterminism,
			Detail:    "script text differs between runs\n" + textDiff(first.Script, again.Script),
		}
	}
	return nil
}

// checkIdempotence purifies script, then purifies the result, and requires
// the second pass to log no fixes and leave the tree unchanged.
func checkIdempotence(script *ast.Script, opts purify.Options) error {
	once, err := purify.Purify(script, opts)
	if err != nil {
		return &PrincipleError{Principle: PrincipleIdempotence, Detail: err.Error()}
	}
	twice, err := purify.Purify(once.Script, opts)
	if err != nil {
		return &PrincipleError{Principle: PrincipleIdempotence, Detail: err.Error()}
	}
	if n := twice.Report.Len(); n > 0 {
		return &PrincipleError{
			Principle: PrincipleIdempotence,
			Detail:    fmt.Sprintf("second purification logged %d fixes, first: %s", n, twice.Report.Fixes[0]),
		}
	}
	if diff := cmp.Diff(once.Script, twice.Script); diff != "" {
		return &PrincipleError{
			Principle: PrincipleIdempotence,
			Detail:    "second purification changed the tree (-once +twice):\n" + diff,
		}
	}
	return nil
}

// textDiff renders a line diff of two scripts (-want +got).
func textDiff(want, got string) string {
	return cmp.Diff(strings.Split(want, "\n"), strings.Split(got, "\n"))
}

// RunDir runs every scenario file in dir. See RunFiles.
func RunDir(ctx context.Context, dir string, workers int) (*Summary, error) {
	paths, err := ScenarioFiles(dir)
	if err != nil {
		return nil, err
	}
	return RunFiles(ctx, paths, workers)
}

// RunFiles loads and runs the scenario files with at most workers in
// flight (workers <= 0 means no limit). Results are in input order. A
// scenario that cannot be loaded counts as failed; only cancellation of
// ctx is returned as an error.
func RunFiles(ctx context.Context, paths []string, workers int) (*Summary, error) {
	results := make([]ScenarioResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = runFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := &Summary{Total: len(results), Results: results}
	for _, r := range results {
		if r.Passed() {
			sum.Passed++
		} else {
			sum.Failed++
		}
	}
	return sum, nil
}

func runFile(path string) ScenarioResult {
	sr := ScenarioResult{Path: path}
	s, err := LoadScenario(path)
	if err != nil {
		sr.Err = err.Error()
		return sr
	}
	sr.Name = s.Name
	res, err := Run(s)
	if err != nil {
		sr.Err = err.Error()
		return sr
	}
	sr.Result = res
	return sr
}
