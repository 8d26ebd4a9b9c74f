package compiler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/puresh/internal/ast"
)

// TranspileAll transpiles scripts concurrently with at most workers in
// flight (workers <= 0 means one per script). Results are in input order.
// The first failure cancels the rest and is returned wrapped with the
// script's name.
func TranspileAll(ctx context.Context, scripts []*ast.Script, cfg Config, workers int) ([]*Output, error) {
	outputs := make([]*Output, len(scripts))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, script := range scripts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := Transpile(script, cfg)
			if err != nil {
				return fmt.Errorf("%s: %w", scriptName(script, i), err)
			}
			outputs[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func scriptName(s *ast.Script, i int) string {
	if s != nil && s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("script[%d]", i)
}
