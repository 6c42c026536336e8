package analysis

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// AnalyzeBatch analyzes msgs on up to workers goroutines. Results are in
// input order. Cancelling ctx stops scheduling further messages and returns
// the context error; messages already started run to completion.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, msgs []Message, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]Result, len(msgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, m := range msgs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.Analyze(m.Subject, m.Body)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
