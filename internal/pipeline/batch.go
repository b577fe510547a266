package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"leadengine/internal/types/agent"
	"leadengine/internal/types/lead"
)

// BatchResult is one lead's outcome inside RunBatch.
type BatchResult struct {
	Lead    lead.Lead
	Results []StageResult
	Err     error
}

// RunBatch runs the full pipeline for each lead with at most
// Options.Parallelism runs in flight. A failing lead does not stop the
// others; its error is reported in its BatchResult. The returned error is
// non-nil only when ctx ends before every lead was started.
func (o *Orchestrator) RunBatch(ctx context.Context, leads []lead.Lead, a agent.Profile) ([]BatchResult, error) {
	out := make([]BatchResult, len(leads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Parallelism)
	for i, l := range leads {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			merged, results, err := o.RunFullPipeline(gctx, l, a)
			out[i] = BatchResult{Lead: merged, Results: results, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out, ctx.Err()
}
