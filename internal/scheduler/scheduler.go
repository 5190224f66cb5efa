package scheduler

import (
	"context"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/flowctx"
)

// Results is the recorded state of a pipeline run.
type Results interface {
	Started(ctx context.Context, realID string) bool
	Result(ctx context.Context, realID string) (flowctx.DepCtx, bool)
	Needs(ctx context.Context, realIDs []string) (map[string]flowctx.DepCtx, bool)
}

// Ready returns, in stage order, the real ids that have neither started nor
// finished and whose needs all have a recorded result.
func Ready(ctx context.Context, p *flowctx.PipelineContext, results Results) ([]string, error) {
	var ready []string
	for _, stage := range p.Order() {
		for _, id := range stage {
			if results.Started(ctx, id) {
				continue
			}
			if _, done := results.Result(ctx, id); done {
				continue
			}
			needs, err := p.Needs(id)
			if err != nil {
				return nil, err
			}
			if _, ok := results.Needs(ctx, needs); ok {
				ready = append(ready, id)
			}
		}
	}
	ctxlog.FromContext(ctx).Debug("Ready batches computed.", "count", len(ready))
	return ready, nil
}

// Gate binds realID with its recorded needs and reports whether the batch
// should run. It fails with a NotAvailable error when a need has no result.
func Gate(ctx context.Context, p *flowctx.PipelineContext, results Results, realID string) (*flowctx.PipelineContext, bool, error) {
	needIDs, err := p.Needs(realID)
	if err != nil {
		return nil, false, err
	}
	needs, _ := results.Needs(ctx, needIDs)
	bound, err := p.WithBatch(ctx, realID, needs)
	if err != nil {
		return nil, false, err
	}
	b, err := bound.Batch()
	if err != nil {
		return nil, false, err
	}
	return bound, b.Enable, nil
}

// Done reports whether every batch has a recorded result.
func Done(ctx context.Context, p *flowctx.PipelineContext, results Results) bool {
	for _, id := range p.RealIDs() {
		if _, ok := results.Result(ctx, id); !ok {
			return false
		}
	}
	return true
}
