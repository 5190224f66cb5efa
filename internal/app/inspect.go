package app

import (
	"context"

	"github.com/specialistvlad/burstflow/internal/flow"
	"github.com/specialistvlad/burstflow/internal/flowctx"
)

// Order returns the stages of the configured batch flow.
func (a *App) Order(ctx context.Context) ([][]string, error) {
	ctx = a.withLogger(ctx)
	f, err := a.loadSingle(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireKind(f, flow.KindBatch); err != nil {
		return nil, err
	}
	c, err := flowctx.NewPipelineContext(ctx, f, a.opts...)
	if err != nil {
		return nil, err
	}
	return c.Order(), nil
}

// Inspect resolves a single node of the configured flow: a job id for live
// flows, a real id for batch flows. Batch needs are assumed successful with
// no outputs.
func (a *App) Inspect(ctx context.Context, id string) (any, error) {
	ctx = a.withLogger(ctx)
	f, err := a.loadSingle(ctx)
	if err != nil {
		return nil, err
	}

	if f.Kind == flow.KindLive {
		c, err := flowctx.NewJobContext(ctx, f, a.opts...)
		if err != nil {
			return nil, err
		}
		bound, err := c.WithJob(ctx, id)
		if err != nil {
			return nil, err
		}
		return bound.Job()
	}

	c, err := flowctx.NewPipelineContext(ctx, f, a.opts...)
	if err != nil {
		return nil, err
	}
	needIDs, err := c.Needs(id)
	if err != nil {
		return nil, err
	}
	needs := make(map[string]flowctx.DepCtx, len(needIDs))
	for _, n := range needIDs {
		needs[n] = flowctx.DepCtx{Result: flowctx.Success}
	}
	bound, err := c.WithBatch(ctx, id, needs)
	if err != nil {
		return nil, err
	}
	return bound.Batch()
}
