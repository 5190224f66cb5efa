package app

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/flow"
	"github.com/specialistvlad/burstflow/internal/flowctx"
	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/resultstore"
	"github.com/specialistvlad/burstflow/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

// Plan is a dry run of a flow: every node resolved in execution order.
type Plan struct {
	ID     string           `json:"id" yaml:"id"`
	Flow   flowctx.FlowMeta `json:"flow" yaml:"flow"`
	Kind   flow.Kind        `json:"kind" yaml:"kind"`
	Jobs   []flowctx.Job    `json:"jobs,omitempty" yaml:"jobs,omitempty"`
	Stages []Stage          `json:"stages,omitempty" yaml:"stages,omitempty"`
}

// Stage groups the batches that can run once the previous stages finished.
type Stage struct {
	Index   int            `json:"index" yaml:"index"`
	Batches []PlannedBatch `json:"batches" yaml:"batches"`
}

// PlannedBatch is a resolved batch with the result the dry run assigned to it.
type PlannedBatch struct {
	flowctx.Batch `yaml:",inline"`
	Result        flowctx.Result `json:"result" yaml:"result"`
}

// PlanOptions tune the dry run.
type PlanOptions struct {
	// Fail lists real ids whose run is simulated as failed. Batches disabled
	// by their enable policy are recorded as cancelled.
	Fail []string
}

// Plan resolves every node of the configured flow. Batch flows are driven
// through the scheduler against an in-memory result store, so enable
// policies see the simulated results of their needs.
func (a *App) Plan(ctx context.Context, opts PlanOptions) (*Plan, error) {
	ctx = a.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)

	f, err := a.loadSingle(ctx)
	if err != nil {
		return nil, err
	}

	p := &Plan{ID: uuid.NewString(), Kind: f.Kind}
	logger = logger.With("plan_id", p.ID)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Info("🚀 Planning flow.", "flow", f.ID, "kind", f.Kind)

	if f.Kind == flow.KindLive {
		err = a.planJobs(ctx, f, p)
	} else {
		err = a.planBatches(ctx, f, p, opts)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("🏁 Plan finished.", "jobs", len(p.Jobs), "stages", len(p.Stages))
	return p, nil
}

func (a *App) planJobs(ctx context.Context, f *flow.Flow, p *Plan) error {
	c, err := flowctx.NewJobContext(ctx, f, a.opts...)
	if err != nil {
		return err
	}
	p.Flow = c.Flow()

	ids := c.JobIDs()
	p.Jobs = make([]flowctx.Job, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.WorkerCount)
	for i, id := range ids {
		g.Go(func() error {
			bound, err := c.WithJob(gctx, id)
			if err != nil {
				return err
			}
			job, err := bound.Job()
			if err != nil {
				return err
			}
			p.Jobs[i] = job
			return nil
		})
	}
	return g.Wait()
}

func (a *App) planBatches(ctx context.Context, f *flow.Flow, p *Plan, opts PlanOptions) error {
	logger := ctxlog.FromContext(ctx)

	c, err := flowctx.NewPipelineContext(ctx, f, a.opts...)
	if err != nil {
		return err
	}
	p.Flow = c.Flow()

	failed := make(map[string]bool, len(opts.Fail))
	for _, id := range opts.Fail {
		if _, err := c.Stage(id); err != nil {
			return flowerr.WrapValidation(err, "cannot simulate failure", id)
		}
		failed[id] = true
	}

	store := resultstore.New()
	var mu sync.Mutex
	planned := make(map[string]PlannedBatch, len(c.RealIDs()))

	for !scheduler.Done(ctx, c, store) {
		ready, err := scheduler.Ready(ctx, c, store)
		if err != nil {
			return err
		}
		if len(ready) == 0 {
			return flowerr.Internalf("no batch is ready but %d are unfinished",
				len(c.RealIDs())-len(store.Finished(ctx)))
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.config.WorkerCount)
		for _, id := range ready {
			g.Go(func() error {
				if err := store.MarkStarted(gctx, id); err != nil {
					return err
				}
				bound, enabled, err := scheduler.Gate(gctx, c, store, id)
				if err != nil {
					return err
				}
				b, err := bound.Batch()
				if err != nil {
					return err
				}

				result := flowctx.Success
				switch {
				case !enabled:
					result = flowctx.Cancelled
				case failed[id]:
					result = flowctx.Failure
				}
				logger.Debug("Batch planned.", "real_id", id, "result", result)

				mu.Lock()
				planned[id] = PlannedBatch{Batch: b, Result: result}
				mu.Unlock()
				return store.Record(gctx, id, flowctx.DepCtx{Result: result})
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	for i, stage := range c.Order() {
		s := Stage{Index: i, Batches: make([]PlannedBatch, 0, len(stage))}
		for _, id := range stage {
			s.Batches = append(s.Batches, planned[id])
		}
		p.Stages = append(p.Stages, s)
	}
	return nil
}
