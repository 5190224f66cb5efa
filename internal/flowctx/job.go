package flowctx

import (
	"context"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/flow"
	"github.com/specialistvlad/burstflow/internal/flowerr"
)

// JobContext is the context of a live flow, optionally bound to one job.
type JobContext struct {
	*root
	job *Job
}

// NewJobContext evaluates the flow-wide parts of a live flow.
func NewJobContext(ctx context.Context, f *flow.Flow, opts ...Option) (*JobContext, error) {
	r, err := newRoot(ctx, f, flow.KindLive, opts)
	if err != nil {
		return nil, err
	}
	return &JobContext{root: r}, nil
}

// JobIDs returns the declared job ids, sorted.
func (c *JobContext) JobIDs() []string {
	return sortedKeys(c.flow.Jobs)
}

// WithJob returns a new context bound to the job id.
func (c *JobContext) WithJob(ctx context.Context, id string) (*JobContext, error) {
	def, ok := c.flow.Jobs[id]
	if !ok {
		return nil, flowerr.NotAvailable(id)
	}

	node := NodeInfo{FlowID: c.meta.ID, Kind: flow.KindLive, ID: id}
	subject := "jobs." + id
	attrs, err := c.resolveAttrs(def.Attrs, c.scope, node, subject)
	if err != nil {
		return nil, err
	}

	job := &Job{ID: id, Attrs: attrs}

	ctxlog.FromContext(ctx).Debug("Job resolved.", "flow", c.meta.ID, "job", id)
	return &JobContext{root: c.root, job: job}, nil
}

// Job returns the bound job, or a NotAvailable error before WithJob.
func (c *JobContext) Job() (Job, error) {
	if c.job == nil {
		return Job{}, flowerr.NotAvailable("job")
	}
	return *c.job, nil
}

// Env is the defaults env, or the merged env of the bound job.
func (c *JobContext) Env() map[string]string {
	if c.job != nil {
		return copyMap(c.job.Env)
	}
	return copyMap(c.defaults.Env)
}
