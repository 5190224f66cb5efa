package flowctx

import (
	"context"
	"sort"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/dag"
	"github.com/specialistvlad/burstflow/internal/expr"
	"github.com/specialistvlad/burstflow/internal/flow"
	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/matrix"
)

// instance is one expanded batch.
type instance struct {
	def    *flow.Batch
	seed   matrix.Instance
	needs  []string
	stage  int
	matrix map[string]string
}

// pipeline holds what a batch flow adds to root: the expanded batches, the
// graph and the order. Built once, read only.
type pipeline struct {
	instances map[string]*instance
	realIDs   []string
	graph     *dag.Graph
	order     [][]string
}

// PipelineContext is the context of a batch flow, optionally bound to one
// expanded batch.
type PipelineContext struct {
	*root
	*pipeline
	batch *Batch
}

// NewPipelineContext evaluates the flow-wide parts of a batch flow, expands
// every matrix and computes the execution order.
func NewPipelineContext(ctx context.Context, f *flow.Flow, opts ...Option) (*PipelineContext, error) {
	r, err := newRoot(ctx, f, flow.KindBatch, opts)
	if err != nil {
		return nil, err
	}
	p, err := expand(f)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Pipeline expanded.",
		"flow", f.ID, "batches", len(f.Batches), "instances", len(p.realIDs), "stages", len(p.order))
	return &PipelineContext{root: r, pipeline: p}, nil
}

func expand(f *flow.Flow) (*pipeline, error) {
	p := &pipeline{instances: make(map[string]*instance)}
	byBase := make(map[string][]string)

	for _, b := range f.Batches {
		seeds, err := matrix.Expand(b.ID, b.Matrix)
		if err != nil {
			return nil, err
		}
		// A fully excluded matrix still answers for its base id.
		byBase[b.ID] = nil
		for _, s := range seeds {
			if _, dup := p.instances[s.RealID]; dup {
				return nil, flowerr.Validation("duplicate real id", s.RealID)
			}
			p.instances[s.RealID] = &instance{def: b, seed: s, matrix: s.Matrix}
			p.realIDs = append(p.realIDs, s.RealID)
			byBase[b.ID] = append(byBase[b.ID], s.RealID)
		}
	}

	nodes := make([]dag.Node, 0, len(p.realIDs))
	for _, id := range p.realIDs {
		inst := p.instances[id]
		inst.needs = resolveNeeds(inst.def.Needs, p.instances, byBase)
		nodes = append(nodes, dag.Node{ID: id, Needs: inst.needs})
	}

	g, err := dag.Build(nodes)
	if err != nil {
		return nil, err
	}
	order, err := g.Stages()
	if err != nil {
		return nil, err
	}
	for i, stage := range order {
		for _, id := range stage {
			p.instances[id].stage = i
		}
	}
	p.graph = g
	p.order = order
	return p, nil
}

// resolveNeeds maps declared needs to real ids. A real id is kept; the base
// id of a multiplied batch stands for all of its instances; anything else is
// kept as is for the graph to report.
func resolveNeeds(declared []string, instances map[string]*instance, byBase map[string][]string) []string {
	seen := make(map[string]struct{}, len(declared))
	for _, n := range declared {
		if _, ok := instances[n]; ok {
			seen[n] = struct{}{}
			continue
		}
		if ids, ok := byBase[n]; ok {
			for _, id := range ids {
				seen[id] = struct{}{}
			}
			continue
		}
		seen[n] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Order returns the layered execution order. Every stage is sorted.
func (c *PipelineContext) Order() [][]string {
	out := make([][]string, len(c.order))
	for i, stage := range c.order {
		out[i] = append([]string(nil), stage...)
	}
	return out
}

// RealIDs returns every expanded real id in declaration order.
func (c *PipelineContext) RealIDs() []string {
	return append([]string(nil), c.realIDs...)
}

// Needs returns the sorted prerequisite real ids of realID.
func (c *PipelineContext) Needs(realID string) ([]string, error) {
	inst, ok := c.instances[realID]
	if !ok {
		return nil, flowerr.NotAvailable(realID)
	}
	return append([]string(nil), inst.needs...), nil
}

// Stage returns the index of the stage holding realID.
func (c *PipelineContext) Stage(realID string) (int, error) {
	inst, ok := c.instances[realID]
	if !ok {
		return 0, flowerr.NotAvailable(realID)
	}
	return inst.stage, nil
}

// WithBatch returns a new context bound to the expanded batch realID. needs
// must hold a result for every prerequisite; extra entries are ignored.
func (c *PipelineContext) WithBatch(ctx context.Context, realID string, needs map[string]DepCtx) (*PipelineContext, error) {
	inst, ok := c.instances[realID]
	if !ok {
		return nil, flowerr.NotAvailable(realID)
	}

	bound := make(map[string]expr.Need, len(inst.needs))
	for _, id := range inst.needs {
		dep, ok := needs[id]
		if !ok {
			return nil, flowerr.NotAvailable(id)
		}
		bound[id] = dep.need()
	}

	scope := c.scope.
		With("matrix", expr.StringMapVal(inst.matrix)).
		WithNeeds(bound)

	node := NodeInfo{FlowID: c.meta.ID, Kind: flow.KindBatch, ID: realID}
	subject := "batches." + realID
	attrs, err := c.resolveAttrs(inst.def.Attrs, scope, node, subject)
	if err != nil {
		return nil, err
	}

	enable, err := c.enabled(inst, scope, bound, subject)
	if err != nil {
		return nil, err
	}

	b := &Batch{
		RealID: realID,
		Attrs:  attrs,
		Needs:  append([]string{}, inst.needs...),
		Matrix: copyMap(inst.matrix),
		Enable: enable,
	}
	if inst.def.Named && !inst.seed.Multiplied {
		id := inst.def.ID
		b.ID = &id
	}

	ctxlog.FromContext(ctx).Debug("Batch resolved.", "flow", c.meta.ID, "real_id", realID, "enable", enable)
	return &PipelineContext{root: c.root, pipeline: c.pipeline, batch: b}, nil
}

// enabled evaluates the acceptance policy. Without one every need must have
// succeeded.
func (c *PipelineContext) enabled(inst *instance, scope expr.Scope, bound map[string]expr.Need, subject string) (bool, error) {
	if inst.def.Enable != nil {
		e := &evaluator{scope: scope, subject: subject}
		v := e.boolean("enable", inst.def.Enable)
		if e.err != nil {
			return false, e.err
		}
		if v != nil {
			return *v, nil
		}
	}
	for _, n := range bound {
		if n.Result != expr.ResultSuccess {
			return false, nil
		}
	}
	return true, nil
}

// Batch returns the bound batch, or a NotAvailable error before WithBatch.
func (c *PipelineContext) Batch() (Batch, error) {
	if c.batch == nil {
		return Batch{}, flowerr.NotAvailable("batch")
	}
	return *c.batch, nil
}

// Matrix returns the matrix of the bound batch, empty when unbound.
func (c *PipelineContext) Matrix() map[string]string {
	if c.batch == nil {
		return map[string]string{}
	}
	return copyMap(c.batch.Matrix)
}

// Env is the defaults env, or the merged env of the bound batch.
func (c *PipelineContext) Env() map[string]string {
	if c.batch != nil {
		return copyMap(c.batch.Env)
	}
	return copyMap(c.defaults.Env)
}

// Dependents returns the sorted real ids that directly need realID.
func (c *PipelineContext) Dependents(realID string) ([]string, error) {
	if _, ok := c.instances[realID]; !ok {
		return nil, flowerr.NotAvailable(realID)
	}
	return c.graph.Dependents(realID)
}
