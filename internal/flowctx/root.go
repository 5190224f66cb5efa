package flowctx

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/defaults"
	"github.com/specialistvlad/burstflow/internal/expr"
	"github.com/specialistvlad/burstflow/internal/flow"
	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/refs"
	"github.com/zclconf/go-cty/cty"
)

// root is the part of a context shared by every binding. It is built once
// and only read afterwards.
type root struct {
	flow     *flow.Flow
	meta     FlowMeta
	defaults defaults.Defaults
	volumes  map[string]refs.Volume
	images   map[string]refs.Image
	scope    expr.Scope
	tags     TagPolicy
}

// newRoot evaluates volumes, then images, then defaults. Each step sees the
// names bound by the previous ones.
func newRoot(ctx context.Context, f *flow.Flow, kind flow.Kind, opts []Option) (*root, error) {
	if f == nil {
		return nil, fmt.Errorf("flow cannot be nil")
	}
	if err := f.Validate(); err != nil {
		return nil, flowerr.WrapValidation(err, "invalid flow", f.ID)
	}
	if f.Kind != kind {
		return nil, flowerr.Validation(fmt.Sprintf("expected a %s flow, got %s", kind, f.Kind), f.ID)
	}
	o := buildOptions(opts)

	r := &root{
		flow: f,
		meta: FlowMeta{ID: f.ID, Title: f.Title, Workspace: f.Workspace},
		tags: o.tags,
	}
	if r.meta.Title == "" {
		r.meta.Title = f.ID
	}

	metaVal, err := toCty(r.meta)
	if err != nil {
		return nil, err
	}
	scope := expr.NewScope().WithWorkspace(f.Workspace).With("flow", metaVal)

	if r.volumes, err = evalVolumes(f, scope); err != nil {
		return nil, err
	}
	volVal, err := objectOf(r.volumes)
	if err != nil {
		return nil, err
	}
	scope = scope.With("volumes", volVal)

	if r.images, err = evalImages(f, scope); err != nil {
		return nil, err
	}
	imgVal, err := objectOf(r.images)
	if err != nil {
		return nil, err
	}
	scope = scope.With("images", imgVal)

	if r.defaults, err = evalDefaults(f, scope); err != nil {
		return nil, err
	}
	defVal, err := toCty(r.defaults)
	if err != nil {
		return nil, err
	}
	r.scope = scope.
		With("defaults", defVal).
		With("env", expr.StringMapVal(r.defaults.Env))

	ctxlog.FromContext(ctx).Debug("Flow context created.",
		"flow", f.ID, "kind", f.Kind, "volumes", len(r.volumes), "images", len(r.images))
	return r, nil
}

func evalVolumes(f *flow.Flow, scope expr.Scope) (map[string]refs.Volume, error) {
	out := make(map[string]refs.Volume, len(f.Volumes))
	for _, id := range sortedKeys(f.Volumes) {
		v := f.Volumes[id]
		e := &evaluator{scope: scope, subject: "volumes." + id}
		remote := e.required("remote", v.Remote)
		mount := e.required("mount", v.Mount)
		readOnly := e.flag("read_only", v.ReadOnly)
		local := e.str("local", v.Local)
		if e.err != nil {
			return nil, e.err
		}
		out[id] = refs.NewVolume(f.Workspace, id, remote, mount, readOnly, local)
	}
	return out, nil
}

func evalImages(f *flow.Flow, scope expr.Scope) (map[string]refs.Image, error) {
	out := make(map[string]refs.Image, len(f.Images))
	for _, id := range sortedKeys(f.Images) {
		img := f.Images[id]
		e := &evaluator{scope: scope, subject: "images." + id}
		ref := e.required("ref", img.Ref)
		buildContext := e.str("context", img.Context)
		dockerfile := e.str("dockerfile", img.Dockerfile)
		buildArgs := e.list("build_args", img.BuildArgs)
		if e.err != nil {
			return nil, e.err
		}
		out[id] = refs.NewImage(f.Workspace, id, ref, buildContext, dockerfile, buildArgs)
	}
	return out, nil
}

func evalDefaults(f *flow.Flow, scope expr.Scope) (defaults.Defaults, error) {
	d := f.Defaults
	if d == nil {
		return defaults.Defaults{Tags: []string{}, Env: map[string]string{}}, nil
	}
	e := &evaluator{scope: scope, subject: "defaults"}
	out := defaults.Defaults{
		Tags:     e.list("tags", d.Tags),
		Env:      e.env("env", d.Env),
		Workdir:  e.str("workdir", d.Workdir),
		LifeSpan: e.lifeSpan("life_span", d.LifeSpan),
		Preset:   e.str("preset", d.Preset),
	}
	if e.err != nil {
		return defaults.Defaults{}, e.err
	}
	return out, nil
}

// resolveAttrs evaluates the shared node attributes in scope and merges
// them with the defaults.
func (r *root) resolveAttrs(a flow.Attrs, scope expr.Scope, node NodeInfo, subject string) (Attrs, error) {
	e := &evaluator{scope: scope, subject: subject}
	out := Attrs{
		Title:      e.str("title", a.Title),
		Name:       e.str("name", a.Name),
		Image:      e.str("image", a.Image),
		HTTPPort:   e.integer("http_port", a.HTTPPort),
		HTTPAuth:   e.boolean("http_auth", a.HTTPAuth),
		Entrypoint: e.str("entrypoint", a.Entrypoint),
		Cmd:        e.cmd(a.Cmd, a.CmdMode),

		PortForward: e.ports("port_forward", a.PortForward),
		Detach:      e.flag("detach", a.Detach),
		Browse:      e.flag("browse", a.Browse),
	}
	local := defaults.Local{
		Tags:     e.list("tags", a.Tags),
		Env:      e.env("env", a.Env),
		Workdir:  e.str("workdir", a.Workdir),
		LifeSpan: e.lifeSpan("life_span", a.LifeSpan),
		Preset:   e.str("preset", a.Preset),
		Volumes:  e.list("volumes", a.Volumes),
	}
	if e.err != nil {
		return Attrs{}, e.err
	}

	implicit := r.tags(node, defaults.Union(r.defaults.Tags, local.Tags))
	res, err := defaults.Resolve(r.defaults, local, implicit, r.volumes)
	if err != nil {
		return Attrs{}, fmt.Errorf("%s: %w", subject, err)
	}
	out.Tags = res.Tags
	out.Env = res.Env
	out.Workdir = res.Workdir
	out.LifeSpan = res.LifeSpan
	out.Preset = res.Preset
	out.Volumes = res.Volumes
	return out, nil
}

// Accessors shared by both context kinds.

func (r *root) Flow() FlowMeta { return r.meta }

func (r *root) Volumes() map[string]refs.Volume { return copyMap(r.volumes) }

func (r *root) Images() map[string]refs.Image { return copyMap(r.images) }

func (r *root) Defaults() defaults.Defaults { return r.defaults }

func objectOf[T any](m map[string]T) (cty.Value, error) {
	attrs := make(map[string]cty.Value, len(m))
	for k, v := range m {
		val, err := toCty(v)
		if err != nil {
			return cty.NilVal, err
		}
		attrs[k] = val
	}
	return expr.Object(attrs), nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyMap[T any](m map[string]T) map[string]T {
	out := make(map[string]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
