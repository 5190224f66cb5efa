// Package flowhcl loads flows written in HCL.
//
// Attribute values are kept as native HCL expressions and evaluated later,
// when a context binds the node, against the same variables the YAML layout
// exposes through `${{ }}` templates.
package flowhcl

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/flow"
	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/matrix"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Loader is the HCL implementation of flow.Loader.
type Loader struct{}

var _ flow.Loader = (*Loader)(nil)

// NewLoader creates a new HCL flow loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the flow file at path. An empty workspace defaults
// to flow.DefaultWorkspace(path).
func (l *Loader) Load(ctx context.Context, workspace, path string) (*flow.Flow, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file %s: %w", path, err)
	}
	if workspace == "" {
		workspace = flow.DefaultWorkspace(path)
	}
	return l.Parse(ctx, workspace, path, src)
}

// Parse builds a flow from HCL source.
func (l *Loader) Parse(ctx context.Context, workspace, filename string, src []byte) (*flow.Flow, error) {
	logger := ctxlog.FromContext(ctx).With("file", filename)
	logger.Debug("HCL loader started.")

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, flowerr.WrapValidation(diags, "failed to parse HCL file", filename)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return nil, flowerr.WrapValidation(diags, "failed to decode HCL file", filename)
	}

	f := &flow.Flow{
		Workspace: workspace,
		Volumes:   make(map[string]*flow.Volume, len(root.Volumes)),
		Images:    make(map[string]*flow.Image, len(root.Images)),
	}
	switch {
	case root.Kind != nil:
		f.Kind = flow.Kind(*root.Kind)
	case len(root.Batches) > 0:
		f.Kind = flow.KindBatch
	default:
		f.Kind = flow.KindLive
	}
	f.ID = flow.DefaultID(f.Kind, workspace, filename)
	if root.ID != nil {
		f.ID = *root.ID
	}
	if root.Title != nil {
		f.Title = *root.Title
	}

	d := &decoder{}
	for _, v := range root.Volumes {
		if _, dup := f.Volumes[v.ID]; dup {
			return nil, flowerr.Validation("duplicate volume", v.ID)
		}
		if err := required(v.Remote, "remote", v.Mount, "mount"); err != nil {
			return nil, flowerr.WrapValidation(err, "failed to decode volume", v.ID)
		}
		f.Volumes[v.ID] = &flow.Volume{
			ID:       v.ID,
			Remote:   defined(v.Remote),
			Mount:    defined(v.Mount),
			ReadOnly: defined(v.ReadOnly),
			Local:    defined(v.Local),
		}
	}
	for _, img := range root.Images {
		if _, dup := f.Images[img.ID]; dup {
			return nil, flowerr.Validation("duplicate image", img.ID)
		}
		if err := required(img.Ref, "ref"); err != nil {
			return nil, flowerr.WrapValidation(err, "failed to decode image", img.ID)
		}
		f.Images[img.ID] = &flow.Image{
			ID:         img.ID,
			Ref:        defined(img.Ref),
			Context:    defined(img.Context),
			Dockerfile: defined(img.Dockerfile),
			BuildArgs:  d.list(img.BuildArgs),
		}
	}
	if def := root.Defaults; def != nil {
		f.Defaults = &flow.Defaults{
			Tags:     d.list(def.Tags),
			Env:      d.env(def.Env),
			Workdir:  defined(def.Workdir),
			LifeSpan: defined(def.LifeSpan),
			Preset:   defined(def.Preset),
		}
	}

	for _, j := range root.Jobs {
		if f.Jobs == nil {
			f.Jobs = make(map[string]*flow.Job, len(root.Jobs))
		}
		if _, dup := f.Jobs[j.ID]; dup {
			return nil, flowerr.Validation("duplicate job", j.ID)
		}
		attrs, err := d.attrs(j.Remain)
		if err != nil {
			return nil, flowerr.WrapValidation(err, "failed to decode job", j.ID)
		}
		f.Jobs[j.ID] = &flow.Job{
			ID:    j.ID,
			Attrs: attrs,
		}
	}

	for _, b := range root.Batches {
		attrs, err := d.attrs(b.Remain)
		if err != nil {
			return nil, flowerr.WrapValidation(err, "failed to decode batch", b.ID)
		}
		spec, err := matrixSpec(b.Matrix)
		if err != nil {
			return nil, flowerr.WrapValidation(err, "invalid matrix", b.ID)
		}
		f.Batches = append(f.Batches, &flow.Batch{
			ID:     b.ID,
			Named:  true,
			Attrs:  attrs,
			Needs:  b.Needs,
			Enable: defined(b.Enable),
			Matrix: spec,
		})
	}

	if d.err != nil {
		return nil, flowerr.WrapValidation(d.err, "invalid expression", filename)
	}
	if err := f.Validate(); err != nil {
		return nil, flowerr.WrapValidation(err, "invalid flow", filename)
	}

	logger.Debug("HCL loading complete.", "flow", f.ID, "kind", f.Kind,
		"jobs", len(f.Jobs), "batches", len(f.Batches))
	return f, nil
}

// defined returns nil for the zero-width placeholders gohcl leaves in
// omitted optional attributes.
func defined(e hcl.Expression) hcl.Expression {
	if e == nil {
		return nil
	}
	rng := e.Range()
	if rng.End.Byte <= rng.Start.Byte {
		return nil
	}
	return e
}

// required takes expression and name pairs and fails on the first
// expression that was left out. gohcl treats every hcl.Expression field as
// optional.
func required(pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		e, _ := pairs[i].(hcl.Expression)
		if defined(e) == nil {
			return fmt.Errorf("missing required attribute %q", pairs[i+1])
		}
	}
	return nil
}

// decoder splits collection expressions into their items, keeping the first
// error.
type decoder struct {
	err error
}

// list splits a tuple constructor into its items. Any other expression is
// kept whole; it is flattened when evaluated.
func (d *decoder) list(e hcl.Expression) []hcl.Expression {
	e = defined(e)
	if e == nil {
		return nil
	}
	items, diags := hcl.ExprList(e)
	if diags.HasErrors() {
		return []hcl.Expression{e}
	}
	return items
}

// env splits an object constructor into keyed expressions. Keys must be
// static.
func (d *decoder) env(e hcl.Expression) map[string]hcl.Expression {
	e = defined(e)
	if e == nil || d.err != nil {
		return nil
	}
	pairs, diags := hcl.ExprMap(e)
	if diags.HasErrors() {
		d.err = diags
		return nil
	}
	out := make(map[string]hcl.Expression, len(pairs))
	for _, p := range pairs {
		key, err := staticString(p.Key)
		if err != nil {
			d.err = err
			return nil
		}
		out[key] = p.Value
	}
	return out
}

func (d *decoder) attrs(body hcl.Body) (flow.Attrs, error) {
	var a attrsBlock
	if diags := gohcl.DecodeBody(body, nil, &a); diags.HasErrors() {
		return flow.Attrs{}, diags
	}
	if err := required(a.Image, "image"); err != nil {
		return flow.Attrs{}, err
	}
	out := flow.Attrs{
		Title:      defined(a.Title),
		Name:       defined(a.Name),
		Image:      defined(a.Image),
		Preset:     defined(a.Preset),
		Entrypoint: defined(a.Entrypoint),
		Cmd:        defined(a.Cmd),
		Workdir:    defined(a.Workdir),
		LifeSpan:   defined(a.LifeSpan),
		HTTPPort:   defined(a.HTTPPort),
		HTTPAuth:   defined(a.HTTPAuth),
		Env:        d.env(a.Env),
		Volumes:    d.list(a.Volumes),
		Tags:       d.list(a.Tags),

		PortForward: d.list(a.PortForward),
		Detach:      defined(a.Detach),
		Browse:      defined(a.Browse),
	}
	bash, python := defined(a.Bash), defined(a.Python)
	set := 0
	for _, e := range []hcl.Expression{out.Cmd, bash, python} {
		if e != nil {
			set++
		}
	}
	if set > 1 {
		return flow.Attrs{}, fmt.Errorf("only one of cmd, bash and python may be set")
	}
	switch {
	case bash != nil:
		out.Cmd = bash
		out.CmdMode = flow.CmdBash
	case python != nil:
		out.Cmd = python
		out.CmdMode = flow.CmdPython
	}
	return out, nil
}

// matrixSpec reads the variables of a matrix block in source order. The
// exclude and include attributes must be static lists of objects.
func matrixSpec(m *matrixBlock) (*matrix.Spec, error) {
	if m == nil {
		return nil, nil
	}
	attrs, diags := m.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		ordered = append(ordered, a)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].NameRange.Start.Byte < ordered[j].NameRange.Start.Byte
	})

	spec := &matrix.Spec{}
	for _, a := range ordered {
		v, diags := a.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		switch a.Name {
		case "exclude", "include":
			combos, err := combinations(a.Name, v)
			if err != nil {
				return nil, err
			}
			if a.Name == "exclude" {
				spec.Exclude = combos
			} else {
				spec.Include = combos
			}
		default:
			values, err := stringItems(v)
			if err != nil {
				return nil, fmt.Errorf("%s: matrix variable %q: %w", a.NameRange, a.Name, err)
			}
			spec.Vars = append(spec.Vars, matrix.Var{Name: a.Name, Values: values})
		}
	}
	return spec, nil
}

func combinations(name string, v cty.Value) ([]map[string]string, error) {
	if !v.CanIterateElements() || v.Type().IsObjectType() || v.Type().IsMapType() {
		return nil, fmt.Errorf("matrix %s must be a list", name)
	}
	var out []map[string]string
	for it := v.ElementIterator(); it.Next(); {
		_, item := it.Element()
		if !item.Type().IsObjectType() && !item.Type().IsMapType() {
			return nil, fmt.Errorf("matrix %s entry must be an object", name)
		}
		combo := map[string]string{}
		for k, val := range item.AsValueMap() {
			s, err := toString(val)
			if err != nil {
				return nil, fmt.Errorf("matrix %s entry %q: %w", name, k, err)
			}
			combo[k] = s
		}
		out = append(out, combo)
	}
	return out, nil
}

func stringItems(v cty.Value) ([]string, error) {
	if v.IsNull() || !v.CanIterateElements() || v.Type().IsObjectType() || v.Type().IsMapType() {
		return nil, fmt.Errorf("must be a list")
	}
	var out []string
	for it := v.ElementIterator(); it.Next(); {
		_, item := it.Element()
		s, err := toString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func staticString(e hcl.Expression) (string, error) {
	if kw := hcl.ExprAsKeyword(e); kw != "" {
		return kw, nil
	}
	v, diags := e.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	return toString(v)
}

func toString(v cty.Value) (string, error) {
	if v.IsNull() || !v.IsKnown() {
		return "", fmt.Errorf("value must be a known string")
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}
