// Package flowyaml loads flows written in the YAML layout.
//
// String values may embed `${{ expr }}` templates. Every value is compiled
// into an hcl.Expression at load time, keeping its file position, and
// evaluated later when a context binds the node.
package flowyaml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/expr"
	"github.com/specialistvlad/burstflow/internal/flow"
	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/matrix"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Loader is the YAML implementation of flow.Loader.
type Loader struct {
	validate *validator.Validate
}

var _ flow.Loader = (*Loader)(nil)

// NewLoader creates a new YAML flow loader.
func NewLoader() *Loader {
	v := validator.New()
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierRe.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Loader{validate: v}
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

// Parse builds a flow from YAML source. The filename gives the default flow
// id and is used in diagnostics.
func (l *Loader) Parse(ctx context.Context, workspace, filename string, src []byte) (*flow.Flow, error) {
	logger := ctxlog.FromContext(ctx).With("file", filename)
	logger.Debug("YAML loader started.")

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, flowerr.Validation("empty flow file", filename)
		}
		return nil, flowerr.WrapValidation(err, "failed to decode flow file", filename)
	}
	if err := l.validate.Struct(&doc); err != nil {
		return nil, flowerr.WrapValidation(err, "invalid flow file", filename)
	}

	c := &compiler{filename: filename}
	f := &flow.Flow{
		ID:        doc.ID,
		Title:     doc.Title,
		Workspace: workspace,
		Kind:      flow.Kind(doc.Kind),
		Volumes:   make(map[string]*flow.Volume, len(doc.Volumes)),
		Images:    make(map[string]*flow.Image, len(doc.Images)),
	}
	if f.ID == "" {
		f.ID = flow.DefaultID(f.Kind, workspace, filename)
	}

	for id, v := range doc.Volumes {
		f.Volumes[id] = &flow.Volume{
			ID:       id,
			Remote:   c.expr(v.Remote),
			Mount:    c.expr(v.Mount),
			ReadOnly: c.expr(v.ReadOnly),
			Local:    c.expr(v.Local),
		}
	}
	for id, img := range doc.Images {
		f.Images[id] = &flow.Image{
			ID:         id,
			Ref:        c.expr(img.Ref),
			Context:    c.expr(img.Context),
			Dockerfile: c.expr(img.Dockerfile),
			BuildArgs:  c.list(img.BuildArgs),
		}
	}
	if d := doc.Defaults; d != nil {
		f.Defaults = &flow.Defaults{
			Tags:     c.list(d.Tags),
			Env:      c.env(d.Env),
			Workdir:  c.expr(d.Workdir),
			LifeSpan: c.expr(d.LifeSpan),
			Preset:   c.expr(d.Preset),
		}
	}

	if len(doc.Jobs) > 0 {
		f.Jobs = make(map[string]*flow.Job, len(doc.Jobs))
	}
	for id, j := range doc.Jobs {
		f.Jobs[id] = &flow.Job{
			ID:    id,
			Attrs: c.attrs(&j.Attrs),
		}
	}

	for i, b := range doc.Batches {
		spec, err := matrixSpec(b.Matrix)
		if err != nil {
			return nil, flowerr.WrapValidation(err, "invalid matrix", filename)
		}
		fb := &flow.Batch{
			ID:     b.ID,
			Named:  b.ID != "",
			Attrs:  c.attrs(&b.Attrs),
			Needs:  b.Needs,
			Enable: c.expr(b.Enable),
			Matrix: spec,
		}
		if !fb.Named {
			fb.ID = flow.AutoBatchID(i)
		}
		f.Batches = append(f.Batches, fb)
	}

	if c.err != nil {
		return nil, flowerr.WrapValidation(c.err, "invalid expression", filename)
	}
	if err := f.Validate(); err != nil {
		return nil, flowerr.WrapValidation(err, "invalid flow", filename)
	}

	logger.Debug("YAML loading complete.", "flow", f.ID, "kind", f.Kind,
		"jobs", len(f.Jobs), "batches", len(f.Batches))
	return f, nil
}

// compiler turns YAML scalars into expressions, keeping the first error.
type compiler struct {
	filename string
	err      error
}

func (c *compiler) expr(s *scalar) hcl.Expression {
	if s == nil || c.err != nil {
		return nil
	}
	n := s.node
	rng := hcl.Range{
		Filename: c.filename,
		Start:    hcl.Pos{Line: n.Line, Column: n.Column},
		End:      hcl.Pos{Line: n.Line, Column: n.Column + len(n.Value)},
	}
	switch n.ShortTag() {
	case "!!null":
		return hcl.StaticExpr(cty.NullVal(cty.DynamicPseudoType), rng)
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			c.err = err
			return nil
		}
		return hcl.StaticExpr(cty.BoolVal(b), rng)
	case "!!int", "!!float":
		v, err := cty.ParseNumberVal(n.Value)
		if err == nil {
			return hcl.StaticExpr(v, rng)
		}
		// Forms like 0x1F or .inf fall through as text.
	}
	e, err := expr.ParseTemplate(n.Value, c.filename, rng.Start)
	if err != nil {
		c.err = err
		return nil
	}
	return e
}

func (c *compiler) list(items []*scalar) []hcl.Expression {
	if len(items) == 0 {
		return nil
	}
	out := make([]hcl.Expression, 0, len(items))
	for _, it := range items {
		out = append(out, c.expr(it))
	}
	return out
}

func (c *compiler) env(m map[string]*scalar) map[string]hcl.Expression {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]hcl.Expression, len(m))
	for k, v := range m {
		out[k] = c.expr(v)
	}
	return out
}

func (c *compiler) attrs(a *attrsDoc) flow.Attrs {
	out := flow.Attrs{
		Title:      c.expr(a.Title),
		Name:       c.expr(a.Name),
		Image:      c.expr(a.Image),
		Preset:     c.expr(a.Preset),
		Entrypoint: c.expr(a.Entrypoint),
		Cmd:        c.expr(a.Cmd),
		Workdir:    c.expr(a.Workdir),
		LifeSpan:   c.expr(a.LifeSpan),
		HTTPPort:   c.expr(a.HTTPPort),
		HTTPAuth:   c.expr(a.HTTPAuth),
		Env:        c.env(a.Env),
		Volumes:    c.list(a.Volumes),
		Tags:       c.list(a.Tags),

		PortForward: c.list(a.PortForward),
		Detach:      c.expr(a.Detach),
		Browse:      c.expr(a.Browse),
	}
	switch {
	case a.Bash != nil:
		out.Cmd = c.expr(a.Bash)
		out.CmdMode = flow.CmdBash
	case a.Python != nil:
		out.Cmd = c.expr(a.Python)
		out.CmdMode = flow.CmdPython
	}
	return out
}

// matrixSpec reads variables in document order, plus the exclude and
// include lists.
func matrixSpec(m *matrixDoc) (*matrix.Spec, error) {
	if m == nil {
		return nil, nil
	}
	spec := &matrix.Spec{}
	content := m.node.Content
	for i := 0; i+1 < len(content); i += 2 {
		key, val := content[i], content[i+1]
		switch key.Value {
		case "exclude", "include":
			combos, err := combinations(key.Value, val)
			if err != nil {
				return nil, err
			}
			if key.Value == "exclude" {
				spec.Exclude = combos
			} else {
				spec.Include = combos
			}
		default:
			if val.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("line %d: matrix variable %q must be a list", val.Line, key.Value)
			}
			v := matrix.Var{Name: key.Value}
			for _, item := range val.Content {
				if item.Kind != yaml.ScalarNode {
					return nil, fmt.Errorf("line %d: matrix value must be a scalar", item.Line)
				}
				v.Values = append(v.Values, item.Value)
			}
			spec.Vars = append(spec.Vars, v)
		}
	}
	return spec, nil
}

func combinations(name string, n *yaml.Node) ([]map[string]string, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: matrix %s must be a list", n.Line, name)
	}
	out := make([]map[string]string, 0, len(n.Content))
	for _, item := range n.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: matrix %s entry must be a mapping", item.Line, name)
		}
		combo := make(map[string]string, len(item.Content)/2)
		for i := 0; i+1 < len(item.Content); i += 2 {
			k, v := item.Content[i], item.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: matrix value must be a scalar", v.Line)
			}
			combo[k.Value] = v.Value
		}
		out = append(out, combo)
	}
	return out, nil
}
