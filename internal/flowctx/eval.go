package flowctx

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/burstflow/internal/expr"
	"github.com/specialistvlad/burstflow/internal/flow"
	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// evaluator evaluates the attributes of one subject and keeps the first
// error, so callers can read many fields and check once.
type evaluator struct {
	scope   expr.Scope
	subject string
	err     error
}

func (e *evaluator) fail(field string, err error) {
	if e.err == nil && err != nil {
		e.err = flowerr.WrapValidation(err, "cannot evaluate "+field, e.subject)
	}
}

func (e *evaluator) str(field string, x hcl.Expression) *string {
	if e.err != nil {
		return nil
	}
	v, err := expr.String(x, e.scope)
	e.fail(field, err)
	return v
}

func (e *evaluator) required(field string, x hcl.Expression) string {
	if e.err != nil {
		return ""
	}
	v, err := expr.RequiredString(x, e.scope, field)
	e.fail(field, err)
	return v
}

func (e *evaluator) boolean(field string, x hcl.Expression) *bool {
	if e.err != nil {
		return nil
	}
	v, err := expr.Bool(x, e.scope)
	e.fail(field, err)
	return v
}

func (e *evaluator) flag(field string, x hcl.Expression) bool {
	b := e.boolean(field, x)
	return b != nil && *b
}

func (e *evaluator) integer(field string, x hcl.Expression) *int {
	if e.err != nil {
		return nil
	}
	v, err := expr.Int(x, e.scope)
	e.fail(field, err)
	return v
}

func (e *evaluator) lifeSpan(field string, x hcl.Expression) *float64 {
	if e.err != nil {
		return nil
	}
	v, err := expr.LifeSpan(x, e.scope)
	e.fail(field, err)
	return v
}

func (e *evaluator) list(field string, xs []hcl.Expression) []string {
	if e.err != nil {
		return nil
	}
	v, err := expr.StringList(xs, e.scope)
	e.fail(field, err)
	return v
}

func (e *evaluator) ports(field string, xs []hcl.Expression) []string {
	if e.err != nil {
		return nil
	}
	v, err := expr.PortPairs(xs, e.scope)
	e.fail(field, err)
	return v
}

func (e *evaluator) env(field string, m map[string]hcl.Expression) map[string]string {
	if e.err != nil {
		return nil
	}
	v, err := expr.StringMap(m, e.scope)
	e.fail(field, err)
	return v
}

// cmd evaluates the command and wraps it according to mode.
func (e *evaluator) cmd(x hcl.Expression, mode flow.CmdMode) *string {
	c := e.str("cmd", x)
	if c == nil {
		return nil
	}
	var wrapped string
	switch mode {
	case flow.CmdBash:
		wrapped = expr.BashCommand(*c)
	case flow.CmdPython:
		wrapped = expr.PythonCommand(*c)
	default:
		return c
	}
	return &wrapped
}

// toCty converts a struct with cty tags into an object value.
func toCty(v any) (cty.Value, error) {
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, flowerr.Internalf("cannot derive type of %T: %v", v, err)
	}
	val, err := gocty.ToCtyValue(v, ty)
	if err != nil {
		return cty.NilVal, flowerr.Internalf("cannot convert %T: %v", v, err)
	}
	return val, nil
}
