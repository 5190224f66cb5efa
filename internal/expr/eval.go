package expr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Value evaluates e. The boolean is false when e is nil or evaluates to null,
// meaning the attribute is absent.
func Value(e hcl.Expression, s Scope) (cty.Value, bool, error) {
	if e == nil {
		return cty.NilVal, false, nil
	}
	v, diags := e.Value(s.EvalContext())
	if diags.HasErrors() {
		return cty.NilVal, false, diags
	}
	if v.IsNull() {
		return cty.NilVal, false, nil
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, false, fmt.Errorf("%s: value is not known", rangeOf(e))
	}
	v, _ = v.Unmark()
	return v, true, nil
}

// String evaluates e as an optional string.
func String(e hcl.Expression, s Scope) (*string, error) {
	v, ok, err := Value(e, s)
	if err != nil || !ok {
		return nil, err
	}
	str, err := asString(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rangeOf(e), err)
	}
	return &str, nil
}

// RequiredString evaluates e as a string that must be present. The name is
// used in the error message.
func RequiredString(e hcl.Expression, s Scope, name string) (string, error) {
	str, err := String(e, s)
	if err != nil {
		return "", err
	}
	if str == nil {
		return "", fmt.Errorf("attribute %q is required", name)
	}
	return *str, nil
}

// Bool evaluates e as an optional bool. Strings accept the forms understood
// by strconv.ParseBool ("true", "True", "1", ...).
func Bool(e hcl.Expression, s Scope) (*bool, error) {
	v, ok, err := Value(e, s)
	if err != nil || !ok {
		return nil, err
	}
	if v.Type() == cty.String {
		b, perr := strconv.ParseBool(strings.TrimSpace(v.AsString()))
		if perr != nil {
			return nil, fmt.Errorf("%s: %q is not a boolean", rangeOf(e), v.AsString())
		}
		return &b, nil
	}
	cv, cerr := convert.Convert(v, cty.Bool)
	if cerr != nil {
		return nil, fmt.Errorf("%s: %w", rangeOf(e), cerr)
	}
	b := cv.True()
	return &b, nil
}

// Int evaluates e as an optional integer.
func Int(e hcl.Expression, s Scope) (*int, error) {
	v, ok, err := Value(e, s)
	if err != nil || !ok {
		return nil, err
	}
	if v.Type() == cty.String {
		v = cty.StringVal(strings.TrimSpace(v.AsString()))
	}
	cv, cerr := convert.Convert(v, cty.Number)
	if cerr != nil {
		return nil, fmt.Errorf("%s: not an integer: %w", rangeOf(e), cerr)
	}
	var n int
	if err := gocty.FromCtyValue(cv, &n); err != nil {
		return nil, fmt.Errorf("%s: not an integer: %w", rangeOf(e), err)
	}
	return &n, nil
}

// LifeSpan evaluates e as an optional duration in seconds. Numbers are taken
// as seconds; strings may also use the "1d4h30m15s" form.
func LifeSpan(e hcl.Expression, s Scope) (*float64, error) {
	v, ok, err := Value(e, s)
	if err != nil || !ok {
		return nil, err
	}
	if v.Type() == cty.Number {
		f, _ := v.AsBigFloat().Float64()
		f, err := checkLifeSpan(v.AsBigFloat().String(), f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rangeOf(e), err)
		}
		return &f, nil
	}
	str, err := asString(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rangeOf(e), err)
	}
	f, err := ParseLifeSpan(str)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rangeOf(e), err)
	}
	return &f, nil
}

// StringList evaluates each element of items. An element evaluating to a
// list, tuple or set contributes all of its elements; null elements are
// dropped.
func StringList(items []hcl.Expression, s Scope) ([]string, error) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		v, ok, err := Value(item, s)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if v.Type().IsListType() || v.Type().IsTupleType() || v.Type().IsSetType() {
			for it := v.ElementIterator(); it.Next(); {
				_, elem := it.Element()
				if elem.IsNull() {
					continue
				}
				str, err := asString(elem)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", rangeOf(item), err)
				}
				out = append(out, str)
			}
			continue
		}
		str, err := asString(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rangeOf(item), err)
		}
		out = append(out, str)
	}
	return out, nil
}

// StringMap evaluates every value of m. Null values are dropped.
func StringMap(m map[string]hcl.Expression, s Scope) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, e := range m {
		str, err := String(e, s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		if str != nil {
			out[k] = *str
		}
	}
	return out, nil
}

func asString(v cty.Value) (string, error) {
	cv, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("expected a string, got %s", v.Type().FriendlyName())
	}
	return cv.AsString(), nil
}

func rangeOf(e hcl.Expression) string {
	r := e.Range()
	if r.Filename == "" {
		return "expression"
	}
	return r.String()
}

var portPairRe = regexp.MustCompile(`^\d+:\d+$`)

// PortPairs evaluates items as a list of LOCAL:REMOTE port pairs.
func PortPairs(items []hcl.Expression, s Scope) ([]string, error) {
	pairs, err := StringList(items, s)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if !portPairRe.MatchString(p) {
			return nil, fmt.Errorf("%q is not a LOCAL:REMOTE ports pair", p)
		}
	}
	return pairs, nil
}
