package expr

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions returns the function table. The needs-aware functions are only
// present when the scope carries needs, so using them outside a batch
// definition is an "unknown function" error. hash_files() likewise needs a
// workspace.
func functions(needs map[string]Need, workspace string) map[string]function.Function {
	fns := map[string]function.Function{
		"len":       lengthFunc,
		"keys":      stdlib.KeysFunc,
		"fmt":       stdlib.FormatFunc,
		"to_json":   stdlib.JSONEncodeFunc,
		"from_json": stdlib.JSONDecodeFunc,
		"lower":     stdlib.LowerFunc,
		"upper":     stdlib.UpperFunc,
	}
	if workspace != "" {
		fns["hash_files"] = hashFilesFunc(workspace)
	}
	if needs != nil {
		fns["success"] = resultFunc(needs, ResultSuccess, true)
		fns["failure"] = resultFunc(needs, ResultFailure, false)
		fns["always"] = function.New(&function.Spec{
			Type: function.StaticReturnType(cty.Bool),
			Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
				return cty.True, nil
			},
		})
	}
	return fns
}

// lengthFunc extends the stdlib length to objects and strings. Scope roots
// such as needs, volumes and images are objects.
var lengthFunc = function.New(&function.Spec{
	Params: []function.Parameter{{
		Name:             "value",
		Type:             cty.DynamicPseudoType,
		AllowDynamicType: true,
		AllowUnknown:     true,
	}},
	Type: function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		v := args[0]
		ty := v.Type()
		switch {
		case !v.IsKnown():
			return cty.UnknownVal(cty.Number), nil
		case v.IsNull():
			return cty.NilVal, fmt.Errorf("argument must not be null")
		case ty.IsObjectType():
			return cty.NumberIntVal(int64(len(ty.AttributeTypes()))), nil
		case ty == cty.String:
			return stdlib.Strlen(v)
		}
		return stdlib.Length(v)
	},
})

// resultFunc builds success() / failure(). Without arguments it checks every
// need; with arguments only the named ones. With all=true every checked need
// must have the wanted result, otherwise any one is enough.
func resultFunc(needs map[string]Need, want Result, all bool) function.Function {
	return function.New(&function.Spec{
		VarParam: &function.Parameter{Name: "needs", Type: cty.String},
		Type:     function.StaticReturnType(cty.Bool),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			ids := make([]string, 0, len(args))
			for _, a := range args {
				if a.IsNull() {
					return cty.NilVal, fmt.Errorf("dependency name cannot be null")
				}
				ids = append(ids, a.AsString())
			}
			if len(ids) == 0 {
				for id := range needs {
					ids = append(ids, id)
				}
			}

			matched := 0
			for _, id := range ids {
				n, ok := needs[id]
				if !ok {
					return cty.NilVal, fmt.Errorf("%q is not a dependency of this batch", id)
				}
				if n.Result == want {
					matched++
				}
			}
			if all {
				return cty.BoolVal(matched == len(ids)), nil
			}
			return cty.BoolVal(matched > 0), nil
		},
	})
}
