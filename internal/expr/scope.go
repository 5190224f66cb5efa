package expr

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Result names the terminal status of a prerequisite as seen by expressions.
type Result string

const (
	ResultSuccess   Result = "success"
	ResultFailure   Result = "failure"
	ResultCancelled Result = "cancelled"
)

// Need is the outcome of one prerequisite, exposed as needs.<id>.
type Need struct {
	Result  Result
	Outputs map[string]string
}

// Scope is the immutable set of root names visible to expressions.
type Scope struct {
	vars      map[string]cty.Value
	needs     map[string]Need
	workspace string
}

// NewScope returns an empty scope.
func NewScope() Scope {
	return Scope{vars: map[string]cty.Value{}}
}

// With returns a copy of s where name is bound to v.
func (s Scope) With(name string, v cty.Value) Scope {
	vars := make(map[string]cty.Value, len(s.vars)+1)
	for k, val := range s.vars {
		vars[k] = val
	}
	vars[name] = v
	return Scope{vars: vars, needs: s.needs, workspace: s.workspace}
}

// WithNeeds returns a copy of s exposing needs as the `needs` root and
// enabling the success(), failure() and always() functions.
func (s Scope) WithNeeds(needs map[string]Need) Scope {
	copied := make(map[string]Need, len(needs))
	attrs := make(map[string]cty.Value, len(needs))
	for id, n := range needs {
		copied[id] = n
		attrs[id] = cty.ObjectVal(map[string]cty.Value{
			"result":  cty.StringVal(string(n.Result)),
			"outputs": StringMapVal(n.Outputs),
		})
	}
	out := s.With("needs", Object(attrs))
	out.needs = copied
	return out
}

// WithWorkspace returns a copy of s whose hash_files() reads files under
// dir.
func (s Scope) WithWorkspace(dir string) Scope {
	s.workspace = dir
	return s
}

// Names returns the bound root names, sorted.
func (s Scope) Names() []string {
	names := make([]string, 0, len(s.vars))
	for k := range s.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// EvalContext builds the HCL evaluation context for s.
func (s Scope) EvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: s.vars,
		Functions: functions(s.needs, s.workspace),
	}
}

// Object builds a cty object, tolerating an empty map.
func Object(attrs map[string]cty.Value) cty.Value {
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}

// StringMapVal builds a cty map of strings, tolerating an empty map.
func StringMapVal(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	vals := make(map[string]cty.Value, len(m))
	for k, v := range m {
		vals[k] = cty.StringVal(v)
	}
	return cty.MapVal(vals)
}

// StringListVal builds a cty list of strings, tolerating an empty slice.
func StringListVal(items []string) cty.Value {
	if len(items) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(items))
	for i, v := range items {
		vals[i] = cty.StringVal(v)
	}
	return cty.ListVal(vals)
}

// OptString converts an optional string to a cty value, null when absent.
func OptString(s *string) cty.Value {
	if s == nil {
		return cty.NullVal(cty.String)
	}
	return cty.StringVal(*s)
}
