// Package matrix expands a matrixed batch definition into its concrete
// instances.
//
// Expansion is the Cartesian product of the declared variables, taken in
// declared order, minus every combination that matches an exclude entry,
// followed by the include entries. The same Spec always yields the same
// instances in the same order.
package matrix

import (
	"regexp"
	"sort"
	"strings"

	"github.com/specialistvlad/burstflow/internal/flowerr"
)

// Var is one matrix variable with its candidate values in declared order.
type Var struct {
	Name   string
	Values []string
}

// Spec is a matrix specification as declared on a batch.
type Spec struct {
	Vars []Var
	// Exclude holds partial or full variable bindings to skip.
	Exclude []map[string]string
	// Include holds extra combinations appended after the product.
	Include []map[string]string
}

// Instance is one concrete node produced by the expansion.
type Instance struct {
	RealID string
	// Matrix is the variable binding of this instance. Empty when the batch
	// has no matrix.
	Matrix map[string]string
	// Multiplied is true when the base id was suffixed.
	Multiplied bool
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// ShortCode returns the id-safe form of a matrix value.
func ShortCode(value string) string {
	return unsafeChars.ReplaceAllString(value, "_")
}

// Expand produces the instances of the batch identified by baseID. A nil or
// empty spec yields a single instance named baseID.
func Expand(baseID string, spec *Spec) ([]Instance, error) {
	if spec == nil || (len(spec.Vars) == 0 && len(spec.Include) == 0) {
		return []Instance{{RealID: baseID, Matrix: map[string]string{}}}, nil
	}

	if err := validateExcludes(baseID, spec); err != nil {
		return nil, err
	}

	var combos []map[string]string
	for _, combo := range product(spec.Vars) {
		if excluded(combo, spec.Exclude) {
			continue
		}
		combos = append(combos, combo)
	}
	for _, inc := range spec.Include {
		combos = append(combos, copyBinding(inc))
	}

	multiplied := len(combos) != 1
	for _, v := range spec.Vars {
		if len(v.Values) > 1 {
			multiplied = true
		}
	}

	order := suffixOrder(spec)
	instances := make([]Instance, 0, len(combos))
	seen := make(map[string]struct{}, len(combos))
	for _, combo := range combos {
		realID := baseID
		if multiplied {
			realID = baseID + "-" + suffix(combo, order)
		}
		if _, dup := seen[realID]; dup {
			return nil, flowerr.Validation("matrix produces duplicate real id", realID)
		}
		seen[realID] = struct{}{}
		instances = append(instances, Instance{
			RealID:     realID,
			Matrix:     combo,
			Multiplied: multiplied,
		})
	}
	return instances, nil
}

// product walks the variables in declared order, the last variable varying
// fastest.
func product(vars []Var) []map[string]string {
	if len(vars) == 0 {
		return nil
	}
	combos := []map[string]string{{}}
	for _, v := range vars {
		next := make([]map[string]string, 0, len(combos)*len(v.Values))
		for _, base := range combos {
			for _, val := range v.Values {
				c := copyBinding(base)
				c[v.Name] = val
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos
}

func excluded(combo map[string]string, excludes []map[string]string) bool {
	for _, ex := range excludes {
		if len(ex) == 0 {
			continue
		}
		match := true
		for k, v := range ex {
			if combo[k] != v {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func validateExcludes(baseID string, spec *Spec) error {
	values := make(map[string]map[string]struct{}, len(spec.Vars))
	for _, v := range spec.Vars {
		set := make(map[string]struct{}, len(v.Values))
		for _, val := range v.Values {
			set[val] = struct{}{}
		}
		values[v.Name] = set
	}
	for _, ex := range spec.Exclude {
		for _, k := range sortedKeys(ex) {
			set, ok := values[k]
			if !ok {
				return flowerr.Validation("matrix exclude references unknown variable", baseID, k)
			}
			if _, ok := set[ex[k]]; !ok {
				return flowerr.Validation("matrix exclude references unknown value", baseID, k, ex[k])
			}
		}
	}
	return nil
}

// suffixOrder lists declared variables first, then include-only variables
// sorted by name.
func suffixOrder(spec *Spec) []string {
	order := make([]string, 0, len(spec.Vars))
	declared := make(map[string]struct{}, len(spec.Vars))
	for _, v := range spec.Vars {
		order = append(order, v.Name)
		declared[v.Name] = struct{}{}
	}
	extra := make(map[string]struct{})
	for _, inc := range spec.Include {
		for k := range inc {
			if _, ok := declared[k]; !ok {
				extra[k] = struct{}{}
			}
		}
	}
	return append(order, sortedKeys(extra)...)
}

func suffix(combo map[string]string, order []string) string {
	parts := make([]string, 0, len(combo))
	for _, name := range order {
		if v, ok := combo[name]; ok {
			parts = append(parts, ShortCode(v))
		}
	}
	return strings.Join(parts, "-")
}

func copyBinding(m map[string]string) map[string]string {
	c := make(map[string]string, len(m)+1)
	for k, v := range m {
		c[k] = v
	}
	return c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
