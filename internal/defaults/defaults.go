// Package defaults merges flow-wide defaults with node-local attributes.
//
// Each field category has its own merge rule: scalars are overridden by the
// node, tags are a union across every scope, volumes are concatenated in
// declared order and env is overlaid key by key. Nothing here evaluates
// expressions; callers pass already evaluated values.
package defaults

import (
	"sort"
	"strings"

	"github.com/specialistvlad/burstflow/internal/flowerr"
	"github.com/specialistvlad/burstflow/internal/refs"
)

// Defaults are the evaluated flow-wide defaults.
type Defaults struct {
	Tags     []string          `json:"tags" yaml:"tags" cty:"tags"`
	Env      map[string]string `json:"env" yaml:"env" cty:"env"`
	Workdir  *string           `json:"workdir,omitempty" yaml:"workdir,omitempty" cty:"workdir"`
	LifeSpan *float64          `json:"life_span,omitempty" yaml:"life_span,omitempty" cty:"life_span"`
	Preset   *string           `json:"preset,omitempty" yaml:"preset,omitempty" cty:"preset"`
}

// Local holds the evaluated node-local values of the defaultable fields.
type Local struct {
	Tags     []string
	Env      map[string]string
	Workdir  *string
	LifeSpan *float64
	Preset   *string
	// Volumes are references: either literal refs ("storage:dir:/var:ro")
	// or ids of declared volumes.
	Volumes []string
}

// Resolved is the outcome of merging Defaults and Local.
type Resolved struct {
	Tags     []string
	Env      map[string]string
	Workdir  *string
	LifeSpan *float64
	Preset   *string
	Volumes  []string
}

// Resolve merges d and l. The implicit tags join the union. Volume references
// are checked against vols.
func Resolve(d Defaults, l Local, implicit []string, vols map[string]refs.Volume) (Resolved, error) {
	volumes, err := ResolveVolumes(l.Volumes, vols)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{
		Tags:     Union(implicit, d.Tags, l.Tags),
		Env:      MergeEnv(d.Env, l.Env),
		Workdir:  Scalar(l.Workdir, d.Workdir),
		LifeSpan: Scalar(l.LifeSpan, d.LifeSpan),
		Preset:   Scalar(l.Preset, d.Preset),
		Volumes:  volumes,
	}, nil
}

// Scalar returns the first non-nil value, or nil.
func Scalar[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// Union returns the sorted set of all tags.
func Union(sets ...[]string) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, t := range set {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MergeEnv overlays local on base. Local wins on key collision.
func MergeEnv(base, local map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(local))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range local {
		out[k] = v
	}
	return out
}

// ResolveVolumes turns volume references into ref strings, keeping order and
// duplicates. A reference containing ":" is already a ref; anything else must
// be a declared volume id.
func ResolveVolumes(references []string, vols map[string]refs.Volume) ([]string, error) {
	out := make([]string, 0, len(references))
	for _, r := range references {
		if strings.Contains(r, ":") {
			out = append(out, r)
			continue
		}
		v, ok := vols[r]
		if !ok {
			return nil, flowerr.Validation("undeclared volume", r)
		}
		out = append(out, v.Ref)
	}
	return out, nil
}
