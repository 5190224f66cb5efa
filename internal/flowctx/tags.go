package flowctx

import "github.com/specialistvlad/burstflow/internal/flow"

// NodeInfo identifies the node whose implicit tags are computed.
type NodeInfo struct {
	FlowID string
	Kind   flow.Kind
	// ID is the job id or the batch real id.
	ID string
}

// TagPolicy returns the implicit tags of a node given the explicit tags
// collected from the defaults and the node itself.
type TagPolicy func(n NodeInfo, explicit []string) []string

// DefaultTagPolicy adds "flow:<id>" and "batch:<real id>" (or "job:<id>") to
// nodes that have no explicit tags.
func DefaultTagPolicy(n NodeInfo, explicit []string) []string {
	if len(explicit) > 0 {
		return nil
	}
	return NodeTags(n)
}

// AlwaysTagPolicy adds the node tags regardless of explicit ones.
func AlwaysTagPolicy(n NodeInfo, _ []string) []string {
	return NodeTags(n)
}

// NoTagPolicy never adds implicit tags.
func NoTagPolicy(NodeInfo, []string) []string {
	return nil
}

// NodeTags returns the synthetic tags identifying n.
func NodeTags(n NodeInfo) []string {
	node := "job:" + n.ID
	if n.Kind == flow.KindBatch {
		node = "batch:" + n.ID
	}
	return []string{"flow:" + n.FlowID, node}
}

// Option configures context construction.
type Option func(*options)

type options struct {
	tags TagPolicy
}

// WithTagPolicy replaces DefaultTagPolicy.
func WithTagPolicy(p TagPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.tags = p
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{tags: DefaultTagPolicy}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
