// Package flowctx resolves a parsed flow into per-node projections.
//
// A JobContext wraps a live flow and a PipelineContext wraps a batch flow.
// Both evaluate volumes, images and defaults once at construction. Binding a
// node with WithJob or WithBatch evaluates that node's attributes, merges them
// with the defaults and returns a new context carrying the projection; the
// receiver is never modified, so contexts can be shared between goroutines.
//
// A PipelineContext also expands matrices, builds the dependency graph and
// exposes the layered execution order before any batch is bound.
package flowctx
