// Package dag holds the dependency graph of a pipeline's expanded batches.
//
// Nodes are keyed by real id and edges are kept as id sets, so the graph can
// be read concurrently once built. Build validates every dependency, rejects
// cycles and the resulting graph yields the layered execution order through
// Stages.
package dag
