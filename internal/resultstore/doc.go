// Package resultstore keeps the outcome of finished batches for the caller
// that drives a pipeline.
//
// The core never runs anything: an executor outside this module starts
// batches and reports their results. The store records which real ids have
// started and the DepCtx each finished one produced, so that the scheduler
// can compute what is ready and the pipeline context can bind the next batch
// with its needs.
//
// # Concurrency Model
//
// Results are written by whichever goroutine observes a batch finishing and
// read by the scheduling loop. Each real id is written at most once, so the
// store uses sync.Map keyed by real id rather than a global lock.
package resultstore
