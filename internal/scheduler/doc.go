// Package scheduler decides which batches of a pipeline can start.
//
// # How It Works
//
// A driving loop outside this module repeats:
//  1. Ask Ready for the real ids whose needs all have a recorded result and
//     that have not started or finished.
//  2. For each, call Gate. It binds the batch with the recorded needs and
//     evaluates the acceptance policy (the batch's enable expression, or
//     success() by default).
//  3. Start the batches that pass. Record the ones that do not as cancelled,
//     so their dependents can be gated in turn.
//  4. Record results as batches finish.
//
// Nothing here performs I/O or blocks; the order comes from the pipeline
// context and the state from the Results store.
package scheduler
