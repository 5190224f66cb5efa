// Package flow defines the format-agnostic, in-memory workflow definition
// (the Flow) together with the Loader interface implemented by the concrete
// configuration formats.
//
// A Flow is produced once by a loader and is read-only afterwards. Every
// attribute that may carry an expression is stored as an hcl.Expression so the
// resolution packages evaluate HCL-native and YAML-template configurations
// through one code path. A nil expression means the attribute was not declared.
//
// Two kinds of flows exist:
//
//	live   interactive jobs, keyed by job id
//	batch  a pipeline of batches, kept in declared order, connected by needs
//	       and optionally multiplied by a matrix
package flow
