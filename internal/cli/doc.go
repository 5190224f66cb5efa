// Package cli is responsible for parsing command-line arguments and
// translating them into application commands. Every flag can also be set
// through a BURSTFLOW_* environment variable.
package cli
