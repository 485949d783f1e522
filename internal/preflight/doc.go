// Package preflight checks that the configured inputs and output locations
// are usable before a run starts.
//
// The run command calls RunAll and refuses to start when any check fails, so
// an unreadable roster or read-only output directory surfaces immediately
// instead of after every scan has been parsed. "iclink config validate"
// prints the same results.
package preflight
