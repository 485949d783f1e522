// Package export writes run and audit tables to the output directory.
//
// A Workspace holds an exclusive lock on the output directory for the
// lifetime of a run so two runs cannot interleave report files. Every table
// is written atomically and always, even when it has no rows.
package export
