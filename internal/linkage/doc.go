// Package linkage runs the scan-to-roster pipeline.
//
// A Pipeline is built around a roster index that is loaded once and shared
// read-only. Run sorts scan files by name, extracts and matches them on a
// bounded errgroup, then merges the per-file results in filename order into
// the training, matched, unmatched, and failed tables.
package linkage
