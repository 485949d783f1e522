// Package audit inspects the scan directory and pipeline outputs for
// structural problems and evaluates the gates that decide whether a run's
// training table may be consumed.
//
// Every stage produces one named Table. Tables are always present in a
// Report, empty or not, so gates and report writers can rely on row counts
// rather than on existence. Stages are independent: each reads the file
// system or the output records, never another stage's verdict.
package audit
