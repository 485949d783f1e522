// Package ledger persists run history in SQLite.
//
// Each pipeline run is recorded with its table sizes, gate outcome, one
// decision row per scan (strategy, score, roster line, note), and the audit
// table counts, so match decisions can be compared across runs. The schema
// is applied from embedded, ordered migrations tracked in schema_migrations.
package ledger
