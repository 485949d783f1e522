// Package features turns a decoded scan document into a validated feature
// record and merges it with the matched roster outcome.
//
// Values are read by exact key string. Eye-specific keys come from the first
// test section naming an eye; the rest take the first non-empty value in
// document order and are never overwritten by later duplicates.
//
// Every value passes through a Validator. Sentinels and non-numeric text are
// discarded. Out-of-range numbers are withheld from training (the feature is
// nil) but kept in OutOfRange alongside a warning so they remain auditable.
package features
