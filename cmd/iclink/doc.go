// Package main hosts the iclink CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, then hands off to the
// internal packages: linkage for the scan/roster pipeline, export for the
// output tables, audit for the integrity checks and gates, and ledger for run
// history. Commands here only resolve inputs and render results.
package main
