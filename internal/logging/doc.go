// Package logging assembles the structured slog loggers used by iclink.
//
// It owns the console and JSON handlers, level parsing, and output fan-out to
// stdout plus an optional run log file. Components tag their lines with
// NewComponentLogger; the console handler lifts the component and scan file
// into the line header. NewNop returns a discarding logger for tests.
package logging
