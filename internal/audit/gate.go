package audit

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGateFailed marks a gate verdict that must halt consumption of the run.
var ErrGateFailed = errors.New("audit gate failed")

// Gate names.
const (
	GatePreMatch       = "pre_match"
	GatePostExtraction = "post_extraction"
)

// Verdict is a gate decision. Err is nil when Passed and wraps ErrGateFailed
// otherwise.
type Verdict struct {
	Gate     string
	Passed   bool
	Findings map[string]int
	Err      error
}

// PreMatchGate fails on any missing ID, nonstandard filename, or duplicate ID.
func PreMatchGate(r *Report) Verdict {
	return evaluate(GatePreMatch, r, map[string]int{
		TableMissingIDs:           0,
		TableNonstandardFilenames: 0,
		TableDuplicateIDs:         0,
	})
}

// PostExtractionGate fails when incomplete feature rows exceed maxIncomplete.
func PostExtractionGate(r *Report, maxIncomplete int) Verdict {
	if maxIncomplete < 0 {
		maxIncomplete = 0
	}
	return evaluate(GatePostExtraction, r, map[string]int{
		TableIncompleteFeatures: maxIncomplete,
	})
}

func evaluate(gate string, r *Report, limits map[string]int) Verdict {
	v := Verdict{Gate: gate, Passed: true, Findings: make(map[string]int, len(limits))}
	var reasons []string
	for _, name := range TableNames() {
		limit, ok := limits[name]
		if !ok {
			continue
		}
		rows := r.Table(name).Len()
		v.Findings[name] = rows
		if rows > limit {
			v.Passed = false
			reasons = append(reasons, fmt.Sprintf("%s=%d", name, rows))
		}
	}
	if !v.Passed {
		v.Err = fmt.Errorf("%w: %s: %s", ErrGateFailed, gate, strings.Join(reasons, ", "))
	}
	return v
}

// Gates evaluates both gates.
func Gates(r *Report, maxIncomplete int) []Verdict {
	return []Verdict{PreMatchGate(r), PostExtractionGate(r, maxIncomplete)}
}

// FirstFailure returns the first failing verdict's error.
func FirstFailure(verdicts []Verdict) error {
	for _, v := range verdicts {
		if v.Err != nil {
			return v.Err
		}
	}
	return nil
}
