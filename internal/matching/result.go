package matching

import (
	"fmt"
	"strings"

	"iclink/internal/identity"
	"iclink/internal/roster"
)

// Strategy names the cascade step that produced a match.
type Strategy string

const (
	StrategyExact          Strategy = "exact"
	StrategyNameDOB        Strategy = "name_dob_only"
	StrategyFuzzyName      Strategy = "fuzzy_name"
	StrategyFuzzyDOB       Strategy = "fuzzy_dob"
	StrategyPartialSurname Strategy = "partial_surname"
	StrategyNone           Strategy = "none"
)

// Strategies returns every strategy in cascade order, ending with none.
func Strategies() []Strategy {
	return []Strategy{
		StrategyExact,
		StrategyNameDOB,
		StrategyFuzzyName,
		StrategyFuzzyDOB,
		StrategyPartialSurname,
		StrategyNone,
	}
}

// ExactMatchNote is reported when neither DOB nor eye disagree.
const ExactMatchNote = "Exact match"

// Result is the outcome of one Match call. Entry is nil when Strategy is
// StrategyNone.
type Result struct {
	Entry    *roster.Entry
	Key      roster.MatchKey
	Strategy Strategy
	Score    float64
	// DOB and Eye are the scan's normalized values used for matching.
	DOB   string
	Eye   identity.Eye
	Notes []string
}

// Matched reports whether an entry was found.
func (r Result) Matched() bool {
	return r.Entry != nil && r.Strategy != StrategyNone
}

// EyeMismatch reports whether the matched key belongs to the other eye.
func (r Result) EyeMismatch() bool {
	return r.Matched() && r.Key.Eye != r.Eye
}

// Note joins Notes, or returns ExactMatchNote when there are none.
func (r Result) Note() string {
	if !r.Matched() {
		return ""
	}
	if len(r.Notes) == 0 {
		return ExactMatchNote
	}
	return strings.Join(r.Notes, "; ")
}

func (r *Result) annotate() {
	if !r.Matched() {
		return
	}
	if r.Key.DOB != r.DOB {
		r.Notes = append(r.Notes, fmt.Sprintf("DOB mismatch (scan: %s, roster: %s)", r.DOB, r.Key.DOB))
	}
	if r.Key.Eye != r.Eye {
		r.Notes = append(r.Notes, fmt.Sprintf("Eye mismatch (roster: %s)", r.Key.Eye))
	}
}
