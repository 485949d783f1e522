package ledger

import (
	"iclink/internal/audit"
	"iclink/internal/linkage"
	"iclink/internal/matching"
)

// Sources names the inputs and output location of a run.
type Sources struct {
	ScanDir    string
	RosterFile string
	OutputDir  string
}

// FromRun builds the ledger entry for a finished run. report and verdicts may
// be nil when the audit did not run.
func FromRun(result *linkage.Result, report *audit.Report, verdicts []audit.Verdict, src Sources) Entry {
	entry := Entry{
		Run: Run{
			ID:          result.RunID,
			StartedAt:   result.StartedAt,
			FinishedAt:  result.FinishedAt,
			ScanDir:     src.ScanDir,
			RosterFile:  src.RosterFile,
			OutputDir:   src.OutputDir,
			Scans:       len(result.Files),
			Training:    len(result.Training),
			Unmatched:   len(result.Unmatched),
			Failed:      len(result.Failed),
			GatesPassed: true,
		},
		Decisions:   make([]Decision, 0, len(result.Files)),
		AuditCounts: map[string]int{},
	}

	for _, m := range result.Matched {
		d := Decision{
			File:     m.File,
			Outcome:  OutcomeMatched,
			Strategy: string(m.Match.Strategy),
			Score:    m.Match.Score,
			Note:     m.Match.Note(),
		}
		if m.Match.Entry != nil {
			d.RosterLine = m.Match.Entry.Line
		}
		if m.Vector != nil {
			d.Warnings = len(m.Vector.Warnings)
		}
		entry.Decisions = append(entry.Decisions, d)
	}
	for _, u := range result.Unmatched {
		d := Decision{File: u.File, Outcome: OutcomeUnmatched, Strategy: string(matching.StrategyNone)}
		if u.Record != nil {
			d.Warnings = len(u.Record.Warnings)
		}
		entry.Decisions = append(entry.Decisions, d)
	}
	for _, f := range result.Failed {
		entry.Decisions = append(entry.Decisions, Decision{File: f.File, Outcome: OutcomeFailed, Reason: f.Reason})
	}

	if report != nil {
		entry.AuditCounts = report.Counts()
		entry.Run.Trainable = report.Trainable.Complete
	}
	if err := audit.FirstFailure(verdicts); err != nil {
		entry.Run.GatesPassed = false
		entry.Run.GateError = err.Error()
	}
	return entry
}
