package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"iclink/internal/audit"
	"iclink/internal/fileutil"
	"iclink/internal/linkage"
)

// WriteRun writes the training, matched, unmatched, and failed tables.
func (w *Workspace) WriteRun(r *linkage.Result) error {
	tables := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{TrainingFile, TrainingColumns(), TrainingRows(r)},
		{MatchedFile, MatchedColumns(), MatchedRows(r)},
		{UnmatchedFile, UnmatchedColumns(), UnmatchedRows(r)},
		{FailedFile, FailedColumns(), FailedRows(r)},
	}
	for _, t := range tables {
		if err := WriteCSV(w.Path(t.name), t.header, t.rows); err != nil {
			return err
		}
	}
	return nil
}

// GateSummary is the JSON form of a gate verdict.
type GateSummary struct {
	Gate     string         `json:"gate"`
	Passed   bool           `json:"passed"`
	Findings map[string]int `json:"findings"`
	Error    string         `json:"error,omitempty"`
}

// AuditSummary is written to audit_summary.json.
type AuditSummary struct {
	GeneratedAt      time.Time          `json:"generated_at"`
	RunID            string             `json:"run_id,omitempty"`
	Sources          int                `json:"sources"`
	RequiredFeatures []string           `json:"required_features"`
	Tables           map[string]int     `json:"tables"`
	Trainable        audit.Trainability `json:"trainable"`
	Gates            []GateSummary      `json:"gates"`
}

// Summarize builds the JSON summary for report and verdicts.
func Summarize(runID string, report *audit.Report, verdicts []audit.Verdict) AuditSummary {
	s := AuditSummary{
		GeneratedAt:      report.GeneratedAt,
		RunID:            runID,
		Sources:          report.Sources,
		RequiredFeatures: append([]string{}, report.RequiredFeatures...),
		Tables:           report.Counts(),
		Trainable:        report.Trainable,
		Gates:            make([]GateSummary, 0, len(verdicts)),
	}
	for _, v := range verdicts {
		g := GateSummary{Gate: v.Gate, Passed: v.Passed, Findings: v.Findings}
		if v.Err != nil {
			g.Error = v.Err.Error()
		}
		s.Gates = append(s.Gates, g)
	}
	return s
}

// WriteAudit writes one CSV per report table and the JSON summary.
func (w *Workspace) WriteAudit(runID string, report *audit.Report, verdicts []audit.Verdict) error {
	for _, t := range report.Tables {
		path := filepath.Join(w.AuditDir(), t.Name+".csv")
		if err := WriteCSV(path, t.Columns, t.Rows); err != nil {
			return err
		}
	}
	summary := Summarize(runID, report, verdicts)
	return fileutil.WriteFileAtomic(filepath.Join(w.AuditDir(), AuditSummaryFile), func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("encode audit summary: %w", err)
		}
		return nil
	})
}

// WriteCSV atomically writes header and rows to path.
func WriteCSV(path string, header []string, rows [][]string) error {
	err := fileutil.WriteFileAtomic(path, func(out io.Writer) error {
		cw := csv.NewWriter(out)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return cw.Error()
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
