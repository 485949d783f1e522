package export

import (
	"strconv"
	"strings"

	"iclink/internal/audit"
	"iclink/internal/features"
	"iclink/internal/linkage"
)

// TrainingColumns lists the training table header.
func TrainingColumns() []string {
	cols := []string{audit.ColumnFile, audit.ColumnName, "DOB", audit.ColumnEye, "Exam_Date"}
	cols = append(cols, features.Columns()...)
	return append(cols, "Exchange", "Match_Strategy", "Match_Note", "validation_warnings")
}

// MatchedColumns lists the matched table header.
func MatchedColumns() []string {
	return []string{
		audit.ColumnFile, audit.ColumnName, "DOB", audit.ColumnEye,
		"Roster_Line", "Roster_Name", "Roster_DOB", "Roster_Eye",
		"Match_Strategy", "Match_Score", "Match_Note",
		"ICL_Power", "Lens_Size", "Vault", "Exchange",
		"Original_Lens_Size", "Original_Vault", "Original_ICL_Power",
		"Exchanged_Lens_Size", "Exchanged_Vault", "Exchanged_ICL_Power",
		"DOS", "Target",
	}
}

// UnmatchedColumns lists the unmatched table header.
func UnmatchedColumns() []string {
	return []string{audit.ColumnFile, audit.ColumnName, "DOB", audit.ColumnEye, "Exam_Date", "Raw_Name", "Raw_DOB"}
}

// FailedColumns lists the failed-extraction table header.
func FailedColumns() []string {
	return []string{audit.ColumnFile, "Reason"}
}

// TrainingRows renders the training table body.
func TrainingRows(r *linkage.Result) [][]string {
	rows := make([][]string, 0, len(r.Training))
	for _, v := range r.Training {
		rec := v.Record
		row := []string{rec.File, rec.Name, rec.DOB, rec.Eye.String(), rec.ExamDate}
		for _, col := range features.Columns() {
			row = append(row, formatFloat(v.Value(col)))
		}
		row = append(row, yesNo(v.Exchange), string(v.Strategy), v.MatchNote, strings.Join(v.Warnings, "; "))
		rows = append(rows, row)
	}
	return rows
}

// MatchedRows renders the matched table body.
func MatchedRows(r *linkage.Result) [][]string {
	rows := make([][]string, 0, len(r.Matched))
	for _, m := range r.Matched {
		rec, e := m.Vector.Record, m.Match.Entry
		rows = append(rows, []string{
			m.File, rec.Name, rec.DOB, rec.Eye.String(),
			strconv.Itoa(e.Line), e.Name, e.DOB, e.Eye.String(),
			string(m.Match.Strategy), strconv.FormatFloat(m.Match.Score, 'f', 4, 64), m.Match.Note(),
			e.ICLPower, e.LensSize, e.Vault, yesNo(e.Exchange),
			e.OriginalLensSize, e.OriginalVault, e.OriginalPower,
			e.ExchangedLensSize, e.ExchangedVault, e.ExchangedPower,
			e.DOS, e.Target,
		})
	}
	return rows
}

// UnmatchedRows renders the unmatched table body.
func UnmatchedRows(r *linkage.Result) [][]string {
	rows := make([][]string, 0, len(r.Unmatched))
	for _, u := range r.Unmatched {
		rec := u.Record
		rows = append(rows, []string{u.File, rec.Name, rec.DOB, rec.Eye.String(), rec.ExamDate, rec.RawName, rec.RawDOB})
	}
	return rows
}

// FailedRows renders the failed-extraction table body.
func FailedRows(r *linkage.Result) [][]string {
	rows := make([][]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		rows = append(rows, []string{f.File, f.Reason})
	}
	return rows
}

// Outputs converts a run into the records the auditor compares against.
func Outputs(r *linkage.Result) audit.Outputs {
	return audit.Outputs{
		Training: Records(TrainingColumns(), TrainingRows(r)),
		Matched:  Records(MatchedColumns(), MatchedRows(r)),
	}
}

// Records keys each row by header.
func Records(header []string, rows [][]string) []audit.Record {
	out := make([]audit.Record, 0, len(rows))
	for _, row := range rows {
		rec := make(audit.Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
