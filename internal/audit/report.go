package audit

import "time"

// Table names, in report order.
const (
	TableMissingIDs           = "missing_ids"
	TableNonstandardFilenames = "nonstandard_filenames"
	TableDuplicateIDs         = "duplicate_ids"
	TableUnmatchedScans       = "unmatched_scans"
	TableFailedExtractions    = "failed_extractions"
	TableMissingOutcomes      = "missing_outcomes"
	TableIncompleteFeatures   = "incomplete_features"
)

// Output table columns read by the coverage and completeness stages.
const (
	ColumnFile     = "XML_File"
	ColumnName     = "Name"
	ColumnEye      = "Eye"
	ColumnLensSize = "Lens_Size"
	ColumnVault    = "Vault"
)

// Duplicate group classifications.
const (
	GroupIdentical = "identical"
	GroupDifferent = "different"
)

// TableNames lists every table a Report carries, in order.
func TableNames() []string {
	return []string{
		TableMissingIDs,
		TableNonstandardFilenames,
		TableDuplicateIDs,
		TableUnmatchedScans,
		TableFailedExtractions,
		TableMissingOutcomes,
		TableIncompleteFeatures,
	}
}

var tableColumns = map[string][]string{
	TableMissingIDs:           {"Missing_ID", "Expected_File"},
	TableNonstandardFilenames: {ColumnFile, "Reason"},
	TableDuplicateIDs:         {"Numeric_ID", "Files", "SHA256", "GroupStatus", "Recommendation"},
	TableUnmatchedScans:       {ColumnFile},
	TableFailedExtractions:    {ColumnFile},
	TableMissingOutcomes:      {ColumnFile, ColumnName, ColumnEye, "Missing_Outcomes"},
	TableIncompleteFeatures:   {ColumnFile, ColumnName, ColumnEye, "Missing_Features"},
}

// Table is one audit finding list.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

func newTable(name string) *Table {
	return &Table{Name: name, Columns: append([]string(nil), tableColumns[name]...), Rows: [][]string{}}
}

func (t *Table) add(values ...string) {
	t.Rows = append(t.Rows, values)
}

// Len returns the number of findings.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns the values of the named column.
func (t *Table) Column(name string) []string {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			out = append(out, row[idx])
		}
	}
	return out
}

// Trainability summarizes training rows against the required feature set.
type Trainability struct {
	Rows         int `json:"rows"`
	WithFeatures int `json:"with_features"`
	WithOutcomes int `json:"with_outcomes"`
	Complete     int `json:"complete"`
	Incomplete   int `json:"incomplete"`
}

// Report is the result of one audit.
type Report struct {
	GeneratedAt      time.Time
	Sources          int
	RequiredFeatures []string
	Trainable        Trainability
	Tables           []*Table
}

func newReport(required []string) *Report {
	r := &Report{
		GeneratedAt:      time.Now().UTC(),
		RequiredFeatures: append([]string(nil), required...),
	}
	for _, name := range TableNames() {
		r.Tables = append(r.Tables, newTable(name))
	}
	return r
}

// Table returns the named table, or nil.
func (r *Report) Table(name string) *Table {
	for _, t := range r.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Counts maps table names to row counts.
func (r *Report) Counts() map[string]int {
	out := make(map[string]int, len(r.Tables))
	for _, t := range r.Tables {
		out[t.Name] = t.Len()
	}
	return out
}
