package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"iclink/internal/fileutil"
	"iclink/internal/logging"
)

// FeatureSet supplies the features a row needs to be trainable.
type FeatureSet interface {
	RequiredFeatures() []string
}

// Features is a fixed FeatureSet.
type Features []string

// RequiredFeatures implements FeatureSet.
func (f Features) RequiredFeatures() []string { return append([]string(nil), f...) }

// Record is one output table row keyed by column header. An empty value is
// a missing value.
type Record map[string]string

// Outputs are the pipeline tables the coverage stages compare against.
type Outputs struct {
	Training []Record
	Matched  []Record
}

// Options configures filename checks.
type Options struct {
	// IDDigits is the width of a standard numeric stem.
	IDDigits int
	// Extension selects scan files, case-insensitively.
	Extension string
	// MaxMissing caps the rows listed in missing_ids.
	MaxMissing int
}

// DefaultMaxMissing bounds missing_ids when a stray high ID widens the span.
const DefaultMaxMissing = 10000

// DefaultOptions returns 8-digit ".xml" naming.
func DefaultOptions() Options {
	return Options{IDDigits: 8, Extension: ".xml", MaxMissing: DefaultMaxMissing}
}

// Auditor runs every stage over a scan directory and pipeline outputs.
type Auditor struct {
	features FeatureSet
	opts     Options
	logger   *slog.Logger
}

// New returns an Auditor. A nil features set requires nothing.
func New(features FeatureSet, opts Options, logger *slog.Logger) *Auditor {
	defaults := DefaultOptions()
	if opts.IDDigits <= 0 {
		opts.IDDigits = defaults.IDDigits
	}
	if opts.Extension == "" {
		opts.Extension = defaults.Extension
	}
	if opts.MaxMissing <= 0 {
		opts.MaxMissing = defaults.MaxMissing
	}
	if features == nil {
		features = Features(nil)
	}
	return &Auditor{features: features, opts: opts, logger: logging.NewComponentLogger(logger, "audit")}
}

// Run audits scanDir against out.
func (a *Auditor) Run(ctx context.Context, scanDir string, out Outputs) (*Report, error) {
	files, err := a.Sources(scanDir)
	if err != nil {
		return nil, err
	}
	report := newReport(a.features.RequiredFeatures())
	report.Sources = len(files)

	a.missingIDs(report.Table(TableMissingIDs), files)
	a.nonstandardFilenames(report.Table(TableNonstandardFilenames), files)
	if err := a.duplicateIDs(ctx, report.Table(TableDuplicateIDs), scanDir, files); err != nil {
		return nil, err
	}
	coverage(report.Table(TableUnmatchedScans), files, out.Matched)
	coverage(report.Table(TableFailedExtractions), files, out.Training)
	missingOutcomes(report.Table(TableMissingOutcomes), out.Training)
	report.Trainable = incompleteFeatures(report.Table(TableIncompleteFeatures), out.Training, report.RequiredFeatures)

	for _, t := range report.Tables {
		if t.Len() > 0 {
			a.logger.Info("audit finding", "table", t.Name, "rows", t.Len())
		}
	}
	a.logger.Info("audit completed",
		"sources", report.Sources,
		"trainable", report.Trainable.Complete,
		"incomplete", report.Trainable.Incomplete,
	)
	return report, nil
}

// Sources lists scan file base names in scanDir, sorted.
func (a *Auditor) Sources(scanDir string) ([]string, error) {
	entries, err := os.ReadDir(scanDir)
	if err != nil {
		return nil, fmt.Errorf("read scan directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.EqualFold(filepath.Ext(entry.Name()), a.opts.Extension) {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

func stem(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file))
}

func (a *Auditor) standard(file string) bool {
	s := stem(file)
	return len(s) == a.opts.IDDigits && leadingDigits(s) == s
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

func (a *Auditor) formatID(id uint64) string {
	return fmt.Sprintf("%0*d", a.opts.IDDigits, id)
}

// missingIDs reports gaps between the lowest and highest standard IDs, listing
// at most MaxMissing of them.
func (a *Auditor) missingIDs(t *Table, files []string) {
	present := make(map[uint64]struct{})
	var lo, hi uint64
	for _, file := range files {
		if !a.standard(file) {
			continue
		}
		id, err := strconv.ParseUint(stem(file), 10, 64)
		if err != nil {
			continue
		}
		if len(present) == 0 || id < lo {
			lo = id
		}
		if len(present) == 0 || id > hi {
			hi = id
		}
		present[id] = struct{}{}
	}
	if len(present) == 0 {
		return
	}
	total := hi - lo + 1 - uint64(len(present))
	for id := lo; id <= hi && t.Len() < a.opts.MaxMissing; id++ {
		if _, ok := present[id]; ok {
			continue
		}
		padded := a.formatID(id)
		t.add(padded, padded+a.opts.Extension)
	}
	if total > uint64(t.Len()) {
		a.logger.Warn("missing id listing truncated",
			"missing", total,
			"listed", t.Len(),
			"lowest_id", a.formatID(lo),
			"highest_id", a.formatID(hi),
		)
	}
}

func (a *Auditor) nonstandardFilenames(t *Table, files []string) {
	for _, file := range files {
		if a.standard(file) {
			continue
		}
		s := stem(file)
		var reason string
		switch digits := leadingDigits(s); {
		case digits == "":
			reason = "stem is not numeric"
		case digits != s:
			reason = fmt.Sprintf("numeric prefix %s followed by %q", digits, s[len(digits):])
		default:
			reason = fmt.Sprintf("stem has %d digits, want %d", len(s), a.opts.IDDigits)
		}
		t.add(file, reason)
	}
}

// duplicateIDs groups files by numeric prefix value and classifies groups by
// content digest. It only recommends; nothing is deleted.
func (a *Auditor) duplicateIDs(ctx context.Context, t *Table, dir string, files []string) error {
	groups := make(map[uint64][]string)
	var ids []uint64
	for _, file := range files {
		digits := leadingDigits(stem(file))
		if digits == "" {
			continue
		}
		id, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			continue
		}
		if _, ok := groups[id]; !ok {
			ids = append(ids, id)
		}
		groups[id] = append(groups[id], file)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		members := groups[id]
		if len(members) < 2 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		digests := make([]string, len(members))
		for i, file := range members {
			digest, err := fileutil.HashFile(filepath.Join(dir, file))
			if err != nil {
				return fmt.Errorf("hash duplicate candidate %s: %w", file, err)
			}
			digests[i] = digest
		}

		status := GroupIdentical
		for _, d := range digests[1:] {
			if d != digests[0] {
				status = GroupDifferent
				break
			}
		}

		recommendation := "resolve manually; contents differ"
		if status == GroupIdentical {
			keep := a.keeper(members)
			var drop []string
			for _, file := range members {
				if file != keep {
					drop = append(drop, file)
				}
			}
			recommendation = fmt.Sprintf("keep %s; delete %s", keep, strings.Join(drop, ", "))
		}
		t.add(a.formatID(id), strings.Join(members, "; "), strings.Join(digests, "; "), status, recommendation)
	}
	return nil
}

// keeper picks the standard-named member, or the first by name.
func (a *Auditor) keeper(members []string) string {
	for _, file := range members {
		if a.standard(file) {
			return file
		}
	}
	return members[0]
}

// coverage lists sources absent from rows.
func coverage(t *Table, files []string, rows []Record) {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		seen[row[ColumnFile]] = struct{}{}
	}
	for _, file := range files {
		if _, ok := seen[file]; !ok {
			t.add(file)
		}
	}
}

func missingOutcomes(t *Table, rows []Record) {
	for _, row := range rows {
		var missing []string
		for _, col := range []string{ColumnLensSize, ColumnVault} {
			if strings.TrimSpace(row[col]) == "" {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			t.add(row[ColumnFile], row[ColumnName], row[ColumnEye], strings.Join(missing, "; "))
		}
	}
}

func incompleteFeatures(t *Table, rows []Record, required []string) Trainability {
	counts := Trainability{Rows: len(rows)}
	for _, row := range rows {
		var missing []string
		for _, feature := range required {
			if strings.TrimSpace(row[feature]) == "" {
				missing = append(missing, feature)
			}
		}
		if len(missing) == 0 {
			counts.WithFeatures++
		}
		if strings.TrimSpace(row[ColumnLensSize]) == "" || strings.TrimSpace(row[ColumnVault]) == "" {
			continue
		}
		counts.WithOutcomes++
		if len(missing) == 0 {
			counts.Complete++
			continue
		}
		counts.Incomplete++
		t.add(row[ColumnFile], row[ColumnName], row[ColumnEye], strings.Join(missing, "; "))
	}
	return counts
}
