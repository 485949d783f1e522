package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Decision outcomes.
const (
	OutcomeMatched   = "matched"
	OutcomeUnmatched = "unmatched"
	OutcomeFailed    = "failed"
)

// Run is one recorded pipeline run.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	ScanDir     string
	RosterFile  string
	OutputDir   string
	Scans       int
	Training    int
	Unmatched   int
	Failed      int
	Trainable   int
	GatesPassed bool
	GateError   string
}

// Decision is the recorded result for one scan file.
type Decision struct {
	File       string
	Outcome    string
	Strategy   string
	Score      float64
	RosterLine int
	Note       string
	Reason     string
	Warnings   int
}

// Entry is everything recorded for a run.
type Entry struct {
	Run         Run
	Decisions   []Decision
	AuditCounts map[string]int
}

const runColumns = "id, started_at, finished_at, scan_dir, roster_file, output_dir, scans, training, unmatched, failed, trainable, gates_passed, gate_error"

// RecordRun stores entry in one transaction. Recording the same run ID twice
// is an error.
func (s *Store) RecordRun(ctx context.Context, entry Entry) error {
	if entry.Run.ID == "" {
		return errors.New("ledger: run id is required")
	}
	return withBusyRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin run tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		r := entry.Run
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO runs ("+runColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			r.ID, formatTime(r.StartedAt), formatTime(r.FinishedAt), r.ScanDir, r.RosterFile, r.OutputDir,
			r.Scans, r.Training, r.Unmatched, r.Failed, r.Trainable, boolToInt(r.GatesPassed), r.GateError,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO decisions (run_id, file, outcome, strategy, score, roster_line, note, reason, warnings) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("prepare decision insert: %w", err)
		}
		defer stmt.Close()
		for _, d := range entry.Decisions {
			if _, err := stmt.ExecContext(ctx, r.ID, d.File, d.Outcome, d.Strategy, d.Score, d.RosterLine, d.Note, d.Reason, d.Warnings); err != nil {
				return fmt.Errorf("insert decision %s: %w", d.File, err)
			}
		}

		tables := make([]string, 0, len(entry.AuditCounts))
		for name := range entry.AuditCounts {
			tables = append(tables, name)
		}
		sort.Strings(tables)
		for _, name := range tables {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO audit_counts (run_id, table_name, rows) VALUES (?, ?, ?)",
				r.ID, name, entry.AuditCounts[name],
			); err != nil {
				return fmt.Errorf("insert audit count %s: %w", name, err)
			}
		}
		return tx.Commit()
	})
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose ID equals or starts with id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\\' ORDER BY id LIMIT 2",
		id, escapeLike(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
	}
}

// Decisions returns the decisions of run id ordered by file.
func (s *Store) Decisions(ctx context.Context, id string) ([]Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT file, outcome, strategy, score, roster_line, note, reason, warnings FROM decisions WHERE run_id = ? ORDER BY file", id)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.File, &d.Outcome, &d.Strategy, &d.Score, &d.RosterLine, &d.Note, &d.Reason, &d.Warnings); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// StrategyCounts tallies matched decisions by strategy for run id. Unmatched
// and failed decisions are counted under their outcome.
func (s *Store) StrategyCounts(ctx context.Context, id string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT CASE WHEN outcome = ? THEN strategy ELSE outcome END AS bucket, COUNT(1) FROM decisions WHERE run_id = ? GROUP BY bucket",
		OutcomeMatched, id)
	if err != nil {
		return nil, fmt.Errorf("count strategies: %w", err)
	}
	return scanCounts(rows)
}

// AuditCounts returns the audit table row counts recorded for run id.
func (s *Store) AuditCounts(ctx context.Context, id string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT table_name, rows FROM audit_counts WHERE run_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("read audit counts: %w", err)
	}
	return scanCounts(rows)
}

func scanCounts(rows *sql.Rows) (map[string]int, error) {
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[key] = count
	}
	return out, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run               Run
		started, finished string
		gatesPassed       int
	)
	if err := scanner.Scan(
		&run.ID, &started, &finished, &run.ScanDir, &run.RosterFile, &run.OutputDir,
		&run.Scans, &run.Training, &run.Unmatched, &run.Failed, &run.Trainable, &gatesPassed, &run.GateError,
	); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.GatesPassed = gatesPassed != 0
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
