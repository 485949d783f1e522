package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Output file names.
const (
	TrainingFile     = "training_data.csv"
	MatchedFile      = "matched_patients.csv"
	UnmatchedFile    = "unmatched_scans.csv"
	FailedFile       = "failed_extractions.csv"
	AuditDirName     = "audit"
	AuditSummaryFile = "audit_summary.json"
	lockFileName     = ".iclink.lock"
)

// ErrLocked reports an output directory held by another run.
var ErrLocked = errors.New("output directory locked by another run")

// Workspace is a locked output directory.
type Workspace struct {
	dir  string
	lock *flock.Flock
}

// Open creates dir and its audit subdirectory and takes the run lock.
func Open(dir string) (*Workspace, error) {
	if dir == "" {
		return nil, errors.New("export: output directory is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, AuditDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}
	return &Workspace{dir: dir, lock: lock}, nil
}

// Dir returns the output directory.
func (w *Workspace) Dir() string { return w.dir }

// AuditDir returns the audit table directory.
func (w *Workspace) AuditDir() string { return filepath.Join(w.dir, AuditDirName) }

// Path joins name onto the output directory.
func (w *Workspace) Path(name string) string { return filepath.Join(w.dir, name) }

// Close releases the lock.
func (w *Workspace) Close() error {
	if w == nil || w.lock == nil {
		return nil
	}
	return w.lock.Unlock()
}
