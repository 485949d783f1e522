package preflight

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"iclink/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check applicable to cfg. The ledger check is skipped
// when the ledger is disabled.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryReadable("Scan directory", cfg.Paths.ScanDir),
		CheckFileReadable("Roster", cfg.Paths.RosterFile),
		CheckDirectoryWritable("Output directory", cfg.Paths.OutputDir),
	}
	if cfg.Paths.LedgerPath != "" {
		results = append(results, CheckDirectoryWritable("Ledger directory", filepath.Dir(cfg.Paths.LedgerPath)))
	}
	return results
}

// Failed joins the failing results into one error, or returns nil.
func Failed(results []Result) error {
	var details []string
	for _, r := range results {
		if !r.Passed {
			details = append(details, r.Name+": "+r.Detail)
		}
	}
	if len(details) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(details, "; "))
}

// ErrNotConfigured marks a check whose path is empty.
var ErrNotConfigured = errors.New("path not configured")
