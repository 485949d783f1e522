package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"iclink/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The scan directory exists and is empty; the roster file does not exist.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ScanDir = filepath.Join(base, "scans")
	cfgVal.Paths.RosterFile = filepath.Join(base, "roster.csv")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LedgerPath = filepath.Join(base, "state", "ledger.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	if err := os.MkdirAll(cfgVal.Paths.ScanDir, 0o755); err != nil {
		t.Fatalf("mkdir scan dir: %v", err)
	}

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithConcurrency sets the extraction worker limit.
func WithConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Extraction.Concurrency = n
	}
}

// WithRequiredFeatures replaces the audit feature set.
func WithRequiredFeatures(features ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Audit.RequiredFeatures = append([]string(nil), features...)
	}
}

// WithoutLedger clears the ledger path.
func WithoutLedger() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.LedgerPath = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ScanDir)
}
