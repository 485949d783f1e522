package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains source, output, and state locations.
type Paths struct {
	ScanDir    string `toml:"scan_dir"`
	RosterFile string `toml:"roster_file"`
	OutputDir  string `toml:"output_dir"`
	LedgerPath string `toml:"ledger_path"`
	LogDir     string `toml:"log_dir"`
}

// Matching contains thresholds and lookup tables for identity resolution.
type Matching struct {
	FuzzyNameMin     float64 `toml:"fuzzy_name_min"`
	FuzzyDOBMin      float64 `toml:"fuzzy_dob_min"`
	DOBToleranceDays int     `toml:"dob_tolerance_days"`
	// YearRepair enables the leading-zero year heuristic (0187 -> 1987).
	YearRepair bool `toml:"year_repair"`
	// BlankOutcomeOnEyeMismatch drops lens size and vault when the matched
	// roster row belongs to the other eye.
	BlankOutcomeOnEyeMismatch bool     `toml:"blank_outcome_on_eye_mismatch"`
	Suffixes                  []string `toml:"suffixes"`
	// Spellings lists equivalence groups; the first entry of each group is
	// the canonical spelling.
	Spellings [][]string `toml:"spellings"`
}

// Extraction describes where values live inside a scan export.
type Extraction struct {
	PatientSection    string  `toml:"patient_section"`
	TestSectionMarker string  `toml:"test_section_marker"`
	NameKey           string  `toml:"name_key"`
	SurnameKey        string  `toml:"surname_key"`
	DOBKey            string  `toml:"dob_key"`
	EyeKey            string  `toml:"eye_key"`
	ExamDateKey       string  `toml:"exam_date_key"`
	Sentinel          float64 `toml:"sentinel"`
	Concurrency       int     `toml:"concurrency"`
	// TestKeys are read from the eye-specific test section only.
	TestKeys map[string]string `toml:"test_keys"`
	// Keys are read from the first section that carries them.
	Keys map[string]string `toml:"keys"`
}

// Range is an inclusive plausibility window for one feature.
type Range struct {
	Min float64 `toml:"min"`
	Max float64 `toml:"max"`
}

// Roster maps logical roster fields to spreadsheet column headers.
type Roster struct {
	NameColumn           string   `toml:"name_column"`
	DOBColumn            string   `toml:"dob_column"`
	EyeColumn            string   `toml:"eye_column"`
	SphereColumn         string   `toml:"sphere_column"`
	CylColumn            string   `toml:"cyl_column"`
	ICLPowerColumn       string   `toml:"icl_power_column"`
	ICLSizeColumn        string   `toml:"icl_size_column"`
	VaultColumn          string   `toml:"vault_column"`
	ExchangeColumn       string   `toml:"exchange_column"`
	ExchangedSizeColumn  string   `toml:"exchanged_size_column"`
	ExchangedVaultColumn string   `toml:"exchanged_vault_column"`
	ExchangedPowerColumn string   `toml:"exchanged_power_column"`
	DOSColumn            string   `toml:"dos_column"`
	TargetColumn         string   `toml:"target_column"`
	ExchangeYesValues    []string `toml:"exchange_yes_values"`
}

// Audit contains integrity-audit settings.
type Audit struct {
	RequiredFeatures []string `toml:"required_features"`
	// MaxIncomplete is the number of incomplete trainable rows tolerated by
	// the post-extraction gate.
	MaxIncomplete int    `toml:"max_incomplete"`
	IDDigits      int    `toml:"id_digits"`
	ScanExtension string `toml:"scan_extension"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for iclink.
//
// Configuration sections by subsystem:
//   - Paths: scan directory, roster file, output directory, ledger database
//   - Matching: similarity thresholds, DOB tolerance, spelling/suffix tables
//   - Extraction: section names and exact key strings of the scan export
//   - Ranges: clinical plausibility windows per feature
//   - Roster: column headers of the outcome roster
//   - Audit: required feature set and gate tolerances
//   - Logging: log format and level
type Config struct {
	Paths      Paths            `toml:"paths"`
	Matching   Matching         `toml:"matching"`
	Extraction Extraction       `toml:"extraction"`
	Ranges     map[string]Range `toml:"ranges"`
	Roster     Roster           `toml:"roster"`
	Audit      Audit            `toml:"audit"`
	Logging    Logging          `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigFile)
}

const defaultConfigFile = "~/.config/iclink/config.toml"

// Load reads the configuration at path, or the first of ./iclink.toml and the
// default location when path is empty, over the defaults. It returns the
// normalized config, the file it resolved to, and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := locateConfig(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		// Key tables come from the file alone so a feature can move between
		// test_keys and keys; normalize fills the rest.
		cfg.Extraction.TestKeys = nil
		cfg.Extraction.Keys = nil
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, fmt.Errorf("invalid config %s: %w", resolved, err)
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func locateConfig(path string) (string, bool, error) {
	var candidates []string
	if strings.TrimSpace(path) != "" {
		candidates = []string{path}
	} else {
		candidates = []string{"iclink.toml", defaultConfigFile}
	}

	var first string
	for _, candidate := range candidates {
		expanded, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if first == "" || candidate == defaultConfigFile {
			first = expanded
		}
		info, err := os.Stat(expanded)
		switch {
		case err == nil && !info.IsDir():
			return expanded, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return first, false, nil
}

// EnsureDirectories creates the output, log, and ledger directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.LogDir}
	if c.Paths.LedgerPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.LedgerPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequiredFeatures returns the ordered feature names a row needs to be trainable.
func (c *Config) RequiredFeatures() []string {
	out := make([]string, len(c.Audit.RequiredFeatures))
	copy(out, c.Audit.RequiredFeatures)
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}
