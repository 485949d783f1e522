package config

import (
	"fmt"
	"os"
	"strings"

	"iclink/internal/features"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMatching()
	c.normalizeExtraction()
	c.normalizeRanges()
	c.normalizeRoster()
	c.normalizeAudit()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("ICLINK_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.ScanDir, err = expandPath(strings.TrimSpace(c.Paths.ScanDir)); err != nil {
		return fmt.Errorf("paths.scan_dir: %w", err)
	}
	if c.Paths.RosterFile, err = expandPath(strings.TrimSpace(c.Paths.RosterFile)); err != nil {
		return fmt.Errorf("paths.roster_file: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LedgerPath, err = expandPath(strings.TrimSpace(c.Paths.LedgerPath)); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMatching() {
	c.Matching.Suffixes = dedupeTrimmed(c.Matching.Suffixes)

	groups := make([][]string, 0, len(c.Matching.Spellings))
	for _, group := range c.Matching.Spellings {
		cleaned := dedupeTrimmed(group)
		if len(cleaned) < 2 {
			continue
		}
		groups = append(groups, cleaned)
	}
	c.Matching.Spellings = groups
}

func (c *Config) normalizeExtraction() {
	c.Extraction.PatientSection = strings.TrimSpace(c.Extraction.PatientSection)
	c.Extraction.TestSectionMarker = strings.TrimSpace(c.Extraction.TestSectionMarker)
	if c.Extraction.Concurrency <= 0 {
		c.Extraction.Concurrency = defaultConcurrency
	}
	// Key strings are matched exactly, so only surrounding whitespace on the
	// feature names is trimmed.
	c.Extraction.TestKeys = trimFeatureNames(c.Extraction.TestKeys)
	c.Extraction.Keys = trimFeatureNames(c.Extraction.Keys)

	// A built-in mapping only applies to features mapped in neither table.
	layout := features.DefaultLayout()
	fillUnmapped(c.Extraction.TestKeys, layout.TestKeys, c.Extraction.Keys)
	fillUnmapped(c.Extraction.Keys, layout.Keys, c.Extraction.TestKeys)
}

func (c *Config) normalizeRanges() {
	if c.Ranges == nil {
		c.Ranges = make(map[string]Range)
	}
	for name, r := range defaultRanges() {
		if _, ok := c.Ranges[name]; !ok {
			c.Ranges[name] = r
		}
	}
}

func (c *Config) normalizeRoster() {
	defaults := Default().Roster
	fill := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	fill(&c.Roster.NameColumn, defaults.NameColumn)
	fill(&c.Roster.DOBColumn, defaults.DOBColumn)
	fill(&c.Roster.EyeColumn, defaults.EyeColumn)
	fill(&c.Roster.SphereColumn, defaults.SphereColumn)
	fill(&c.Roster.CylColumn, defaults.CylColumn)
	fill(&c.Roster.ICLPowerColumn, defaults.ICLPowerColumn)
	fill(&c.Roster.ICLSizeColumn, defaults.ICLSizeColumn)
	fill(&c.Roster.VaultColumn, defaults.VaultColumn)
	fill(&c.Roster.ExchangeColumn, defaults.ExchangeColumn)
	fill(&c.Roster.ExchangedSizeColumn, defaults.ExchangedSizeColumn)
	fill(&c.Roster.ExchangedVaultColumn, defaults.ExchangedVaultColumn)
	fill(&c.Roster.ExchangedPowerColumn, defaults.ExchangedPowerColumn)
	fill(&c.Roster.DOSColumn, defaults.DOSColumn)
	fill(&c.Roster.TargetColumn, defaults.TargetColumn)

	values := dedupeTrimmed(c.Roster.ExchangeYesValues)
	for i := range values {
		values[i] = strings.ToUpper(values[i])
	}
	if len(values) == 0 {
		values = defaults.ExchangeYesValues
	}
	c.Roster.ExchangeYesValues = values
}

func (c *Config) normalizeAudit() {
	c.Audit.RequiredFeatures = dedupeTrimmed(c.Audit.RequiredFeatures)
	if c.Audit.MaxIncomplete < 0 {
		c.Audit.MaxIncomplete = 0
	}
	if c.Audit.IDDigits == 0 {
		c.Audit.IDDigits = defaultIDDigits
	}
	ext := strings.ToLower(strings.TrimSpace(c.Audit.ScanExtension))
	if ext == "" {
		ext = defaultScanExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	c.Audit.ScanExtension = ext
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func dedupeTrimmed(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func trimFeatureNames(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for name, key := range values {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out[name] = key
	}
	return out
}

func fillUnmapped(dst, defaults, other map[string]string) {
	for name, key := range defaults {
		if _, ok := dst[name]; ok {
			continue
		}
		if _, ok := other[name]; ok {
			continue
		}
		dst[name] = key
	}
}
