package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"iclink/internal/features"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateRanges(); err != nil {
		return err
	}
	if err := c.validateAudit(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateMatching() error {
	if c.Matching.FuzzyNameMin <= 0 || c.Matching.FuzzyNameMin >= 1 {
		return errors.New("matching.fuzzy_name_min must be between 0 and 1")
	}
	if c.Matching.FuzzyDOBMin <= 0 || c.Matching.FuzzyDOBMin >= 1 {
		return errors.New("matching.fuzzy_dob_min must be between 0 and 1")
	}
	if c.Matching.DOBToleranceDays < 1 {
		return errors.New("matching.dob_tolerance_days must be positive")
	}
	seen := make(map[string]int)
	for i, group := range c.Matching.Spellings {
		for _, spelling := range group {
			key := strings.ToLower(spelling)
			if prev, ok := seen[key]; ok && prev != i {
				return fmt.Errorf("matching.spellings: %q appears in more than one group", spelling)
			}
			seen[key] = i
		}
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if c.Extraction.PatientSection == "" {
		return errors.New("extraction.patient_section must be set")
	}
	if c.Extraction.TestSectionMarker == "" {
		return errors.New("extraction.test_section_marker must be set")
	}
	for name, value := range map[string]string{
		"extraction.name_key":      c.Extraction.NameKey,
		"extraction.surname_key":   c.Extraction.SurnameKey,
		"extraction.dob_key":       c.Extraction.DOBKey,
		"extraction.exam_date_key": c.Extraction.ExamDateKey,
	} {
		if value == "" {
			return fmt.Errorf("%s must be set", name)
		}
	}
	for _, keys := range []map[string]string{c.Extraction.TestKeys, c.Extraction.Keys} {
		for feature, key := range keys {
			if !features.IsScanFeature(feature) {
				return fmt.Errorf("extraction feature %s is not read from scans", feature)
			}
			if key == "" {
				return fmt.Errorf("extraction key for %s must not be empty", feature)
			}
		}
	}
	for feature := range c.Extraction.TestKeys {
		if _, ok := c.Extraction.Keys[feature]; ok {
			return fmt.Errorf("extraction feature %s is mapped in both test_keys and keys", feature)
		}
	}
	return nil
}

func (c *Config) validateRanges() error {
	names := make([]string, 0, len(c.Ranges))
	for name := range c.Ranges {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := c.Ranges[name]
		if r.Min > r.Max {
			return fmt.Errorf("ranges.%s: min %.4g exceeds max %.4g", name, r.Min, r.Max)
		}
	}
	return nil
}

func (c *Config) validateAudit() error {
	if len(c.Audit.RequiredFeatures) == 0 {
		return errors.New("audit.required_features must list at least one feature")
	}
	for _, name := range c.Audit.RequiredFeatures {
		if !features.IsColumn(name) {
			return fmt.Errorf("audit.required_features: %q is not a training column", name)
		}
	}
	if c.Audit.IDDigits < 1 || c.Audit.IDDigits > 18 {
		return errors.New("audit.id_digits must be between 1 and 18")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
}
