package linkage

import (
	"fmt"

	"iclink/internal/config"
	"iclink/internal/features"
	"iclink/internal/identity"
	"iclink/internal/matching"
	"iclink/internal/roster"
)

// Components bundles the configured extraction and matching services shared
// by the CLI commands.
type Components struct {
	Validator *features.Validator
	Extractor *features.Extractor
	Matcher   *matching.Matcher
	Roster    roster.Options
	Columns   roster.Columns
}

// NewComponents wires validators, normalizers, and the matcher from cfg.
func NewComponents(cfg *config.Config) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("linkage: config is required")
	}

	ranges := make(map[string]features.Range, len(cfg.Ranges))
	for name, r := range cfg.Ranges {
		ranges[name] = features.Range{Min: r.Min, Max: r.Max}
	}
	validator := features.NewValidator(ranges, cfg.Extraction.Sentinel)

	repair := identity.NoYearRepair
	if cfg.Matching.YearRepair {
		repair = identity.RepairLeadingZeroYear
	}
	dob := identity.NewDOBNormalizer(repair)
	names := identity.NewNormalizer(identity.NewSpellingTable(cfg.Matching.Spellings), cfg.Matching.Suffixes)

	ex := cfg.Extraction
	extractor, err := features.NewExtractor(features.Layout{
		PatientSection:    ex.PatientSection,
		TestSectionMarker: ex.TestSectionMarker,
		NameKey:           ex.NameKey,
		SurnameKey:        ex.SurnameKey,
		DOBKey:            ex.DOBKey,
		EyeKey:            ex.EyeKey,
		ExamDateKey:       ex.ExamDateKey,
		TestKeys:          ex.TestKeys,
		Keys:              ex.Keys,
	}, validator, dob)
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	policy := matching.Policy{
		FuzzyNameMin:     cfg.Matching.FuzzyNameMin,
		FuzzyDOBMin:      cfg.Matching.FuzzyDOBMin,
		DOBToleranceDays: cfg.Matching.DOBToleranceDays,
	}

	rc := cfg.Roster
	return &Components{
		Validator: validator,
		Extractor: extractor,
		Matcher:   matching.New(names, dob, policy),
		Roster: roster.Options{
			Names:       names,
			DOB:         dob,
			ExchangeYes: rc.ExchangeYesValues,
		},
		Columns: roster.Columns{
			Name:           rc.NameColumn,
			DOB:            rc.DOBColumn,
			Eye:            rc.EyeColumn,
			Sphere:         rc.SphereColumn,
			Cyl:            rc.CylColumn,
			ICLPower:       rc.ICLPowerColumn,
			ICLSize:        rc.ICLSizeColumn,
			Vault:          rc.VaultColumn,
			Exchange:       rc.ExchangeColumn,
			ExchangedSize:  rc.ExchangedSizeColumn,
			ExchangedVault: rc.ExchangedVaultColumn,
			ExchangedPower: rc.ExchangedPowerColumn,
			DOS:            rc.DOSColumn,
			Target:         rc.TargetColumn,
		},
	}, nil
}

// LoadIndex reads the roster CSV at path and indexes it.
func (c *Components) LoadIndex(path string) (*roster.Index, error) {
	rows, err := roster.ReadFile(path, c.Columns)
	if err != nil {
		return nil, err
	}
	return roster.Build(rows, c.Roster), nil
}
