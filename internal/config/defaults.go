package config

import "iclink/internal/features"

const (
	defaultScanDir          = "~/iclink/scans"
	defaultRosterFile       = "~/iclink/roster.csv"
	defaultOutputDir        = "~/iclink/output"
	defaultLedgerPath       = "~/.local/share/iclink/ledger.db"
	defaultLogDir           = "~/.local/share/iclink/logs"
	defaultFuzzyNameMin     = 0.80
	defaultFuzzyDOBMin      = 0.90
	defaultDOBToleranceDays = 7
	defaultConcurrency      = 1
	defaultIDDigits         = 8
	defaultScanExtension    = ".xml"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

func defaultRanges() map[string]Range {
	return map[string]Range{
		features.Age:             {Min: 15, Max: 70},
		features.WTW:             {Min: 10, Max: 14},
		features.ACDInternal:     {Min: 2, Max: 5},
		features.ACV:             {Min: 100, Max: 400},
		features.ACAGlobal:       {Min: 20, Max: 70},
		features.PupilDiameter:   {Min: 2, Max: 8},
		features.TCRPKm:          {Min: 35, Max: 55},
		features.TCRPAstigmatism: {Min: 0, Max: 10},
		features.ACShapeRatio:    {Min: 40, Max: 200},
		features.SEQ:             {Min: -25, Max: 5},
		features.SimKSteep:       {Min: 38, Max: 52},
		features.CCT:             {Min: 400, Max: 700},
		features.BADD:            {Min: -1, Max: 15},
		features.Vault:           {Min: 50, Max: 2000},
		features.LensSize:        {Min: 11, Max: 14},
	}
}

func defaultSpellings() [][]string {
	return [][]string{
		{"Russell", "Russel"},
		{"Michael", "Micheal"},
		{"John", "Jon"},
		{"Stephanie", "Stephany"},
		{"Rosanna", "Roseanna"},
		{"Jennifer", "Jenifer"},
		{"Benton", "Brenton"},
		{"Schwasuch", "Schwausch"},
	}
}

func defaultSuffixes() []string {
	return []string{"Jr", "Jr.", "Sr", "Sr.", "II", "III", "IV", "V", "2Nd"}
}

func defaultRequiredFeatures() []string {
	return []string{
		features.Age,
		features.WTW,
		features.ACDInternal,
		features.ICLPower,
		features.ACShapeRatio,
		features.SimKSteep,
		features.ACV,
		features.TCRPKm,
		features.TCRPAstigmatism,
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	layout := features.DefaultLayout()
	return Config{
		Paths: Paths{
			ScanDir:    defaultScanDir,
			RosterFile: defaultRosterFile,
			OutputDir:  defaultOutputDir,
			LedgerPath: defaultLedgerPath,
			LogDir:     defaultLogDir,
		},
		Matching: Matching{
			FuzzyNameMin:     defaultFuzzyNameMin,
			FuzzyDOBMin:      defaultFuzzyDOBMin,
			DOBToleranceDays: defaultDOBToleranceDays,
			YearRepair:       true,
			Suffixes:         defaultSuffixes(),
			Spellings:        defaultSpellings(),
		},
		Extraction: Extraction{
			PatientSection:    layout.PatientSection,
			TestSectionMarker: layout.TestSectionMarker,
			NameKey:           layout.NameKey,
			SurnameKey:        layout.SurnameKey,
			DOBKey:            layout.DOBKey,
			EyeKey:            layout.EyeKey,
			ExamDateKey:       layout.ExamDateKey,
			Sentinel:          features.DefaultSentinel,
			Concurrency:       defaultConcurrency,
			TestKeys:          layout.TestKeys,
			Keys:              layout.Keys,
		},
		Ranges: defaultRanges(),
		Roster: Roster{
			NameColumn:           "NAME",
			DOBColumn:            "DOB",
			EyeColumn:            "Eye",
			SphereColumn:         "Sphere",
			CylColumn:            "Cyl",
			ICLPowerColumn:       "ICL Power",
			ICLSizeColumn:        "ICL Size",
			VaultColumn:          "Vault",
			ExchangeColumn:       "Exchange?",
			ExchangedSizeColumn:  "Exchanged Size",
			ExchangedVaultColumn: "Exchanged Vault",
			ExchangedPowerColumn: "Exchanged Power",
			DOSColumn:            "DOS",
			TargetColumn:         "Target",
			ExchangeYesValues:    []string{"YES", "Y", "TRUE", "1"},
		},
		Audit: Audit{
			RequiredFeatures: defaultRequiredFeatures(),
			IDDigits:         defaultIDDigits,
			ScanExtension:    defaultScanExtension,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
