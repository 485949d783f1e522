package features

import (
	"errors"
	"fmt"
	"strings"

	"iclink/internal/identity"
	"iclink/internal/scanfile"
)

// ErrIncompleteIdentity reports a scan whose name, DOB, or eye cannot be read.
var ErrIncompleteIdentity = errors.New("scan identity incomplete")

// Layout names the sections and keys of the scan export.
type Layout struct {
	PatientSection    string
	TestSectionMarker string
	NameKey           string
	SurnameKey        string
	DOBKey            string
	EyeKey            string
	ExamDateKey       string
	// TestKeys maps feature names to keys read only from the eye-specific
	// test section.
	TestKeys map[string]string
	// Keys maps feature names to keys read from the first section carrying
	// a non-empty value.
	Keys map[string]string
}

// DefaultLayout returns the layout of the device's standard export.
func DefaultLayout() Layout {
	return Layout{
		PatientSection:    "Patient Data",
		TestSectionMarker: "Test Data",
		NameKey:           "Name",
		SurnameKey:        "Surname",
		DOBKey:            "DOB",
		EyeKey:            "Eye",
		ExamDateKey:       "Test Date",
		TestKeys: map[string]string{
			CCT:           "Central Corneal Thickness",
			SimKSteep:     "SimK steep D",
			WTW:           "Cornea Dia Horizontal",
			PupilDiameter: "Pupil diameter mm",
		},
		Keys: map[string]string{
			ACV:             "ACV",
			BADD:            "BAD D",
			ACDInternal:     "ACD (Int.) [mm]",
			ACAGlobal:       "ACA (180°) [°]",
			TCRPKm:          "TCRP 3mm zone pupil Km [D]",
			TCRPAstigmatism: "TCRP 3mm zone pupil Asti [D]",
		},
	}
}

// Extractor reads ScanRecords from scan documents.
type Extractor struct {
	layout    Layout
	validator *Validator
	dob       *identity.DOBNormalizer
}

// NewExtractor checks that every mapped feature is a known scan feature.
func NewExtractor(layout Layout, validator *Validator, dob *identity.DOBNormalizer) (*Extractor, error) {
	if validator == nil {
		return nil, errors.New("features: validator is required")
	}
	if dob == nil {
		dob = identity.NewDOBNormalizer(identity.RepairLeadingZeroYear)
	}
	for _, keys := range []map[string]string{layout.TestKeys, layout.Keys} {
		for feature := range keys {
			if !IsScanFeature(feature) {
				return nil, fmt.Errorf("features: unknown scan feature %q", feature)
			}
		}
	}
	return &Extractor{layout: layout, validator: validator, dob: dob}, nil
}

// Extract builds a record from doc. file is recorded as the source name.
// Missing identity fields yield an error wrapping ErrIncompleteIdentity;
// missing clinical values leave the feature nil.
func (e *Extractor) Extract(doc *scanfile.Document, file string) (*ScanRecord, error) {
	rec := newScanRecord(file)

	var given, surname string
	if patient, ok := doc.Section(e.layout.PatientSection); ok {
		given, _ = patient.Lookup(e.layout.NameKey)
		surname, _ = patient.Lookup(e.layout.SurnameKey)
		rec.RawDOB, _ = patient.Lookup(e.layout.DOBKey)
	}
	rec.RawName = strings.TrimSpace(strings.Join(nonEmpty(surname, given), " "))
	rec.Name = identity.NormalizeName(rec.RawName)
	rec.DOB = e.dob.Normalize(rec.RawDOB)

	raw := make(map[string]string)
	if test := e.testSection(doc); test != nil {
		rec.Eye = e.sectionEye(test)
		if exam, ok := test.Lookup(e.layout.ExamDateKey); ok {
			rec.ExamDate = e.dob.Normalize(exam)
		}
		for feature, key := range e.layout.TestKeys {
			if value, ok := test.Lookup(key); ok {
				raw[feature] = value
			}
		}
	}
	for feature, key := range e.layout.Keys {
		if value, ok := doc.Lookup(key); ok {
			raw[feature] = value
		}
	}

	var missing []string
	if rec.RawName == "" {
		missing = append(missing, "name")
	}
	if rec.RawDOB == "" {
		missing = append(missing, "dob")
	}
	if !rec.Eye.Known() {
		missing = append(missing, "eye")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %w: missing %s", file, ErrIncompleteIdentity, strings.Join(missing, ", "))
	}

	numeric := make(map[string]*float64, len(raw))
	for _, feature := range ScanFeatures() {
		value, ok := raw[feature]
		if !ok {
			continue
		}
		check := e.validator.Validate(value, feature)
		rec.apply(feature, check)
		numeric[feature] = check.Value
	}

	if age := AgeYears(rec.DOB, rec.ExamDate); age != nil {
		rec.apply(Age, e.validator.ValidateFloat(*age, Age))
	}

	if ratio := ShapeRatio(numeric[ACV], numeric[ACDInternal]); ratio != nil {
		rec.apply(ACShapeRatio, e.validator.ValidateFloat(*ratio, ACShapeRatio))
	}
	return rec, nil
}

// testSection returns the first test section that names an eye.
func (e *Extractor) testSection(doc *scanfile.Document) *scanfile.Section {
	for i := range doc.Sections {
		section := &doc.Sections[i]
		if !strings.Contains(section.Name, e.layout.TestSectionMarker) {
			continue
		}
		if !strings.Contains(section.Name, "OD") && !strings.Contains(section.Name, "OS") {
			continue
		}
		if e.sectionEye(section).Known() {
			return section
		}
	}
	return nil
}

func (e *Extractor) sectionEye(section *scanfile.Section) identity.Eye {
	if value, ok := section.Lookup(e.layout.EyeKey); ok {
		if eye := identity.ParseEye(value); eye.Known() {
			return eye
		}
	}
	hasOD := strings.Contains(section.Name, "OD")
	hasOS := strings.Contains(section.Name, "OS")
	switch {
	case hasOD && !hasOS:
		return identity.EyeOD
	case hasOS && !hasOD:
		return identity.EyeOS
	default:
		return identity.EyeUnknown
	}
}

// AgeYears returns (exam - dob) in days divided by 365.25, or nil when either
// date is missing.
func AgeYears(dob, exam string) *float64 {
	birth, ok := identity.ParseISO(dob)
	if !ok {
		return nil
	}
	examined, ok := identity.ParseISO(exam)
	if !ok {
		return nil
	}
	days := float64(int(examined.Sub(birth).Hours() / 24))
	age := days / 365.25
	return &age
}

// ShapeRatio returns acv/acd, or nil unless both are present and acd > 0.
func ShapeRatio(acv, acd *float64) *float64 {
	if acv == nil || acd == nil || *acd <= 0 {
		return nil
	}
	ratio := *acv / *acd
	return &ratio
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
