package features

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"iclink/internal/identity"
	"iclink/internal/matching"
	"iclink/internal/roster"
	"iclink/internal/scanfile"
)

func testValidator() *Validator {
	return NewValidator(map[string]Range{
		Age:             {Min: 15, Max: 70},
		WTW:             {Min: 10, Max: 14},
		ACDInternal:     {Min: 2, Max: 5},
		ACV:             {Min: 100, Max: 400},
		ACShapeRatio:    {Min: 40, Max: 200},
		SimKSteep:       {Min: 38, Max: 52},
		SEQ:             {Min: -25, Max: 5},
		Vault:           {Min: 50, Max: 2000},
		LensSize:        {Min: 11, Max: 14},
		PupilDiameter:   {Min: 2, Max: 8},
		TCRPAstigmatism: {Min: 0, Max: 10},
	}, DefaultSentinel)
}

func TestValidate(t *testing.T) {
	v := testValidator()
	tests := []struct {
		name      string
		value     any
		feature   string
		valid     bool
		wantValue *float64
		warning   string
	}{
		{"sentinel", -9999.0, WTW, false, nil, "WTW: Invalid sentinel value -9999"},
		{"sentinel string", "-9999.00", WTW, false, nil, "sentinel"},
		{"in range", 11.8, WTW, true, ptr(11.8), ""},
		{"below range retained", 9.0, WTW, false, ptr(9.0), "WTW: 9 outside range [10, 14]"},
		{"non numeric", "n/a", WTW, false, nil, "Cannot convert"},
		{"empty", "  ", WTW, false, nil, "Missing value"},
		{"nan", math.NaN(), WTW, false, nil, "Missing value"},
		{"nil", nil, WTW, false, nil, "Missing value"},
		{"decimal comma", "3,10", ACDInternal, true, ptr(3.1), ""},
		{"no range defined", "-9.5", ICLPower, true, ptr(-9.5), ""},
		{"int", 420, Vault, true, ptr(420), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.value, tt.feature)
			if got.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v (%+v)", got.Valid, tt.valid, got)
			}
			switch {
			case tt.wantValue == nil && got.Value != nil:
				t.Fatalf("expected discarded value, got %v", *got.Value)
			case tt.wantValue != nil && (got.Value == nil || *got.Value != *tt.wantValue):
				t.Fatalf("Value = %v, want %v", got.Value, *tt.wantValue)
			}
			if tt.warning == "" && got.Warning != "" {
				t.Fatalf("unexpected warning %q", got.Warning)
			}
			if !strings.Contains(got.Warning, tt.warning) {
				t.Fatalf("warning %q does not contain %q", got.Warning, tt.warning)
			}
		})
	}
}

func TestShapeRatioNilSafety(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("nil whenever ACD is missing or not positive", prop.ForAll(
		func(acv, acd float64, acdPresent bool) bool {
			var acdPtr *float64
			if acdPresent {
				acdPtr = &acd
			}
			ratio := ShapeRatio(&acv, acdPtr)
			if !acdPresent || acd <= 0 {
				return ratio == nil
			}
			return ratio != nil && *ratio == acv/acd
		},
		gen.Float64Range(-500, 500),
		gen.OneGenOf(gen.Const(0.0), gen.Float64Range(-5, 5)),
		gen.Bool(),
	))

	properties.TestingRun(t)

	if ShapeRatio(nil, ptr(3.1)) != nil {
		t.Fatal("expected nil ratio without ACV")
	}
}

const scenarioDoc = `<?xml version="1.0"?>
<configuration>
  <section name="Patient Data">
    <entry key="Name">Noah</entry>
    <entry key="Surname">Gonzalez-Wooding</entry>
    <entry key="DOB">1999-05-02</entry>
  </section>
  <section name="Test Data OD">
    <entry key="Eye">OD</entry>
    <entry key="Test Date">2023-01-05</entry>
    <entry key="Cornea Dia Horizontal">11.8</entry>
    <entry key="SimK steep D">44.0</entry>
    <entry key="Pupil diameter mm">-9999</entry>
    <entry key="ACV">190</entry>
  </section>
  <section name="Test Data OS">
    <entry key="Eye">OS</entry>
    <entry key="Cornea Dia Horizontal">12.4</entry>
  </section>
  <section name="General Overview">
    <entry key="ACV">250</entry>
    <entry key="ACD (Int.) [mm]">3.1</entry>
    <entry key="ACD [mm]">3.6</entry>
    <entry key="TCRP 3mm zone pupil Asti [D]">12.5</entry>
  </section>
</configuration>`

func testExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(DefaultLayout(), testValidator(), identity.NewDOBNormalizer(identity.RepairLeadingZeroYear))
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	return e
}

func extractScenario(t *testing.T) *ScanRecord {
	t.Helper()
	doc, err := scanfile.Decode(strings.NewReader(scenarioDoc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	rec, err := testExtractor(t).Extract(doc, "00000001.xml")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return rec
}

func TestExtract(t *testing.T) {
	rec := extractScenario(t)
	if rec.RawName != "Gonzalez-Wooding Noah" || rec.DOB != "1999-05-02" || rec.Eye != identity.EyeOD {
		t.Fatalf("unexpected identity: %q %q %q", rec.RawName, rec.DOB, rec.Eye)
	}
	if rec.ExamDate != "2023-01-05" {
		t.Fatalf("unexpected exam date %q", rec.ExamDate)
	}
	if got := rec.Value(WTW); got == nil || *got != 11.8 {
		t.Fatalf("expected WTW from the OD section, got %v", got)
	}
	if got := rec.Value(ACV); got == nil || *got != 190 {
		t.Fatalf("expected first ACV value to win, got %v", got)
	}
	if got := rec.Value(ACShapeRatio); got == nil || math.Abs(*got-61.29) > 0.01 {
		t.Fatalf("expected AC_shape_ratio ~61.29, got %v", got)
	}
	if rec.Value(PupilDiameter) != nil {
		t.Fatal("expected sentinel pupil diameter to be discarded")
	}
	if _, ok := rec.OutOfRange[PupilDiameter]; ok {
		t.Fatal("sentinel must not be retained as out-of-range")
	}
	if rec.Value(TCRPAstigmatism) != nil || rec.OutOfRange[TCRPAstigmatism] != 12.5 {
		t.Fatalf("expected out-of-range astigmatism withheld and retained, got %v / %v", rec.Value(TCRPAstigmatism), rec.OutOfRange)
	}
	if rec.Value(CCT) != nil {
		t.Fatal("expected missing CCT to stay nil")
	}
	if age := rec.Value(Age); age == nil || math.Abs(*age-23.68) > 0.01 {
		t.Fatalf("unexpected age %v", age)
	}
	joined := strings.Join(rec.Warnings, ";")
	if !strings.Contains(joined, "Pupil_diameter: Invalid sentinel") || !strings.Contains(joined, "TCRP_Astigmatism: 12.5 outside range") {
		t.Fatalf("unexpected warnings: %v", rec.Warnings)
	}
}

func TestExtractRetainsOutOfRangeShapeRatio(t *testing.T) {
	validator := NewValidator(map[string]Range{ACShapeRatio: {Min: 40, Max: 50}}, DefaultSentinel)
	e, err := NewExtractor(DefaultLayout(), validator, nil)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	doc, err := scanfile.Decode(strings.NewReader(scenarioDoc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	rec, err := e.Extract(doc, "00000001.xml")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.Value(ACShapeRatio) != nil {
		t.Fatal("expected out-of-range AC_shape_ratio to be withheld")
	}
	if raw, ok := rec.OutOfRange[ACShapeRatio]; !ok || math.Abs(raw-61.29) > 0.01 {
		t.Fatalf("expected raw ratio ~61.29 retained, got %v (present=%v)", raw, ok)
	}
	if !strings.Contains(strings.Join(rec.Warnings, ";"), "AC_shape_ratio: ") {
		t.Fatalf("expected ratio warning, got %v", rec.Warnings)
	}
}

func TestExtractIncompleteIdentity(t *testing.T) {
	doc, err := scanfile.Decode(strings.NewReader(`<configuration>
  <section name="Patient Data"><entry key="Name">Ann</entry></section>
  <section name="Test Data"><entry key="ACV">190</entry></section>
</configuration>`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	_, err = testExtractor(t).Extract(doc, "00000009.xml")
	if !errors.Is(err, ErrIncompleteIdentity) {
		t.Fatalf("expected ErrIncompleteIdentity, got %v", err)
	}
	if !strings.Contains(err.Error(), "dob, eye") {
		t.Fatalf("expected missing fields in error, got %v", err)
	}
}

func TestExtractEyeFromSectionName(t *testing.T) {
	doc, err := scanfile.Decode(strings.NewReader(`<configuration>
  <section name="Patient Data"><entry key="Name">Ann</entry><entry key="Surname">Lee</entry><entry key="DOB">1988-01-01</entry></section>
  <section name="Test Data OS"><entry key="Test Date">2020-01-01</entry></section>
</configuration>`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	rec, err := testExtractor(t).Extract(doc, "00000002.xml")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.Eye != identity.EyeOS {
		t.Fatalf("expected OS from section name, got %q", rec.Eye)
	}
	if rec.Value(ACShapeRatio) != nil {
		t.Fatal("expected nil ratio when ACV and ACD are absent")
	}
}

func TestNewExtractorRejectsUnknownFeature(t *testing.T) {
	layout := DefaultLayout()
	layout.Keys["Lens_Size"] = "Lens"
	if _, err := NewExtractor(layout, testValidator(), nil); err == nil {
		t.Fatal("expected error for non-scan feature")
	}
}

func TestMergeScenario(t *testing.T) {
	rec := extractScenario(t)
	idx := roster.Build([]roster.Row{{
		Line: 2, Name: "Gonzalez-Wooding, Noah", DOB: "1999-05-02", Eye: "OD",
		Sphere: "-8.00", Cyl: "-1.50", ICLPower: "-9.5", ICLSize: "12.6", Vault: "420", Exchange: "NO",
	}}, roster.Options{})
	result := matching.New(nil, nil, matching.DefaultPolicy()).Match(rec.Identity(), idx)
	if result.Strategy != matching.StrategyExact {
		t.Fatalf("expected exact match, got %q", result.Strategy)
	}

	v := Merge(rec, result, testValidator(), MergeOptions{})
	if v == nil {
		t.Fatal("expected merged vector")
	}
	if got := v.Value(LensSize); got == nil || *got != 12.6 {
		t.Fatalf("Lens_Size = %v", got)
	}
	if got := v.Value(Vault); got == nil || *got != 420 {
		t.Fatalf("Vault = %v", got)
	}
	if got := v.Value(SEQ); got == nil || *got != -8.75 {
		t.Fatalf("SEQ = %v", got)
	}
	if got := v.Value(ACShapeRatio); got == nil || math.Abs(*got-61.29) > 0.01 {
		t.Fatalf("AC_shape_ratio = %v", got)
	}
	if v.MatchNote != matching.ExactMatchNote || v.Exchange {
		t.Fatalf("unexpected match metadata: %q exchange=%v", v.MatchNote, v.Exchange)
	}
	if !v.HasOutcome() {
		t.Fatal("expected outcome")
	}
	missing := v.Missing([]string{WTW, ACDInternal, ICLPower, CCT, TCRPKm})
	if strings.Join(missing, ",") != "CCT,TCRP_Km" {
		t.Fatalf("unexpected missing features: %v", missing)
	}
	if v.Trainable([]string{WTW, ACDInternal}) != true {
		t.Fatal("expected row to be trainable for a reduced feature set")
	}
}

func TestMergeOutcomeValidationAndBlanking(t *testing.T) {
	rec := extractScenario(t)
	entry := &roster.Entry{Line: 3, Eye: identity.EyeOS, LensSize: "15.0", Vault: "420"}
	result := matching.Result{Entry: entry, Key: roster.MatchKey{Name: "x", DOB: rec.DOB, Eye: identity.EyeOS}, Strategy: matching.StrategyNameDOB, DOB: rec.DOB, Eye: identity.EyeOD}

	v := Merge(rec, result, testValidator(), MergeOptions{})
	if v.Value(LensSize) != nil || v.OutOfRange[LensSize] != 15.0 {
		t.Fatalf("expected out-of-range lens size withheld, got %v / %v", v.Value(LensSize), v.OutOfRange)
	}
	if v.HasOutcome() {
		t.Fatal("expected incomplete outcome")
	}

	blanked := Merge(rec, result, testValidator(), MergeOptions{BlankOutcomeOnEyeMismatch: true})
	if blanked.Value(Vault) != nil {
		t.Fatal("expected vault blanked on eye mismatch")
	}
	if !strings.Contains(strings.Join(blanked.Warnings, ";"), "blanked") {
		t.Fatalf("expected blanking warning, got %v", blanked.Warnings)
	}

	if Merge(rec, matching.Result{Strategy: matching.StrategyNone}, testValidator(), MergeOptions{}) != nil {
		t.Fatal("expected nil vector for unmatched result")
	}
}

func ptr(v float64) *float64 { return &v }
