package features

import (
	"fmt"

	"iclink/internal/matching"
	"iclink/internal/roster"
)

// Vector is a scan record merged with its roster outcome: one row of the
// training table.
type Vector struct {
	Record     *ScanRecord
	Entry      *roster.Entry
	Values     map[string]*float64
	OutOfRange map[string]float64
	Exchange   bool
	Strategy   matching.Strategy
	MatchNote  string
	Warnings   []string
}

// MergeOptions controls outcome handling.
type MergeOptions struct {
	// BlankOutcomeOnEyeMismatch drops lens size and vault when the matched
	// roster row is for the other eye.
	BlankOutcomeOnEyeMismatch bool
}

// Merge combines rec with the matched roster entry, validating the outcome
// and refractive fields. It returns nil when result has no entry.
func Merge(rec *ScanRecord, result matching.Result, validator *Validator, opts MergeOptions) *Vector {
	if rec == nil || !result.Matched() {
		return nil
	}
	entry := result.Entry
	v := &Vector{
		Record:     rec,
		Entry:      entry,
		Values:     make(map[string]*float64, len(Columns())),
		OutOfRange: make(map[string]float64),
		Exchange:   entry.Exchange,
		Strategy:   result.Strategy,
		MatchNote:  result.Note(),
		Warnings:   append([]string(nil), rec.Warnings...),
	}
	for feature, value := range rec.Values {
		v.Values[feature] = value
	}
	for feature, value := range rec.OutOfRange {
		v.OutOfRange[feature] = value
	}

	if entry.SEQ != nil {
		v.apply(SEQ, validator.ValidateFloat(*entry.SEQ, SEQ))
	}
	if entry.ICLPower != "" {
		v.apply(ICLPower, validator.Validate(entry.ICLPower, ICLPower))
	}

	if opts.BlankOutcomeOnEyeMismatch && result.EyeMismatch() {
		v.Warnings = append(v.Warnings, fmt.Sprintf("%s, %s: blanked, roster row is %s", LensSize, Vault, result.Key.Eye))
		return v
	}
	if entry.LensSize != "" {
		v.apply(LensSize, validator.Validate(entry.LensSize, LensSize))
	}
	if entry.Vault != "" {
		v.apply(Vault, validator.Validate(entry.Vault, Vault))
	}
	return v
}

func (v *Vector) apply(feature string, check Check) {
	if check.Warning != "" {
		v.Warnings = append(v.Warnings, check.Warning)
	}
	if check.Valid {
		v.Values[feature] = check.Value
		return
	}
	v.Values[feature] = nil
	if check.Value != nil {
		v.OutOfRange[feature] = *check.Value
	}
}

// Value returns a validated column value.
func (v *Vector) Value(feature string) *float64 {
	return v.Values[feature]
}

// HasOutcome reports whether both lens size and vault survived validation.
func (v *Vector) HasOutcome() bool {
	return v.Values[LensSize] != nil && v.Values[Vault] != nil
}

// Missing returns the required features that are nil, in the given order.
func (v *Vector) Missing(required []string) []string {
	var missing []string
	for _, feature := range required {
		if v.Values[feature] == nil {
			missing = append(missing, feature)
		}
	}
	return missing
}

// Trainable reports whether the row has both outcomes and every required
// feature.
func (v *Vector) Trainable(required []string) bool {
	return v.HasOutcome() && len(v.Missing(required)) == 0
}
