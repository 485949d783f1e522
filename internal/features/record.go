package features

import "iclink/internal/identity"

// ScanRecord is one eye exam read from a scan document.
type ScanRecord struct {
	File     string
	RawName  string
	Name     string
	RawDOB   string
	DOB      string
	Eye      identity.Eye
	ExamDate string
	// Values holds validated features; nil means unavailable or rejected.
	Values map[string]*float64
	// OutOfRange keeps numbers withheld for failing their range check.
	OutOfRange map[string]float64
	Warnings   []string
}

func newScanRecord(file string) *ScanRecord {
	return &ScanRecord{
		File:       file,
		Values:     make(map[string]*float64),
		OutOfRange: make(map[string]float64),
	}
}

// Identity returns the raw identity used for matching.
func (r *ScanRecord) Identity() identity.Identity {
	return identity.Identity{RawName: r.RawName, RawDOB: r.RawDOB, Eye: r.Eye}
}

// Value returns a validated feature.
func (r *ScanRecord) Value(feature string) *float64 {
	return r.Values[feature]
}

func (r *ScanRecord) apply(feature string, check Check) {
	if check.Warning != "" {
		r.Warnings = append(r.Warnings, check.Warning)
	}
	if check.Valid {
		r.Values[feature] = check.Value
		return
	}
	r.Values[feature] = nil
	if check.Value != nil {
		r.OutOfRange[feature] = *check.Value
	}
}
