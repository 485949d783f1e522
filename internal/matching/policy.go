package matching

// Policy centralizes matching thresholds.
type Policy struct {
	FuzzyNameMin     float64
	FuzzyDOBMin      float64
	DOBToleranceDays int
}

// DefaultPolicy returns the thresholds tuned against the clinic roster.
func DefaultPolicy() Policy {
	return Policy{
		FuzzyNameMin:     0.80,
		FuzzyDOBMin:      0.90,
		DOBToleranceDays: 7,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.FuzzyNameMin <= 0 || p.FuzzyNameMin >= 1 {
		p.FuzzyNameMin = d.FuzzyNameMin
	}
	if p.FuzzyDOBMin <= 0 || p.FuzzyDOBMin >= 1 {
		p.FuzzyDOBMin = d.FuzzyDOBMin
	}
	if p.DOBToleranceDays <= 0 {
		p.DOBToleranceDays = d.DOBToleranceDays
	}
	return p
}
