package roster

import (
	"strconv"
	"strings"

	"iclink/internal/identity"
)

// Entry is one roster row with its outcome resolved.
type Entry struct {
	Line int
	// Name is the display form of the roster name.
	Name string
	DOB  string
	Eye  identity.Eye

	Sphere *float64
	Cyl    *float64
	// SEQ is Sphere + Cyl/2, or Sphere alone when Cyl is absent.
	SEQ *float64

	// LensSize, Vault, and ICLPower are authoritative: exchanged values when
	// Exchange is set, original values otherwise.
	LensSize string
	Vault    string
	ICLPower string
	Exchange bool

	OriginalLensSize  string
	OriginalVault     string
	OriginalPower     string
	ExchangedLensSize string
	ExchangedVault    string
	ExchangedPower    string

	DOS    string
	Target string
}

// HasOutcome reports whether both lens size and vault are present.
func (e *Entry) HasOutcome() bool {
	return e != nil && e.LensSize != "" && e.Vault != ""
}

// Options configures entry resolution and indexing.
type Options struct {
	Names *identity.Normalizer
	DOB   *identity.DOBNormalizer
	// ExchangeYes lists the upper-case cell values that mark an exchange.
	ExchangeYes []string
}

// DefaultExchangeYes returns the accepted exchange markers.
func DefaultExchangeYes() []string {
	return []string{"YES", "Y", "TRUE", "1"}
}

func (o Options) withDefaults() Options {
	if o.Names == nil {
		o.Names = identity.NewNormalizer(nil, nil)
	}
	if o.DOB == nil {
		o.DOB = identity.NewDOBNormalizer(identity.RepairLeadingZeroYear)
	}
	if len(o.ExchangeYes) == 0 {
		o.ExchangeYes = DefaultExchangeYes()
	}
	return o
}

// NewEntry resolves one row.
func NewEntry(row Row, opts Options) *Entry {
	opts = opts.withDefaults()
	entry := &Entry{
		Line:              row.Line,
		Name:              identity.NormalizeName(row.Name),
		DOB:               opts.DOB.Normalize(row.DOB),
		Eye:               identity.ParseEye(row.Eye),
		Sphere:            ParseNumber(row.Sphere),
		Cyl:               ParseNumber(row.Cyl),
		Exchange:          isExchange(row.Exchange, opts.ExchangeYes),
		OriginalLensSize:  row.ICLSize,
		OriginalVault:     row.Vault,
		OriginalPower:     row.ICLPower,
		ExchangedLensSize: row.ExchangedSize,
		ExchangedVault:    row.ExchangedVault,
		ExchangedPower:    row.ExchangedPower,
		DOS:               row.DOS,
		Target:            row.Target,
	}
	if entry.Exchange {
		entry.LensSize = row.ExchangedSize
		entry.Vault = row.ExchangedVault
		entry.ICLPower = row.ExchangedPower
		if entry.ICLPower == "" {
			entry.ICLPower = row.ICLPower
		}
	} else {
		entry.LensSize = row.ICLSize
		entry.Vault = row.Vault
		entry.ICLPower = row.ICLPower
	}
	if entry.Sphere != nil {
		seq := *entry.Sphere
		if entry.Cyl != nil {
			seq += *entry.Cyl / 2
		}
		entry.SEQ = &seq
	}
	return entry
}

func isExchange(raw string, yes []string) bool {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return false
	}
	for _, marker := range yes {
		if value == marker {
			return true
		}
	}
	return false
}

// ParseNumber reads a numeric cell, tolerating a leading plus sign and
// surrounding whitespace. Empty or non-numeric cells yield nil.
func ParseNumber(raw string) *float64 {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(strings.TrimPrefix(value, "+"), 64)
	if err != nil {
		return nil
	}
	return &parsed
}
