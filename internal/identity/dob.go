package identity

import (
	"regexp"
	"strings"
	"time"
)

// ISODate is the normalized DOB layout.
const ISODate = "2006-01-02"

// YearRepair rewrites a raw date string before parsing. It must return the
// input unchanged when it has nothing to repair.
type YearRepair func(raw string) string

var (
	leadingZeroYear = regexp.MustCompile(`(^|[^0-9])0([12])([0-9]{2})($|[^0-9])`)
	isoWithTime     = regexp.MustCompile(`^(\d{4}-\d{1,2}-\d{1,2})[T ]`)
)

// RepairLeadingZeroYear turns a zero-prefixed three-digit year into a
// four-digit one: 0187 becomes 1987 and 0203 becomes 2003. The guess is lossy.
func RepairLeadingZeroYear(raw string) string {
	return leadingZeroYear.ReplaceAllStringFunc(raw, func(match string) string {
		parts := leadingZeroYear.FindStringSubmatch(match)
		century := "19"
		if parts[2] == "2" {
			century = "20"
		}
		return parts[1] + century + parts[3] + parts[4]
	})
}

// NoYearRepair leaves dates untouched so malformed years fail to parse.
func NoYearRepair(raw string) string { return raw }

var dobLayouts = []string{
	ISODate,
	"2006-1-2",
	"2006/1/2",
	"1/2/2006",
	"1-2-2006",
	"1.2.2006",
	"2-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"20060102",
	"1/2/06",
}

// DOBNormalizer converts raw date strings to ISODate.
type DOBNormalizer struct {
	repair YearRepair
}

// NewDOBNormalizer returns a normalizer using repair. A nil repair disables
// year repair.
func NewDOBNormalizer(repair YearRepair) *DOBNormalizer {
	if repair == nil {
		repair = NoYearRepair
	}
	return &DOBNormalizer{repair: repair}
}

var defaultDOB = NewDOBNormalizer(RepairLeadingZeroYear)

// NormalizeDOB normalizes raw with the default leading-zero year repair.
func NormalizeDOB(raw string) string {
	return defaultDOB.Normalize(raw)
}

// Normalize returns raw as YYYY-MM-DD, or "" when it cannot be read.
func (n *DOBNormalizer) Normalize(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if m := isoWithTime.FindStringSubmatch(value); m != nil {
		value = m[1]
	}
	value = n.repair(value)
	if parsed, ok := parseDate(value); ok {
		return parsed.Format(ISODate)
	}
	// Strip a trailing time-of-day component.
	if fields := strings.Fields(value); len(fields) > 1 {
		if parsed, ok := parseDate(fields[0]); ok {
			return parsed.Format(ISODate)
		}
	}
	return ""
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dobLayouts {
		parsed, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if parsed.Year() < 1850 {
			continue
		}
		return parsed, true
	}
	return time.Time{}, false
}

// ParseISO parses a normalized date.
func ParseISO(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(ISODate, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// DaysApart returns the absolute number of days between two normalized dates.
// ok is false when either date is empty or unparseable.
func DaysApart(a, b string) (int, bool) {
	ta, okA := ParseISO(a)
	tb, okB := ParseISO(b)
	if !okA || !okB {
		return 0, false
	}
	days := int(ta.Sub(tb).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days, true
}
