package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultSentinel is the device's "not measured" marker.
const DefaultSentinel = -9999

// Range is an inclusive plausibility window.
type Range struct {
	Min float64
	Max float64
}

// Check is the outcome of validating one value. Value is nil for discarded
// input and retains the number for out-of-range input.
type Check struct {
	Valid   bool
	Value   *float64
	Warning string
}

// Validator applies sentinel, numeric, and range rules.
type Validator struct {
	ranges   map[string]Range
	sentinel float64
}

// NewValidator copies ranges. Features without a range only get the sentinel
// and numeric checks.
func NewValidator(ranges map[string]Range, sentinel float64) *Validator {
	copied := make(map[string]Range, len(ranges))
	for name, r := range ranges {
		copied[name] = r
	}
	return &Validator{ranges: copied, sentinel: sentinel}
}

// Range returns the window configured for feature.
func (v *Validator) Range(feature string) (Range, bool) {
	r, ok := v.ranges[feature]
	return r, ok
}

// Validate accepts strings, floats, ints, *float64, or nil.
func (v *Validator) Validate(value any, feature string) Check {
	switch typed := value.(type) {
	case nil:
		return Check{Warning: feature + ": Missing value"}
	case *float64:
		if typed == nil {
			return Check{Warning: feature + ": Missing value"}
		}
		return v.ValidateFloat(*typed, feature)
	case float64:
		return v.ValidateFloat(typed, feature)
	case float32:
		return v.ValidateFloat(float64(typed), feature)
	case int:
		return v.ValidateFloat(float64(typed), feature)
	case string:
		parsed, ok := parseNumeric(typed)
		if !ok {
			if strings.TrimSpace(typed) == "" {
				return Check{Warning: feature + ": Missing value"}
			}
			return Check{Warning: feature + ": Cannot convert to numeric"}
		}
		return v.ValidateFloat(parsed, feature)
	default:
		return Check{Warning: feature + ": Cannot convert to numeric"}
	}
}

// ValidateFloat applies the rules to a number.
func (v *Validator) ValidateFloat(value float64, feature string) Check {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Check{Warning: feature + ": Missing value"}
	}
	if value == v.sentinel {
		return Check{Warning: fmt.Sprintf("%s: Invalid sentinel value %g", feature, v.sentinel)}
	}
	if r, ok := v.ranges[feature]; ok && (value < r.Min || value > r.Max) {
		return Check{
			Value:   &value,
			Warning: fmt.Sprintf("%s: %g outside range [%g, %g]", feature, value, r.Min, r.Max),
		}
	}
	return Check{Valid: true, Value: &value}
}

// parseNumeric reads a device number, accepting a decimal comma.
func parseNumeric(raw string) (float64, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, false
	}
	if strings.Count(value, ",") == 1 && !strings.Contains(value, ".") {
		value = strings.Replace(value, ",", ".", 1)
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}
