package identity

import "strings"

// Eye is the laterality of a scan or roster row.
type Eye string

const (
	EyeOD      Eye = "OD"
	EyeOS      Eye = "OS"
	EyeUnknown Eye = "UNKNOWN"
)

// ParseEye maps the spellings seen in both sources to an Eye.
func ParseEye(raw string) Eye {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "OD", "R", "RE", "RIGHT":
		return EyeOD
	case "OS", "L", "LE", "LEFT":
		return EyeOS
	default:
		return EyeUnknown
	}
}

// Known reports whether the eye is OD or OS.
func (e Eye) Known() bool {
	return e == EyeOD || e == EyeOS
}

func (e Eye) String() string {
	if e == "" {
		return string(EyeUnknown)
	}
	return string(e)
}

// Identity is the raw identity read from one source record.
type Identity struct {
	RawName string
	RawDOB  string
	Eye     Eye
}
