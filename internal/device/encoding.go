package device

import "strings"

// Encoding interprets the device's textual booleans for the disabled flag.
// A value outside both lists is neither disabled nor enabled.
type Encoding struct {
	Disabled []string
	Enabled  []string
}

// DefaultEncoding accepts "true"/"yes" as disabled and "false"/"no" as
// enabled.
func DefaultEncoding() Encoding {
	return Encoding{
		Disabled: []string{"true", "yes"},
		Enabled:  []string{"false", "no"},
	}
}

func (e Encoding) IsDisabled(raw string) bool { return oneOf(raw, e.Disabled) }

func (e Encoding) IsEnabled(raw string) bool { return oneOf(raw, e.Enabled) }

// EnableValue is written to enable an account.
func (e Encoding) EnableValue() string {
	if len(e.Enabled) > 0 {
		return e.Enabled[0]
	}
	return "false"
}

func oneOf(raw string, values []string) bool {
	raw = strings.TrimSpace(raw)
	for _, v := range values {
		if strings.EqualFold(raw, v) {
			return true
		}
	}
	return false
}
