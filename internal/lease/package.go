package lease

import "strings"

// Package is a purchasable access tier. Its string value doubles as the
// hotspot user profile name on the router.
type Package string

const (
	OneDay     Package = "1_day"
	SevenDays  Package = "7_days"
	ThirtyDays Package = "30_days"
)

var days = map[Package]int{
	OneDay:     1,
	SevenDays:  7,
	ThirtyDays: 30,
}

// ParsePackage matches s case-insensitively against the known tiers.
// Unknown input yields OneDay and ok=false; callers log it as a data-quality
// warning rather than failing.
func ParsePackage(s string) (p Package, ok bool) {
	p = Package(strings.ToLower(strings.TrimSpace(s)))
	if _, known := days[p]; known {
		return p, true
	}
	return OneDay, false
}

// Days returns the lease length of p in calendar days, falling back to one.
func (p Package) Days() int {
	if n, ok := days[Package(strings.ToLower(string(p)))]; ok {
		return n
	}
	return days[OneDay]
}

// Packages lists the known tiers, shortest first.
func Packages() []Package {
	return []Package{OneDay, SevenDays, ThirtyDays}
}

// SamePackage reports whether two package strings name the same tier
// spelling, ignoring case.
func SamePackage(a, b string) bool {
	return strings.EqualFold(a, b)
}
