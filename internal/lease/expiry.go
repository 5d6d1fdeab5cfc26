package lease

import (
	"strings"
	"time"
)

const (
	// deviceScheduleLayout matches the RouterOS scheduler grammar once
	// lower-cased: "jun/30/2025 13:00:00".
	deviceScheduleLayout = "Jan/02/2006 15:04:05"
	displayLayout        = "2006-01-02 15:04"
)

// Expiry is the end of a lease in every representation the bridge needs.
type Expiry struct {
	At             time.Time
	DeviceSchedule string
	Display        string
}

// Compute returns the expiry of pkg counted from ref in calendar days, so the
// lease ends at the same wall-clock time as ref in ref's location. known is
// false when pkg is not a recognised tier; one day is used in that case.
func Compute(pkg string, ref time.Time) (Expiry, bool) {
	p, known := ParsePackage(pkg)
	at := ref.AddDate(0, 0, p.Days())
	return Expiry{
		At:             at,
		DeviceSchedule: strings.ToLower(at.Format(deviceScheduleLayout)),
		Display:        at.Format(displayLayout),
	}, known
}

// ScheduleDate is the date half of DeviceSchedule, e.g. "jun/30/2025".
func (e Expiry) ScheduleDate() string {
	date, _, _ := strings.Cut(e.DeviceSchedule, " ")
	return date
}

// ScheduleTime is the time half of DeviceSchedule, e.g. "13:00:00".
func (e Expiry) ScheduleTime() string {
	_, clock, _ := strings.Cut(e.DeviceSchedule, " ")
	return clock
}

// Remaining is the time left until the lease ends, never negative.
func (e Expiry) Remaining(now time.Time) time.Duration {
	if d := e.At.Sub(now); d > 0 {
		return d
	}
	return 0
}
