// Package recurrence projects the next occurrence date of a recurring transaction.
package recurrence

import "time"

// Interval is how often a recurring transaction repeats.
type Interval string

const (
	Daily   Interval = "DAILY"
	Weekly  Interval = "WEEKLY"
	Monthly Interval = "MONTHLY"
	Yearly  Interval = "YEARLY"
)

// Valid reports whether i is one of the supported intervals.
func (i Interval) Valid() bool {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Next returns the occurrence following anchor for the given interval.
// Calendar-based intervals keep the day of month where it exists and clamp to
// the last day of the target month otherwise (Jan 31 + 1 month is Feb 28/29).
// An unrecognized interval returns anchor unchanged. The anchor's location is
// used as-is.
func Next(anchor time.Time, interval Interval) time.Time {
	switch interval {
	case Daily:
		return anchor.AddDate(0, 0, 1)
	case Weekly:
		return anchor.AddDate(0, 0, 7)
	case Monthly:
		return addMonths(anchor, 1)
	case Yearly:
		return addMonths(anchor, 12)
	default:
		return anchor
	}
}

// NextAfter returns the first occurrence projected from anchor that falls
// strictly after t. Each step is taken from the previous occurrence, the same
// way scheduled processing advances a template.
func NextAfter(anchor time.Time, interval Interval, t time.Time) time.Time {
	next := Next(anchor, interval)
	if !interval.Valid() {
		return next
	}
	for !next.After(t) {
		next = Next(next, interval)
	}
	return next
}

func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())

	if last := daysIn(target.Year(), target.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
