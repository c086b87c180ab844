// Package calendar provides working-day date arithmetic for the scheduling
// engine. A working day is any calendar day that is not a Saturday or a
// Sunday; there is no notion of holidays or variable shift lengths.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// HoursPerDay is the fixed length of a working day.
const HoursPerDay = 8.0

// DateLayout is the wire format for calendar dates in project files and
// reports.
const DateLayout = "2006-01-02"

// ErrInvalidArgument is returned when an operation receives an argument it
// cannot honour, such as a negative day count for subtraction.
var ErrInvalidArgument = errors.New("invalid argument")

// Normalize truncates t to midnight UTC of its calendar day. All calendar
// arithmetic operates on normalized dates so that DST shifts and wall-clock
// offsets never move a date across a day boundary.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date into a normalized time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %v", ErrInvalidArgument, s, err)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// IsWorkingDay reports whether t falls on Monday through Friday.
func IsWorkingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// NextWorkingDay returns t itself if it is a working day, otherwise the
// following Monday.
func NextWorkingDay(t time.Time) time.Time {
	t = Normalize(t)
	for !IsWorkingDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AddWorkingDays advances t by n working days, skipping weekends. With
// n == 0 the date is returned as-is (normalized but not moved onto a working
// day); callers that need a working-day-aligned start must ask for n >= 1 or
// use NextWorkingDay. A negative n subtracts.
func AddWorkingDays(t time.Time, n int) time.Time {
	t = Normalize(t)
	if n < 0 {
		// -n is positive, so SubtractWorkingDays cannot fail here.
		out, _ := SubtractWorkingDays(t, -n)
		return out
	}
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if IsWorkingDay(t) {
			n--
		}
	}
	return t
}

// SubtractWorkingDays moves t back by n working days, skipping weekends.
// Returns ErrInvalidArgument if n is negative.
func SubtractWorkingDays(t time.Time, n int) (time.Time, error) {
	if n < 0 {
		return time.Time{}, fmt.Errorf("%w: cannot subtract %d working days", ErrInvalidArgument, n)
	}
	t = Normalize(t)
	for n > 0 {
		t = t.AddDate(0, 0, -1)
		if IsWorkingDay(t) {
			n--
		}
	}
	return t, nil
}

// WorkingDaysBetween counts the working days in [start, end). If end is
// before start the count is negated, so that
// AddWorkingDays(start, WorkingDaysBetween(start, end)) lands on end whenever
// end is itself a working day.
func WorkingDaysBetween(start, end time.Time) int {
	start, end = Normalize(start), Normalize(end)
	sign := 1
	if end.Before(start) {
		start, end = end, start
		sign = -1
	}

	days := int(end.Sub(start).Hours() / 24)
	weeks := days / 7
	count := weeks * 5

	// Walk the remainder that does not fill a whole week.
	cur := start.AddDate(0, 0, weeks*7)
	for cur.Before(end) {
		if IsWorkingDay(cur) {
			count++
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return sign * count
}

// HoursToDays converts hours of effort into working days.
func HoursToDays(h float64) float64 {
	return h / HoursPerDay
}

// DaysToHours converts working days into hours of effort.
func DaysToHours(d float64) float64 {
	return d * HoursPerDay
}

// Dates returns every calendar date in the inclusive range [start, end].
// Returns nil if end is before start.
func Dates(start, end time.Time) []time.Time {
	start, end = Normalize(start), Normalize(end)
	if end.Before(start) {
		return nil
	}
	out := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
