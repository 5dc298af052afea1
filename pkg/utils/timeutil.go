package utils

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Clock returns the current instant. Code that needs "now" takes a Clock
// so tests can pin it.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// TodayIST returns the calendar date in India for the clock's instant.
func TodayIST(clock Clock) civil.Date {
	return civil.DateOf(clock().In(IST))
}

// ParseDate parses a "2006-01-02" calendar date.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, err
	}
	if !d.IsValid() {
		return civil.Date{}, fmt.Errorf("invalid calendar date %q", s)
	}
	return d, nil
}

// DaysBetween returns the signed number of days from start to end.
func DaysBetween(start, end civil.Date) int {
	return end.DaysSince(start)
}

// YearsBefore returns the date n years before d. Feb 29 falls back to Mar 1
// in non-leap years, matching time.AddDate.
func YearsBefore(d civil.Date, n int) civil.Date {
	return civil.DateOf(d.In(time.UTC).AddDate(-n, 0, 0))
}

// FormatDisplay formats a date the way the site shows it, e.g. "5 Feb 2025".
func FormatDisplay(d civil.Date) string {
	return d.In(time.UTC).Format("2 Jan 2006")
}

// FormatDateTimeIST formats a time.Time to "2006-01-02 15:04:05 IST".
func FormatDateTimeIST(t time.Time) string {
	return t.In(IST).Format("2006-01-02 15:04:05 IST")
}
