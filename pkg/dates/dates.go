// Package dates turns the day-month-year strings printed on the schedule page
// into civil calendar days.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// ParseError is returned when a raw string does not have the
// day<sep>month<sep>year shape or names a day that does not exist.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid date %q: %s", e.Raw, e.Reason)
}

// Both separators must be the same character.
var dayMonthYear = regexp.MustCompile(`^(\d{1,2})([./-])(\d{1,2})([./-])(\d{4})$`)

// Normalize parses raw as day-month-year, e.g. "08.01.2024" or "8-1-2024".
func Normalize(raw string) (civil.Date, error) {
	s := strings.TrimRight(strings.TrimSpace(raw), ",;")
	if s == "" {
		return civil.Date{}, &ParseError{Raw: raw, Reason: "empty"}
	}

	m := dayMonthYear.FindStringSubmatch(s)
	if m == nil {
		return civil.Date{}, &ParseError{Raw: raw, Reason: "expected day-month-year"}
	}
	if m[2] != m[4] {
		return civil.Date{}, &ParseError{Raw: raw, Reason: "mixed separators"}
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[3])
	year, _ := strconv.Atoi(m[5])

	d := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !d.IsValid() {
		return civil.Date{}, &ParseError{Raw: raw, Reason: "no such day"}
	}
	return d, nil
}

// Bounds returns the half-open range [start of d, start of the next day) in loc.
func Bounds(d civil.Date, loc *time.Location) (time.Time, time.Time) {
	return d.In(loc), d.AddDays(1).In(loc)
}
