package model

import (
	"strconv"
	"strings"
	"time"
)

// excelEpoch is day zero of the spreadsheet serial date system (1900 system,
// including the Lotus leap-year bug, which is why it is Dec 30 and not Dec 31).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Serials are accepted only in the five digit range so bare years and small
// counts are not read as dates.
const (
	minExcelSerial = 10000 // 1927-05-18
	maxExcelSerial = 99999 // 2173-10-14
)

// DefaultDateLayouts are tried in order by ParseDate when no layouts are given.
// Day-first slash layouts match the Brazilian registry exports.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2/1/2006",
	"2/1/2006 15:04:05",
	"2-1-2006",
	"20060102",
}

// Date is a calendar date without time of day. The zero value means the date is
// absent (unknown or not applicable).
type Date struct {
	t time.Time
}

// NewDate builds a Date. Out-of-range values are normalized like time.Date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses s with the given layouts (DefaultDateLayouts when empty).
// Spreadsheet serial day numbers are accepted too. Blank or unparseable input
// yields the absent Date, never an error.
func ParseDate(s string, layouts ...string) Date {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "nat") {
		return Date{}
	}
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t)
		}
	}
	return parseSerial(s)
}

func parseSerial(s string) Date {
	intPart := s
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
	}
	if len(intPart) != 5 {
		return Date{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < minExcelSerial || f > maxExcelSerial {
		return Date{}
	}
	return DateOf(excelEpoch.AddDate(0, 0, int(f)))
}

// IsZero reports whether the date is absent.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Valid reports whether the date is present.
func (d Date) Valid() bool { return !d.t.IsZero() }

// Time returns the date at UTC midnight.
func (d Date) Time() time.Time { return d.t }

// Year, Month and Day expose the calendar parts.
func (d Date) Year() int { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int { return d.t.Day() }

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// AddDays moves the date by n days.
func (d Date) AddDays(n int) Date {
	if d.IsZero() {
		return d
	}
	return Date{t: d.t.AddDate(0, 0, n)}
}

// AddMonths moves the date by n calendar months. When the target month is
// shorter, the result is clamped to its last day (Jan 31 + 1 month = Feb 28/29)
// instead of overflowing into the following month like time.AddDate does.
func (d Date) AddMonths(n int) Date {
	if d.IsZero() {
		return d
	}
	y, m, day := d.t.Date()
	total := int(m) - 1 + n
	ty := y + floorDiv(total, 12)
	tm := time.Month(floorMod(total, 12) + 1)
	if last := daysIn(ty, tm); day > last {
		day = last
	}
	return NewDate(ty, tm, day)
}

// Period returns the registry period key "MMYYYY".
func (d Date) Period() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format("012006")
}

// String formats the date as ISO 8601, or "" when absent.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format("2006-01-02")
}

// Format formats a present date with layout, or returns "" when absent.
func (d Date) Format(layout string) string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(layout)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
