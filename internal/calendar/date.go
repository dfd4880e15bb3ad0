// Package calendar provides a time-of-day free calendar day and a clock that
// reports "today" in the household's zone.
package calendar

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const layout = "2006-01-02"

// Date is a calendar day. The zero value means "no date".
// Date is comparable and safe to use as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the normalized date for year, month, day. Out-of-range values
// roll over the way time.Date does, so New(2026, 3, 0) is the last day of
// February.
func New(year int, month time.Month, day int) Date {
	return Of(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Of returns the calendar day of t in t's own location.
func Of(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse parses an ISO "YYYY-MM-DD" string. The empty string parses to the
// zero Date.
func Parse(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Of(t), nil
}

// MustParse is Parse for literals in tests and tables.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

// DaysInMonth returns the number of days in d's month.
func (d Date) DaysInMonth() int {
	return d.LastOfMonth(0).Day
}

func (d Date) AddDays(n int) Date {
	return New(d.Year, d.Month, d.Day+n)
}

// FirstOfMonth returns the first day of d's month shifted by n months.
func (d Date) FirstOfMonth(n int) Date {
	return New(d.Year, d.Month+time.Month(n), 1)
}

// LastOfMonth returns the last day of d's month shifted by n months.
func (d Date) LastOfMonth(n int) Date {
	return New(d.Year, d.Month+time.Month(n)+1, 0)
}

// Sub returns the number of days from other to d (d - other).
func (d Date) Sub(other Date) int {
	return int(d.Time(time.UTC).Sub(other.Time(time.UTC)).Hours() / 24)
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

// Within reports whether d lies in [start, end] inclusive.
func (d Date) Within(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner. Dates are stored as TEXT "YYYY-MM-DD".
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	case time.Time:
		*d = Of(v)
		return nil
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}
