package recurrence

import (
	"slices"
	"time"

	"github.com/dukerupert/fairshare/internal/calendar"
)

// MaxOccurrences caps a single expansion. A year of daily tasks fits.
const MaxOccurrences = 366

// maxPeriods stops rules whose candidates never land, such as
// BYMONTHDAY=31 with an interval that only visits short months.
const maxPeriods = 10000

// Expand returns the days the rule produces from start through end
// inclusive, in ascending order. A zero end leaves the rule's own COUNT or
// UNTIL as the only bound. The result never exceeds MaxOccurrences.
func Expand(rule Rule, start, end calendar.Date) []calendar.Date {
	if start.IsZero() {
		return nil
	}
	interval := max(rule.Interval, 1)

	limit := MaxOccurrences
	if rule.Count > 0 && rule.Count < limit {
		limit = rule.Count
	}
	last := end
	if !rule.Until.IsZero() && (last.IsZero() || rule.Until.Before(last)) {
		last = rule.Until
	}

	var results []calendar.Date
	for period := 0; period < maxPeriods; period++ {
		for _, d := range rule.candidates(start, period*interval) {
			if d.Before(start) {
				continue
			}
			if !last.IsZero() && d.After(last) {
				return results
			}
			results = append(results, d)
			if len(results) == limit {
				return results
			}
		}
	}
	return results
}

// candidates returns the days of the n-th period after start, ascending.
func (r Rule) candidates(start calendar.Date, n int) []calendar.Date {
	switch r.Freq {
	case Daily:
		return []calendar.Date{start.AddDays(n)}
	case Weekly:
		if len(r.ByDay) == 0 {
			return []calendar.Date{start.AddDays(7 * n)}
		}
		monday := weekStart(start).AddDays(7 * n)
		offsets := make([]int, 0, len(r.ByDay))
		for _, wd := range r.ByDay {
			offsets = append(offsets, mondayOffset(wd))
		}
		slices.Sort(offsets)
		offsets = slices.Compact(offsets)
		days := make([]calendar.Date, 0, len(offsets))
		for _, off := range offsets {
			days = append(days, monday.AddDays(off))
		}
		return days
	case Monthly:
		day := r.ByMonthDay
		if day == 0 {
			day = start.Day
		}
		first := start.FirstOfMonth(n)
		// Months without the day are skipped, not clamped.
		if day > first.DaysInMonth() {
			return nil
		}
		return []calendar.Date{calendar.New(first.Year, first.Month, day)}
	case Yearly:
		first := calendar.New(start.Year+n, start.Month, 1)
		if start.Day > first.DaysInMonth() {
			return nil
		}
		return []calendar.Date{calendar.New(first.Year, first.Month, start.Day)}
	}
	return nil
}

func weekStart(d calendar.Date) calendar.Date {
	return d.AddDays(-mondayOffset(d.Weekday()))
}

func mondayOffset(wd time.Weekday) int {
	offset := int(wd) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return offset
}
