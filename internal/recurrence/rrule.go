// Package recurrence parses the RRULE subset used by repeating tasks and
// expands it into calendar days.
package recurrence

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/fairshare/internal/calendar"
)

type Freq int

const (
	Daily Freq = iota
	Weekly
	Monthly
	Yearly
)

var freqs = [...]string{Daily: "DAILY", Weekly: "WEEKLY", Monthly: "MONTHLY", Yearly: "YEARLY"}

func (f Freq) String() string {
	if f < 0 || int(f) >= len(freqs) {
		return fmt.Sprintf("Freq(%d)", int(f))
	}
	return freqs[f]
}

// weekdays is indexed by time.Weekday.
var weekdays = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// Rule is the subset of RFC 5545 RRULE used for repeating tasks.
type Rule struct {
	Freq       Freq
	Interval   int            // at least 1
	ByDay      []time.Weekday // WEEKLY only; empty means the start's weekday
	ByMonthDay int            // MONTHLY only; 0 means the start's day
	Count      int            // 0 means unlimited
	Until      calendar.Date  // zero means unlimited
}

// Bounded reports whether the rule itself limits the number of occurrences.
func (r Rule) Bounded() bool {
	return r.Count > 0 || !r.Until.IsZero()
}

// Parse reads a rule like "FREQ=WEEKLY;BYDAY=MO,WE;INTERVAL=2". Keys are
// case-insensitive and an "RRULE:" prefix is allowed.
func Parse(s string) (Rule, error) {
	s = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "RRULE:")
	if s == "" {
		return Rule{}, fmt.Errorf("empty rule")
	}

	r := Rule{Interval: 1}
	seenFreq := false
	for part := range strings.SplitSeq(s, ";") {
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return Rule{}, fmt.Errorf("invalid rule part: %q", part)
		}
		var err error
		switch key {
		case "FREQ":
			i := slices.Index(freqs[:], val)
			if i < 0 {
				return Rule{}, fmt.Errorf("unknown frequency: %q", val)
			}
			r.Freq, seenFreq = Freq(i), true
		case "INTERVAL":
			r.Interval, err = positive(key, val, 0)
		case "COUNT":
			r.Count, err = positive(key, val, 0)
		case "BYMONTHDAY":
			r.ByMonthDay, err = positive(key, val, 31)
		case "BYDAY":
			r.ByDay, err = parseDays(val)
		case "UNTIL":
			r.Until, err = parseUntil(val)
		default:
			return Rule{}, fmt.Errorf("unsupported rule key: %q", key)
		}
		if err != nil {
			return Rule{}, err
		}
	}
	if !seenFreq {
		return Rule{}, fmt.Errorf("FREQ is required")
	}
	return r, nil
}

// positive parses val as an integer >= 1, and <= upper when upper > 0.
func positive(key, val string, upper int) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 || (upper > 0 && n > upper) {
		return 0, fmt.Errorf("invalid %s: %q", key, val)
	}
	return n, nil
}

func parseDays(val string) ([]time.Weekday, error) {
	var out []time.Weekday
	for code := range strings.SplitSeq(val, ",") {
		i := slices.Index(weekdays[:], strings.TrimSpace(code))
		if i < 0 {
			return nil, fmt.Errorf("unknown day: %q", code)
		}
		out = append(out, time.Weekday(i))
	}
	return out, nil
}

func parseUntil(val string) (calendar.Date, error) {
	for _, layout := range []string{"20060102T150405Z", "20060102", "2006-01-02"} {
		if t, err := time.Parse(layout, val); err == nil {
			return calendar.Of(t), nil
		}
	}
	return calendar.Date{}, fmt.Errorf("invalid UNTIL: %q", val)
}

// String renders the canonical form stored on tasks. Parse(r.String())
// returns r.
func (r Rule) String() string {
	var b strings.Builder
	b.WriteString("FREQ=" + r.Freq.String())
	if r.Interval > 1 {
		fmt.Fprintf(&b, ";INTERVAL=%d", r.Interval)
	}
	if len(r.ByDay) > 0 {
		codes := make([]string, len(r.ByDay))
		for i, d := range r.ByDay {
			codes[i] = weekdays[d]
		}
		b.WriteString(";BYDAY=" + strings.Join(codes, ","))
	}
	if r.ByMonthDay > 0 {
		fmt.Fprintf(&b, ";BYMONTHDAY=%d", r.ByMonthDay)
	}
	if r.Count > 0 {
		fmt.Fprintf(&b, ";COUNT=%d", r.Count)
	}
	if !r.Until.IsZero() {
		b.WriteString(";UNTIL=" + strings.ReplaceAll(r.Until.String(), "-", ""))
	}
	return b.String()
}

var units = [...]string{Daily: "day", Weekly: "week", Monthly: "month", Yearly: "year"}
var adverbs = [...]string{Daily: "daily", Weekly: "weekly", Monthly: "monthly", Yearly: "yearly"}

// Describe returns a short label such as "weekly on Mon, Thu" or
// "every 3 days".
func (r Rule) Describe() string {
	if r.Freq < 0 || int(r.Freq) >= len(units) {
		return ""
	}
	s := adverbs[r.Freq]
	if r.Interval > 1 {
		s = fmt.Sprintf("every %d %ss", r.Interval, units[r.Freq])
	}
	if len(r.ByDay) > 0 {
		names := make([]string, len(r.ByDay))
		for i, d := range r.ByDay {
			names[i] = d.String()[:3]
		}
		s += " on " + strings.Join(names, ", ")
	}
	return s
}
