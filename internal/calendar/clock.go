package calendar

import "time"

// Clock reports the current instant and the household's calendar zone.
// The zero Clock uses time.Now and time.Local.
type Clock struct {
	NowFunc  func() time.Time
	Location *time.Location
}

// Fixed returns a Clock frozen at t, using t's location.
func Fixed(t time.Time) Clock {
	return Clock{NowFunc: func() time.Time { return t }, Location: t.Location()}
}

func (c Clock) Now() time.Time {
	now := time.Now
	if c.NowFunc != nil {
		now = c.NowFunc
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// Today returns the calendar day of Now in the clock's zone.
func (c Clock) Today() Date {
	return Of(c.Now())
}
