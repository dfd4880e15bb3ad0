package fairness

import (
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/model"
)

// TaskSource is anything that can list tasks. *schedule.Store is one.
type TaskSource interface {
	ListAll() []model.Task
}

// Tasks adapts a plain slice to TaskSource.
type Tasks []model.Task

func (t Tasks) ListAll() []model.Task { return t }

// PointsByPartner sums the points of completed tasks dated within
// [start, end]. Records without a date or partner, or with negative points,
// are skipped.
func PointsByPartner(src TaskSource, start, end calendar.Date) map[string]int {
	totals := make(map[string]int)
	for _, t := range src.ListAll() {
		if !t.IsDone || t.Date.IsZero() || t.PartnerID == "" || t.Points < 0 {
			continue
		}
		if !t.Date.Within(start, end) {
			continue
		}
		totals[t.PartnerID] += t.Points
	}
	return totals
}

// RollingWindow is the load window for a viewed month: the first day two
// months before anchor's month through the last day of the month after it.
func RollingWindow(anchor calendar.Date) (start, end calendar.Date) {
	return anchor.FirstOfMonth(-2), anchor.LastOfMonth(1)
}
