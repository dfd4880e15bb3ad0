package chore

import (
	"strings"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/recurrence"
)

// IsRepeating reports whether a repeat field holds a rule.
func IsRepeating(repeat string) bool {
	r := strings.TrimSpace(strings.ToLower(repeat))
	return r != "" && r != "none"
}

// Expand validates a task creation payload and returns one task per
// occurrence. IDs and ordinals are left for the store to assign.
func Expand(nt model.NewTask) ([]model.Task, error) {
	title := strings.TrimSpace(nt.Title)
	switch {
	case title == "":
		return nil, apperr.Validation("title is required")
	case nt.PartnerID == "":
		return nil, apperr.Validation("partner_id is required")
	case nt.Date.IsZero():
		return nil, apperr.Validation("date is required")
	case nt.Points < 0:
		return nil, apperr.Validation("points must not be negative")
	case !ValidDuration(nt.Duration):
		return nil, apperr.Validation("unknown duration %q", nt.Duration)
	case !ValidEffort(nt.Effort):
		return nil, apperr.Validation("unknown effort %q", nt.Effort)
	case !nt.EndDate.IsZero() && nt.EndDate.Before(nt.Date):
		return nil, apperr.Validation("end_date is before date")
	}

	points := nt.Points
	if points == 0 {
		points = EstimatePoints(nt.Duration, nt.Effort)
	}

	template := model.Task{
		Title:     title,
		PartnerID: nt.PartnerID,
		Room:      strings.TrimSpace(nt.Room),
		Date:      nt.Date,
		Points:    points,
		Tip:       NormalizeTip(nt.Tip),
		Memo:      strings.TrimSpace(nt.Memo),
	}

	if !IsRepeating(nt.Repeat) {
		return []model.Task{template}, nil
	}

	rule, err := recurrence.Parse(nt.Repeat)
	if err != nil {
		return nil, apperr.Validation("invalid repeat: %v", err)
	}
	if !rule.Bounded() && nt.EndDate.IsZero() {
		return nil, apperr.Validation("repeating tasks need an end_date or COUNT")
	}
	template.Repeat = rule.String()

	dates := recurrence.Expand(rule, nt.Date, nt.EndDate)
	if len(dates) == 0 {
		return nil, apperr.Validation("repeat produces no occurrences")
	}
	tasks := make([]model.Task, 0, len(dates))
	for _, d := range dates {
		t := template
		t.Date = d
		tasks = append(tasks, t)
	}
	return tasks, nil
}
