package planner

import (
	"slices"

	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/chore"
	"github.com/dukerupert/fairshare/internal/fairness"
	"github.com/dukerupert/fairshare/internal/model"
)

func (p *Planner) Me() model.Partner { return p.me }

func (p *Planner) TasksOn(date calendar.Date) []model.Task {
	return p.tasks.ListByDate(date)
}

func (p *Planner) AllTasks() []model.Task {
	return p.tasks.ListAll()
}

func (p *Planner) Task(id string) (model.Task, bool) {
	return p.tasks.Get(id)
}

// CanToggle reports whether the task's completion may be flipped today.
func (p *Planner) CanToggle(id string) bool {
	t, ok := p.tasks.Get(id)
	return ok && chore.CanToggle(t.Date, p.clock.Today())
}

func (p *Planner) Conditions() []model.ConditionEntry {
	return slices.Clone(p.conditions)
}

// Requests returns the held requests, resolved ones included.
func (p *Planner) Requests() []model.AdjustmentRequest {
	return slices.Clone(p.requests)
}

// AwaitingMe returns pending requests the caller still has to vote on.
func (p *Planner) AwaitingMe() []model.AdjustmentRequest {
	var out []model.AdjustmentRequest
	for _, r := range p.requests {
		if r.Status == model.StatusPending && r.Approvals[p.me.ID] == model.StatusPending {
			out = append(out, r)
		}
	}
	return out
}

// RollingPoints sums completed points in the rolling window around anchor.
func (p *Planner) RollingPoints(anchor calendar.Date) map[string]int {
	start, end := fairness.RollingWindow(anchor)
	return fairness.PointsByPartner(p.tasks, start, end)
}

// Report recomputes shares and recommendations for the month of anchor. Only
// the caller's own condition entries are known locally; other partners fall
// back to the roster.
func (p *Planner) Report(anchor calendar.Date) fairness.Report {
	return fairness.BuildReport(fairness.Input{
		Anchor:     anchor,
		Today:      p.clock.Today(),
		Partners:   p.partners,
		Tasks:      p.tasks,
		Conditions: p.conditions,
		Catalog:    p.catalog,
	})
}

func (p *Planner) Partners(anchor calendar.Date) []model.Partner {
	return p.Report(anchor).Partners
}

func (p *Planner) Recommendations(anchor calendar.Date) []model.Recommendation {
	return p.Report(anchor).Recommendations
}
