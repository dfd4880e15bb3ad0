package planner

import (
	"context"
	"log/slog"
	"slices"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/approval"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/chore"
	"github.com/dukerupert/fairshare/internal/fairness"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/schedule"
)

// Planner is driven from a single goroutine. It holds the confirmed copy of
// the schedule, the caller's conditions and the open requests.
type Planner struct {
	collab Collaborator
	clock  calendar.Clock
	logger *slog.Logger

	tasks      *schedule.Store
	me         model.Partner
	partners   []model.Partner
	conditions []model.ConditionEntry
	requests   []model.AdjustmentRequest
	catalog    []model.Recommendation
	from, to   calendar.Date
}

func New(collab Collaborator, clock calendar.Clock, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		collab:  collab,
		clock:   clock,
		logger:  logger,
		tasks:   schedule.NewStore(),
		catalog: fairness.DefaultCatalog(),
	}
}

// SetCatalog replaces the recommendation pool.
func (p *Planner) SetCatalog(recs []model.Recommendation) {
	p.catalog = slices.Clone(recs)
}

// fail turns a collaborator error into the error surfaced to callers. Rule
// rejections keep their kind; anything else is a collaborator failure.
func (p *Planner) fail(op string, err error) error {
	if apperr.KindOf(err) == "" {
		err = apperr.Collaborator(err)
	}
	p.logger.Warn("collaborator call failed", "op", op, "kind", apperr.KindOf(err), "error", err)
	return err
}

// Load fetches the roster, the tasks dated within [from, to], the caller's
// conditions and the pending requests. Nothing is replaced unless every call
// succeeds.
func (p *Planner) Load(ctx context.Context, from, to calendar.Date) error {
	me, err := p.collab.Me(ctx)
	if err != nil {
		return p.fail("me", err)
	}
	partners, err := p.collab.ListPartners(ctx)
	if err != nil {
		return p.fail("list partners", err)
	}
	tasks, err := p.collab.ListTasks(ctx, from, to)
	if err != nil {
		return p.fail("list tasks", err)
	}
	conditions, err := p.collab.ListConditions(ctx, calendar.Date{}, calendar.Date{})
	if err != nil {
		return p.fail("list conditions", err)
	}
	requests, err := p.collab.ListRequests(ctx, model.StatusPending)
	if err != nil {
		return p.fail("list requests", err)
	}

	p.me = me
	p.partners = partners
	p.tasks.Replace(tasks)
	p.conditions = conditions
	p.requests = requests
	p.from, p.to = from, to
	p.logger.Debug("planner loaded", "tasks", p.tasks.Len(), "partners", len(partners), "requests", len(requests))
	return nil
}

// RefreshTasks reloads the tasks of the last loaded range.
func (p *Planner) RefreshTasks(ctx context.Context) error {
	tasks, err := p.collab.ListTasks(ctx, p.from, p.to)
	if err != nil {
		return p.fail("list tasks", err)
	}
	p.tasks.Replace(tasks)
	return nil
}

func (p *Planner) localTask(id string) (model.Task, error) {
	t, ok := p.tasks.Get(id)
	if !ok {
		return model.Task{}, apperr.NotFound("task", id)
	}
	return t, nil
}

// AddTask creates a task, or one per occurrence for a repeating task.
func (p *Planner) AddTask(ctx context.Context, in model.NewTask) ([]model.Task, error) {
	if in.PartnerID == "" {
		in.PartnerID = p.me.ID
	}
	if _, err := chore.Expand(in); err != nil {
		return nil, err
	}
	created, err := p.collab.CreateTask(ctx, in)
	if err != nil {
		return nil, p.fail("create task", err)
	}
	for _, t := range created {
		p.applyConfirmed(t, calendar.Date{})
	}
	return created, nil
}

// Move relocates a task to date.
func (p *Planner) Move(ctx context.Context, id string, date calendar.Date) (model.Task, error) {
	if date.IsZero() {
		return model.Task{}, apperr.Validation("date is required")
	}
	current, err := p.localTask(id)
	if err != nil {
		return model.Task{}, err
	}
	updated, err := p.collab.UpdateTask(ctx, id, model.TaskPatch{Date: &date})
	if err != nil {
		return model.Task{}, p.fail("move task", err)
	}
	p.applyConfirmed(updated, current.Date)
	return updated, nil
}

// Reschedule pushes a task days forward.
func (p *Planner) Reschedule(ctx context.Context, id string, days int) (model.Task, error) {
	if days <= 0 {
		return model.Task{}, apperr.Validation("days must be positive")
	}
	current, err := p.localTask(id)
	if err != nil {
		return model.Task{}, err
	}
	return p.Move(ctx, id, current.Date.AddDays(days))
}

func (p *Planner) SetTip(ctx context.Context, id, tip string) (model.Task, error) {
	tip, err := chore.ValidateTip(tip)
	if err != nil {
		return model.Task{}, err
	}
	current, err := p.localTask(id)
	if err != nil {
		return model.Task{}, err
	}
	updated, err := p.collab.UpdateTask(ctx, id, model.TaskPatch{Tip: &tip})
	if err != nil {
		return model.Task{}, p.fail("set tip", err)
	}
	p.applyConfirmed(updated, current.Date)
	return updated, nil
}

// ToggleTask flips completion. The toggle window is checked before the
// collaborator is asked.
func (p *Planner) ToggleTask(ctx context.Context, id string) (model.Task, error) {
	current, err := p.localTask(id)
	if err != nil {
		return model.Task{}, err
	}
	if err := chore.CheckToggle(current.Date, p.clock.Today()); err != nil {
		return model.Task{}, err
	}
	updated, err := p.collab.ToggleTask(ctx, id)
	if err != nil {
		return model.Task{}, p.fail("toggle task", err)
	}
	p.applyConfirmed(updated, current.Date)
	return updated, nil
}

func (p *Planner) DeleteTask(ctx context.Context, id string) error {
	current, err := p.localTask(id)
	if err != nil {
		return err
	}
	if err := p.collab.DeleteTask(ctx, id); err != nil {
		return p.fail("delete task", err)
	}
	p.tasks.Remove(current.Date, id)
	return nil
}

func (p *Planner) applyConfirmed(t model.Task, previous calendar.Date) {
	if err := p.tasks.Apply(t, previous); err != nil {
		// The collaborator returned a record the store cannot hold.
		p.logger.Error("dropping malformed task from collaborator", "task_id", t.ID, "error", err)
	}
}

// UpsertCondition records the caller's condition for a day.
func (p *Planner) UpsertCondition(ctx context.Context, e model.ConditionEntry) (model.ConditionEntry, error) {
	e.PartnerID = p.me.ID
	e, err := fairness.ValidateEntry(e)
	if err != nil {
		return model.ConditionEntry{}, err
	}
	saved, err := p.collab.UpsertCondition(ctx, e)
	if err != nil {
		return model.ConditionEntry{}, p.fail("upsert condition", err)
	}
	p.conditions = slices.DeleteFunc(p.conditions, func(c model.ConditionEntry) bool {
		return c.ID == saved.ID || (c.PartnerID == saved.PartnerID && c.Date == saved.Date)
	})
	p.conditions = append(p.conditions, saved)
	return saved, nil
}

func (p *Planner) DeleteCondition(ctx context.Context, id string) error {
	if err := p.collab.DeleteCondition(ctx, id); err != nil {
		return p.fail("delete condition", err)
	}
	p.conditions = slices.DeleteFunc(p.conditions, func(c model.ConditionEntry) bool { return c.ID == id })
	return nil
}

// SubmitRequest asks the household to change a task's points.
func (p *Planner) SubmitRequest(ctx context.Context, taskID string, delta int, dir model.Direction) (model.AdjustmentRequest, error) {
	if delta <= 0 {
		return model.AdjustmentRequest{}, apperr.Validation("delta must be a positive number of points")
	}
	if !dir.Valid() {
		return model.AdjustmentRequest{}, apperr.Validation("direction must be increase or decrease")
	}
	if _, err := p.localTask(taskID); err != nil {
		return model.AdjustmentRequest{}, err
	}
	req, err := p.collab.CreateRequest(ctx, model.NewAdjustment{TaskID: taskID, Delta: delta, Direction: dir})
	if err != nil {
		return model.AdjustmentRequest{}, p.fail("create request", err)
	}
	p.storeRequest(req)
	return req, nil
}

// Decide votes on a request as the caller.
func (p *Planner) Decide(ctx context.Context, requestID string, d model.Decision) (model.DecisionResult, error) {
	return p.DecideFor(ctx, requestID, model.DecisionInput{PartnerID: p.me.ID, Decision: d})
}

// DecideFor votes on a request, possibly for another partner on this device,
// in which case in.PIN must be that partner's PIN. Eligibility is checked
// against the local copy first when one is held; the collaborator evaluates
// the vote atomically.
func (p *Planner) DecideFor(ctx context.Context, requestID string, in model.DecisionInput) (model.DecisionResult, error) {
	if in.PartnerID == "" {
		in.PartnerID = p.me.ID
	}
	if !in.Decision.Valid() {
		return model.DecisionResult{}, apperr.Validation("decision must be approve or reject")
	}
	if i := p.requestIndex(requestID); i >= 0 {
		if err := approval.Check(p.requests[i], in.PartnerID); err != nil {
			return model.DecisionResult{}, err
		}
	}

	res, err := p.collab.DecideRequest(ctx, requestID, in)
	if err != nil {
		return model.DecisionResult{}, p.fail("decide request", err)
	}
	p.storeRequest(res.Request)

	switch {
	case res.UpdatedTask != nil:
		previous := calendar.Date{}
		if t, ok := p.tasks.Get(res.UpdatedTask.ID); ok {
			previous = t.Date
		}
		p.applyConfirmed(*res.UpdatedTask, previous)
	case res.Request.Status == model.StatusApproved:
		// Approved without the task in the response: the points changed
		// remotely, so the local copy is stale.
		if err := p.RefreshTasks(ctx); err != nil {
			return res, err
		}
	}
	return res, nil
}

// RefreshRequests reloads pending requests.
func (p *Planner) RefreshRequests(ctx context.Context) error {
	requests, err := p.collab.ListRequests(ctx, model.StatusPending)
	if err != nil {
		return p.fail("list requests", err)
	}
	p.requests = requests
	return nil
}

func (p *Planner) requestIndex(id string) int {
	return slices.IndexFunc(p.requests, func(r model.AdjustmentRequest) bool { return r.ID == id })
}

func (p *Planner) storeRequest(req model.AdjustmentRequest) {
	if i := p.requestIndex(req.ID); i >= 0 {
		p.requests[i] = req
		return
	}
	p.requests = append(p.requests, req)
}
