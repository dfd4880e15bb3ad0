// Package memory is an in-process authoritative store. It serves the same
// contract as the HTTP server, which makes it the collaborator for tests,
// demos and offline use.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/approval"
	"github.com/dukerupert/fairshare/internal/auth"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/chore"
	"github.com/dukerupert/fairshare/internal/fairness"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/schedule"
)

type Backend struct {
	mu         sync.Mutex
	clock      calendar.Clock
	partners   []model.Partner
	pins       map[string]string
	tasks      *schedule.Store
	workflow   *approval.Workflow
	conditions map[string]model.ConditionEntry
}

func New(clock calendar.Clock, partners []model.Partner) *Backend {
	tasks := schedule.NewStore()
	return &Backend{
		clock:      clock,
		partners:   slices.Clone(partners),
		pins:       make(map[string]string),
		tasks:      tasks,
		workflow:   approval.NewWorkflow(tasks, clock, model.PartnerIDs(partners)),
		conditions: make(map[string]model.ConditionEntry),
	}
}

// SetPIN stores a hashed PIN that lets another device vote for partnerID.
func (b *Backend) SetPIN(partnerID, pin string) error {
	hash, err := auth.HashPIN(pin)
	if err != nil {
		return apperr.Validation("%v", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.partnerIndex(partnerID) < 0 {
		return apperr.NotFound("partner", partnerID)
	}
	b.pins[partnerID] = hash
	return nil
}

// As returns a session acting as partnerID.
func (b *Backend) As(partnerID string) *Session {
	return &Session{b: b, partnerID: partnerID}
}

func (b *Backend) partnerIndex(id string) int {
	return slices.IndexFunc(b.partners, func(p model.Partner) bool { return p.ID == id })
}

// Session is a Backend seen by one authenticated partner.
type Session struct {
	b         *Backend
	partnerID string
}

// lock takes the backend lock after checking the caller is on the roster.
func (s *Session) lock() error {
	s.b.mu.Lock()
	if s.b.partnerIndex(s.partnerID) < 0 {
		s.b.mu.Unlock()
		return apperr.Unauthorized("unknown partner %q", s.partnerID)
	}
	return nil
}

func (s *Session) unlock() { s.b.mu.Unlock() }

func (s *Session) partnerView(p model.Partner) model.Partner {
	_, p.HasPIN = s.b.pins[p.ID]
	return p
}

func (s *Session) Me(ctx context.Context) (model.Partner, error) {
	if err := s.lock(); err != nil {
		return model.Partner{}, err
	}
	defer s.unlock()
	return s.partnerView(s.b.partners[s.b.partnerIndex(s.partnerID)]), nil
}

// ListPartners returns the roster with each partner's current condition
// score, so clients that only hold their own entries can still rank others.
func (s *Session) ListPartners(ctx context.Context) ([]model.Partner, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	entries := make([]model.ConditionEntry, 0, len(s.b.conditions))
	for _, e := range s.b.conditions {
		entries = append(entries, e)
	}
	today := s.b.clock.Today()
	out := make([]model.Partner, 0, len(s.b.partners))
	for _, p := range s.b.partners {
		p = s.partnerView(p)
		score := fairness.ScoreFor(p, entries, today)
		p.ConditionScore = &score
		out = append(out, p)
	}
	return out, nil
}

func (s *Session) ListTasks(ctx context.Context, from, to calendar.Date) ([]model.Task, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	return s.b.tasks.ListRange(from, to), nil
}

func (s *Session) CreateTask(ctx context.Context, in model.NewTask) ([]model.Task, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()

	if in.PartnerID == "" {
		in.PartnerID = s.partnerID
	}
	if s.b.partnerIndex(in.PartnerID) < 0 {
		return nil, apperr.Validation("unknown partner %q", in.PartnerID)
	}
	tasks, err := chore.Expand(in)
	if err != nil {
		return nil, err
	}
	now := s.b.clock.Now()
	for i := range tasks {
		tasks[i].ID = uuid.NewString()
		tasks[i].Order = s.b.tasks.NextOrder(tasks[i].Date)
		tasks[i].CreatedAt = now
		tasks[i].UpdatedAt = now
		if err := s.b.tasks.Apply(tasks[i], calendar.Date{}); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (s *Session) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	if err := s.lock(); err != nil {
		return model.Task{}, err
	}
	defer s.unlock()

	current, ok := s.b.tasks.Get(id)
	if !ok {
		return model.Task{}, apperr.NotFound("task", id)
	}
	next, err := chore.ApplyPatch(current, patch)
	if err != nil {
		return model.Task{}, err
	}
	if s.b.partnerIndex(next.PartnerID) < 0 {
		return model.Task{}, apperr.Validation("unknown partner %q", next.PartnerID)
	}
	if next.Date != current.Date && patch.Order == nil {
		next.Order = s.b.tasks.NextOrder(next.Date)
	}
	next.UpdatedAt = s.b.clock.Now()
	if err := s.b.tasks.Apply(next, current.Date); err != nil {
		return model.Task{}, err
	}
	return next, nil
}

func (s *Session) ToggleTask(ctx context.Context, id string) (model.Task, error) {
	if err := s.lock(); err != nil {
		return model.Task{}, err
	}
	defer s.unlock()

	t, ok := s.b.tasks.Get(id)
	if !ok {
		return model.Task{}, apperr.NotFound("task", id)
	}
	if err := chore.CheckToggle(t.Date, s.b.clock.Today()); err != nil {
		return model.Task{}, err
	}
	t.IsDone = !t.IsDone
	t.UpdatedAt = s.b.clock.Now()
	if err := s.b.tasks.Apply(t, t.Date); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func (s *Session) DeleteTask(ctx context.Context, id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	if !s.b.tasks.Delete(id) {
		return apperr.NotFound("task", id)
	}
	return nil
}

// ListConditions returns the caller's entries within [from, to], oldest
// first. Zero bounds are open.
func (s *Session) ListConditions(ctx context.Context, from, to calendar.Date) ([]model.ConditionEntry, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	var out []model.ConditionEntry
	for _, e := range s.b.conditions {
		if e.PartnerID != s.partnerID {
			continue
		}
		if (!from.IsZero() && e.Date.Before(from)) || (!to.IsZero() && e.Date.After(to)) {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b model.ConditionEntry) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// UpsertCondition writes the caller's entry for e.Date, replacing any entry
// already held for that day.
func (s *Session) UpsertCondition(ctx context.Context, e model.ConditionEntry) (model.ConditionEntry, error) {
	if err := s.lock(); err != nil {
		return model.ConditionEntry{}, err
	}
	defer s.unlock()

	e.PartnerID = s.partnerID
	e, err := fairness.ValidateEntry(e)
	if err != nil {
		return model.ConditionEntry{}, err
	}
	e.ID = ""
	for id, existing := range s.b.conditions {
		if existing.PartnerID == e.PartnerID && existing.Date == e.Date {
			e.ID = id
			break
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.UpdatedAt = s.b.clock.Now()
	s.b.conditions[e.ID] = e
	return e, nil
}

func (s *Session) DeleteCondition(ctx context.Context, id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	e, ok := s.b.conditions[id]
	if !ok || e.PartnerID != s.partnerID {
		return apperr.NotFound("condition", id)
	}
	delete(s.b.conditions, id)
	return nil
}

func (s *Session) ListRequests(ctx context.Context, status model.RequestStatus) ([]model.AdjustmentRequest, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	return s.b.workflow.List(status), nil
}

func (s *Session) CreateRequest(ctx context.Context, in model.NewAdjustment) (model.AdjustmentRequest, error) {
	if err := s.lock(); err != nil {
		return model.AdjustmentRequest{}, err
	}
	defer s.unlock()
	s.b.workflow.SetMembers(model.PartnerIDs(s.b.partners))
	return s.b.workflow.Create(s.partnerID, in)
}

// DecideRequest records a vote. Voting for another partner needs that
// partner's PIN.
func (s *Session) DecideRequest(ctx context.Context, id string, in model.DecisionInput) (model.DecisionResult, error) {
	if err := s.lock(); err != nil {
		return model.DecisionResult{}, err
	}
	defer s.unlock()

	voter := in.PartnerID
	if voter == "" {
		voter = s.partnerID
	}
	if voter != s.partnerID && !auth.CheckPIN(s.b.pins[voter], in.PIN) {
		return model.DecisionResult{}, apperr.Unauthorized("a valid PIN is required to decide for %s", voter)
	}
	return s.b.workflow.Decide(id, voter, in.Decision)
}
