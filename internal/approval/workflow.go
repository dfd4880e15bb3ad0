package approval

import (
	"cmp"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/schedule"
)

// Workflow owns a set of requests and applies approved adjustments to the
// tasks in a schedule.Store. Each decision is evaluated under one lock so
// concurrent votes cannot both see a stale approval map.
type Workflow struct {
	mu       sync.Mutex
	tasks    *schedule.Store
	clock    calendar.Clock
	members  []string
	requests map[string]model.AdjustmentRequest
	seq      map[string]int
	next     int
}

func NewWorkflow(tasks *schedule.Store, clock calendar.Clock, members []string) *Workflow {
	return &Workflow{
		tasks:    tasks,
		clock:    clock,
		members:  slices.Clone(members),
		requests: make(map[string]model.AdjustmentRequest),
		seq:      make(map[string]int),
	}
}

// SetMembers replaces the roster used for new requests. Requests already
// created keep their approval map.
func (w *Workflow) SetMembers(members []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.members = slices.Clone(members)
}

func (w *Workflow) Create(requesterID string, in model.NewAdjustment) (model.AdjustmentRequest, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if in.TaskID == "" {
		return model.AdjustmentRequest{}, apperr.Validation("task_id is required")
	}
	task, ok := w.tasks.Get(in.TaskID)
	if !ok {
		return model.AdjustmentRequest{}, apperr.NotFound("task", in.TaskID)
	}
	req, err := New(uuid.NewString(), requesterID, task, in.Delta, in.Direction, w.members, w.clock.Now())
	if err != nil {
		return model.AdjustmentRequest{}, err
	}
	w.requests[req.ID] = req
	w.seq[req.ID] = w.next
	w.next++
	return req.Clone(), nil
}

// Decide records a vote. When it approves the request, the task's points are
// adjusted in place and returned as UpdatedTask. A task deleted in the
// meantime leaves the request approved with no UpdatedTask.
func (w *Workflow) Decide(requestID, partnerID string, d model.Decision) (model.DecisionResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	req, ok := w.requests[requestID]
	if !ok {
		return model.DecisionResult{}, apperr.NotFound("request", requestID)
	}
	out, err := Decide(req, partnerID, d, w.clock.Now())
	if err != nil {
		return model.DecisionResult{}, err
	}
	w.requests[requestID] = out.Request

	result := model.DecisionResult{Request: out.Request.Clone()}
	if !out.Approved() {
		return result, nil
	}
	task, ok := w.tasks.Get(out.Request.TaskID)
	if !ok {
		return result, nil
	}
	updated, _ := w.tasks.SetPoints(task.ID, AdjustPoints(task.Points, out.Request.Delta, out.Request.Direction))
	result.UpdatedTask = &updated
	return result, nil
}

func (w *Workflow) Get(id string) (model.AdjustmentRequest, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	req, ok := w.requests[id]
	if !ok {
		return model.AdjustmentRequest{}, false
	}
	return req.Clone(), true
}

// List returns requests with the given status, or all when status is empty,
// oldest first.
func (w *Workflow) List(status model.RequestStatus) []model.AdjustmentRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.AdjustmentRequest, 0, len(w.requests))
	for _, req := range w.requests {
		if status == "" || req.Status == status {
			out = append(out, req.Clone())
		}
	}
	slices.SortFunc(out, func(a, b model.AdjustmentRequest) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(w.seq[a.ID], w.seq[b.ID]))
	})
	return out
}
