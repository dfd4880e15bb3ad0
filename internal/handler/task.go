package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/auth"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/chore"
	"github.com/dukerupert/fairshare/internal/metrics"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/store"
)

type TaskHandler struct {
	tasks    *store.TaskStore
	partners *store.PartnerStore
	clock    calendar.Clock
	metrics  metrics.Recorder
	logger   *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, ps *store.PartnerStore, clock calendar.Clock, rec metrics.Recorder, logger *slog.Logger) *TaskHandler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &TaskHandler{tasks: ts, partners: ps, clock: clock, metrics: rec, logger: logger}
}

// List handles GET /api/tasks?from=&to=
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	tasks, err := h.tasks.ListRange(from, to)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(tasks))
}

func (h *TaskHandler) checkPartner(id string) error {
	p, err := h.partners.GetByID(id)
	if err != nil {
		return err
	}
	if p == nil {
		return apperr.Validation("unknown partner %q", id)
	}
	return nil
}

// Create handles POST /api/tasks. A repeating task is expanded into one task
// per occurrence and all of them are returned.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.NewTask
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if in.PartnerID == "" {
		in.PartnerID = auth.PartnerID(r.Context())
	}
	if err := h.checkPartner(in.PartnerID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	expanded, err := chore.Expand(in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	created, err := h.tasks.Create(expanded, h.clock.Now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.metrics.TasksCreated(len(created))
	writeJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) load(id string) (*model.Task, error) {
	t, err := h.tasks.GetByID(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("task", id)
	}
	return t, nil
}

// Update handles PATCH /api/tasks/{id}. A task moved to another date without
// an explicit order goes to the end of that date.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	current, err := h.load(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var patch model.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	next, err := chore.ApplyPatch(*current, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if next.PartnerID != current.PartnerID {
		if err := h.checkPartner(next.PartnerID); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	if next.Date != current.Date && patch.Order == nil {
		if next.Order, err = h.tasks.NextOrder(next.Date); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	updated, err := h.tasks.Update(next, h.clock.Now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Toggle handles PATCH /api/tasks/{id}/toggle. Completion can only change
// within the toggle window, judged by the server's calendar.
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	today := h.clock.Today()
	updated, err := h.tasks.Toggle(r.PathValue("id"), h.clock.Now(), func(t model.Task) error {
		return chore.CheckToggle(t.Date, today)
	})
	if err != nil {
		if apperr.Is(err, apperr.KindToggleNotAllowed) {
			h.metrics.Toggle("rejected")
		}
		writeError(w, h.logger, err)
		return
	}

	if updated.IsDone {
		h.metrics.Toggle("done")
	} else {
		h.metrics.Toggle("undone")
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ok, err := h.tasks.Delete(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !ok {
		writeError(w, h.logger, apperr.NotFound("task", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
