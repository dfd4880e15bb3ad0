package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/approval"
	"github.com/dukerupert/fairshare/internal/auth"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/metrics"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/store"
)

// RequestNotifier is told about new and resolved requests. *push.Notifier
// implements it.
type RequestNotifier interface {
	RequestCreated(req model.AdjustmentRequest)
	RequestResolved(req model.AdjustmentRequest)
}

type RequestHandler struct {
	requests *store.RequestStore
	tasks    *store.TaskStore
	partners *store.PartnerStore
	clock    calendar.Clock
	metrics  metrics.Recorder
	notifier RequestNotifier
	logger   *slog.Logger
}

func NewRequestHandler(rs *store.RequestStore, ts *store.TaskStore, ps *store.PartnerStore, clock calendar.Clock, rec metrics.Recorder, notifier RequestNotifier, logger *slog.Logger) *RequestHandler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &RequestHandler{requests: rs, tasks: ts, partners: ps, clock: clock, metrics: rec, notifier: notifier, logger: logger}
}

// List handles GET /api/requests?status=
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	status := model.RequestStatus(r.URL.Query().Get("status"))
	if status != "" && status != model.StatusPending && !status.Terminal() {
		writeError(w, h.logger, apperr.Validation("status must be pending, approved or rejected"))
		return
	}
	reqs, err := h.requests.List(status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(reqs))
}

// Create handles POST /api/requests. Every other partner on the roster is
// asked to vote.
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.NewAdjustment
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if in.TaskID == "" {
		writeError(w, h.logger, apperr.Validation("task_id is required"))
		return
	}

	task, err := h.tasks.GetByID(in.TaskID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if task == nil {
		writeError(w, h.logger, apperr.NotFound("task", in.TaskID))
		return
	}
	members, err := h.partners.IDs()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	req, err := approval.New(uuid.NewString(), auth.PartnerID(r.Context()), *task, in.Delta, in.Direction, members, h.clock.Now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.requests.Create(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.metrics.RequestCreated()
	if h.notifier != nil {
		go h.notifier.RequestCreated(req.Clone())
	}
	writeJSON(w, http.StatusCreated, req)
}

// Decide handles PATCH /api/requests/{id}/decision. Voting for another
// partner requires that partner's PIN. The vote and any resulting point
// change are applied in one transaction.
func (h *RequestHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var in model.DecisionInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	caller := auth.PartnerID(r.Context())
	voter := in.PartnerID
	if voter == "" {
		voter = caller
	}
	if voter != caller {
		hash, err := h.partners.GetPINHash(voter)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if !auth.CheckPIN(hash, in.PIN) {
			writeError(w, h.logger, apperr.Unauthorized("a valid PIN is required to decide for %s", voter))
			return
		}
	}

	out, updated, err := h.requests.Decide(r.PathValue("id"), voter, in.Decision, h.clock.Now())
	if err != nil {
		h.metrics.Decision(string(in.Decision), "error")
		writeError(w, h.logger, err)
		return
	}

	h.metrics.Decision(string(in.Decision), string(out.Request.Status))
	if out.Resolved && h.notifier != nil {
		go h.notifier.RequestResolved(out.Request.Clone())
	}
	writeJSON(w, http.StatusOK, model.DecisionResult{Request: out.Request, UpdatedTask: updated})
}
