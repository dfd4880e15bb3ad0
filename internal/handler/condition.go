package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/auth"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/fairness"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/store"
)

type ConditionHandler struct {
	conditions *store.ConditionStore
	clock      calendar.Clock
	logger     *slog.Logger
}

func NewConditionHandler(cs *store.ConditionStore, clock calendar.Clock, logger *slog.Logger) *ConditionHandler {
	return &ConditionHandler{conditions: cs, clock: clock, logger: logger}
}

// List handles GET /api/conditions?from=&to= for the caller's own entries.
func (h *ConditionHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	entries, err := h.conditions.ListByPartner(auth.PartnerID(r.Context()), from, to)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(entries))
}

// Upsert handles POST /api/conditions. The entry always belongs to the
// caller and replaces any entry they hold for the same date.
func (h *ConditionHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in model.ConditionEntry
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	in.PartnerID = auth.PartnerID(r.Context())

	entry, err := fairness.ValidateEntry(in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	saved, err := h.conditions.Upsert(entry, h.clock.Now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Delete handles DELETE /api/conditions/{id}. Another partner's entry is
// reported as not found.
func (h *ConditionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ok, err := h.conditions.Delete(id, auth.PartnerID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !ok {
		writeError(w, h.logger, apperr.NotFound("condition", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
