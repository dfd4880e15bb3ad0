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

type PartnerHandler struct {
	partners   *store.PartnerStore
	conditions *store.ConditionStore
	clock      calendar.Clock
	logger     *slog.Logger
}

func NewPartnerHandler(ps *store.PartnerStore, cs *store.ConditionStore, clock calendar.Clock, logger *slog.Logger) *PartnerHandler {
	return &PartnerHandler{partners: ps, conditions: cs, clock: clock, logger: logger}
}

// Me handles GET /api/me
func (h *PartnerHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := auth.PartnerID(r.Context())
	p, err := h.partners.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if p == nil {
		writeError(w, h.logger, apperr.NotFound("partner", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// List handles GET /api/partners. Each partner carries their current
// condition score so clients can rank partners whose entries they cannot
// read.
func (h *PartnerHandler) List(w http.ResponseWriter, r *http.Request) {
	partners, err := scoredPartners(h.partners, h.conditions, h.clock.Today())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(partners))
}

func scoredPartners(ps *store.PartnerStore, cs *store.ConditionStore, today calendar.Date) ([]model.Partner, error) {
	partners, err := ps.List()
	if err != nil {
		return nil, err
	}
	latest, err := cs.Latest(today)
	if err != nil {
		return nil, err
	}
	for i := range partners {
		score := fairness.ScoreFor(partners[i], latest, today)
		partners[i].ConditionScore = &score
	}
	return partners, nil
}

// SetPIN handles PUT /api/partners/{id}/pin. Partners may only set their own
// PIN; an empty PIN clears it.
func (h *PartnerHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id != auth.PartnerID(r.Context()) {
		writeError(w, h.logger, apperr.NotEligible("partners may only set their own PIN"))
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if req.PIN == "" {
		if err := h.partners.ClearPIN(id); err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "pin cleared"})
		return
	}

	hash, err := auth.HashPIN(req.PIN)
	if err != nil {
		writeError(w, h.logger, apperr.Validation("%v", err))
		return
	}
	if err := h.partners.SetPIN(id, hash); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin set"})
}
