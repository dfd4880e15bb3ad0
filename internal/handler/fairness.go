package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/fairness"
	"github.com/dukerupert/fairshare/internal/store"
)

type FairnessHandler struct {
	partners   *store.PartnerStore
	tasks      *store.TaskStore
	conditions *store.ConditionStore
	clock      calendar.Clock
	logger     *slog.Logger
}

func NewFairnessHandler(ps *store.PartnerStore, ts *store.TaskStore, cs *store.ConditionStore, clock calendar.Clock, logger *slog.Logger) *FairnessHandler {
	return &FairnessHandler{partners: ps, tasks: ts, conditions: cs, clock: clock, logger: logger}
}

// Report handles GET /api/fairness?month=YYYY-MM. The month defaults to the
// current one.
func (h *FairnessHandler) Report(w http.ResponseWriter, r *http.Request) {
	today := h.clock.Today()
	anchor := today
	if month := r.URL.Query().Get("month"); month != "" {
		t, err := time.Parse("2006-01", month)
		if err != nil {
			writeError(w, h.logger, apperr.Validation("month must be YYYY-MM"))
			return
		}
		anchor = calendar.Of(t)
	}

	partners, err := h.partners.List()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	start, end := fairness.RollingWindow(anchor)
	tasks, err := h.tasks.ListRange(start, end)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	latest, err := h.conditions.Latest(today)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	report := fairness.BuildReport(fairness.Input{
		Anchor:     anchor,
		Today:      today,
		Partners:   partners,
		Tasks:      fairness.Tasks(tasks),
		Conditions: latest,
	})
	report.Partners = emptyIfNil(report.Partners)
	report.Recommendations = emptyIfNil(report.Recommendations)
	writeJSON(w, http.StatusOK, report)
}
