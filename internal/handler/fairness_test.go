package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/fairness"
	"github.com/dukerupert/fairshare/internal/model"
)

func TestFairnessReport(t *testing.T) {
	env := setupTestEnv(t)
	h := NewFairnessHandler(env.partners, env.tasks, env.conditions, env.clock, env.logger)

	for _, task := range []model.Task{
		{Title: "Laundry", PartnerID: "minji", Date: calendar.MustParse("2026-10-02"), Points: 60, IsDone: true},
		{Title: "Dishes", PartnerID: "junho", Date: calendar.MustParse("2026-09-15"), Points: 20, IsDone: true},
		{Title: "Old", PartnerID: "junho", Date: calendar.MustParse("2026-07-31"), Points: 500, IsDone: true},
		{Title: "Open", PartnerID: "junho", Date: calendar.MustParse("2026-10-10"), Points: 30},
	} {
		env.createTask(t, task)
	}

	rec := httptest.NewRecorder()
	h.Report(rec, newRequest(t, "GET", "/api/fairness?month=2026-10", "minji", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	report := decode[fairness.Report](t, rec)

	if report.Month != "2026-10" {
		t.Errorf("month = %q", report.Month)
	}
	if report.WindowStart.String() != "2026-08-01" || report.WindowEnd.String() != "2026-11-30" {
		t.Errorf("window = %s..%s", report.WindowStart, report.WindowEnd)
	}
	if report.Points["minji"] != 60 || report.Points["junho"] != 20 {
		t.Errorf("points = %v", report.Points)
	}
	if report.Partners[0].Share != 75 || report.Partners[1].Share != 25 {
		t.Errorf("shares = %d/%d, want 75/25", report.Partners[0].Share, report.Partners[1].Share)
	}
	// junho carries less load and is fit enough for every recommendation
	// except high intensity work, which needs a condition of 7.
	for _, rec := range report.Recommendations {
		if rec.AssignedPartnerID == "" {
			t.Errorf("recommendation %s unassigned", rec.ID)
		}
	}
}

func TestFairnessReportBadMonth(t *testing.T) {
	env := setupTestEnv(t)
	h := NewFairnessHandler(env.partners, env.tasks, env.conditions, env.clock, env.logger)

	rec := httptest.NewRecorder()
	h.Report(rec, newRequest(t, "GET", "/api/fairness?month=October", "minji", nil))
	expectError(t, rec, http.StatusBadRequest, "validation")
}
