// Package handler serves the household API over JSON.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/calendar"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps categorized errors to their status. Anything else is
// logged and reported as a 500 without detail.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == "" {
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal"})
		return
	}
	writeJSON(w, apperr.HTTPStatus(kind), errorBody{Error: err.Error(), Code: string(kind)})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid JSON")
	}
	return nil
}

// dateRange reads the optional from and to query parameters.
func dateRange(r *http.Request) (from, to calendar.Date, err error) {
	q := r.URL.Query()
	if from, err = calendar.Parse(q.Get("from")); err != nil {
		return calendar.Date{}, calendar.Date{}, apperr.Validation("from must be YYYY-MM-DD")
	}
	if to, err = calendar.Parse(q.Get("to")); err != nil {
		return calendar.Date{}, calendar.Date{}, apperr.Validation("to must be YYYY-MM-DD")
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return calendar.Date{}, calendar.Date{}, apperr.Validation("to must not be before from")
	}
	return from, to, nil
}

// emptyIfNil keeps list responses as [] rather than null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
