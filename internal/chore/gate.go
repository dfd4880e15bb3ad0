// Package chore holds the per-task rules: the completion toggle window, point
// estimation, tip normalization and repeat expansion.
package chore

import (
	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/calendar"
)

// ToggleWindowDays is how far back a completion may still be changed.
const ToggleWindowDays = 7

// CanToggle reports whether a task dated taskDate may have its completion
// flipped on day today. Future days and days more than a week old are
// refused; an undated task can never be toggled.
func CanToggle(taskDate, today calendar.Date) bool {
	if taskDate.IsZero() || today.IsZero() {
		return false
	}
	age := today.Sub(taskDate)
	return age >= 0 && age <= ToggleWindowDays
}

// CheckToggle is CanToggle as an error, for callers that must refuse.
func CheckToggle(taskDate, today calendar.Date) error {
	if !CanToggle(taskDate, today) {
		return apperr.ToggleNotAllowed(taskDate)
	}
	return nil
}
