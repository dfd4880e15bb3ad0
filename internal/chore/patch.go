package chore

import (
	"strings"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/model"
)

// ApplyPatch validates patch against t and returns the updated task. Point
// values are refused: they only change through an approved adjustment
// request. Completion is refused too; it goes through the toggle.
func ApplyPatch(t model.Task, patch model.TaskPatch) (model.Task, error) {
	if patch.Points != nil {
		return model.Task{}, apperr.Validation("points change only through an adjustment request")
	}
	if patch.Tip != nil {
		tip, err := ValidateTip(*patch.Tip)
		if err != nil {
			return model.Task{}, err
		}
		patch.Tip = &tip
	}
	next := patch.ApplyTo(t)
	next.Title = strings.TrimSpace(next.Title)
	switch {
	case next.Title == "":
		return model.Task{}, apperr.Validation("title is required")
	case next.PartnerID == "":
		return model.Task{}, apperr.Validation("partner_id is required")
	case next.Date.IsZero():
		return model.Task{}, apperr.Validation("date is required")
	case next.Order < 0:
		return model.Task{}, apperr.Validation("order must not be negative")
	}
	return next, nil
}
