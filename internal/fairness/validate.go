package fairness

import (
	"strings"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/model"
)

// ValidateEntry checks a condition entry at the collaborator boundary and
// returns it with the note trimmed. A disabled pre-chore score is dropped.
func ValidateEntry(e model.ConditionEntry) (model.ConditionEntry, error) {
	if e.Date.IsZero() {
		return e, apperr.Validation("date is required")
	}
	if e.MorningScore < MinScore || e.MorningScore > MaxScore {
		return e, apperr.Validation("morning_score must be between %d and %d", MinScore, MaxScore)
	}
	if e.PreChoreDisabled {
		e.PreChoreScore = nil
	}
	if p := e.PreChoreScore; p != nil && (*p < MinScore || *p > MaxScore) {
		return e, apperr.Validation("pre_chore_score must be between %d and %d", MinScore, MaxScore)
	}
	e.Note = strings.TrimSpace(e.Note)
	return e, nil
}
