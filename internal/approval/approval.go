// Package approval implements point-adjustment requests. A request needs an
// approve from every partner except the requester; a single reject vetoes
// it. Status only ever moves from pending to approved or rejected.
package approval

import (
	"slices"
	"time"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/model"
)

// New builds a pending request from requesterID against task. members is
// the household roster; every member other than the requester gets a pending
// vote.
func New(id, requesterID string, task model.Task, delta int, dir model.Direction, members []string, now time.Time) (model.AdjustmentRequest, error) {
	switch {
	case task.ID == "":
		return model.AdjustmentRequest{}, apperr.Validation("task_id is required")
	case delta <= 0:
		return model.AdjustmentRequest{}, apperr.Validation("delta must be a positive number of points")
	case !dir.Valid():
		return model.AdjustmentRequest{}, apperr.Validation("direction must be increase or decrease")
	case !slices.Contains(members, requesterID):
		return model.AdjustmentRequest{}, apperr.NotEligible("%s is not a household member", requesterID)
	}

	approvals := make(map[string]model.RequestStatus, len(members))
	for _, m := range members {
		if m != requesterID {
			approvals[m] = model.StatusPending
		}
	}
	if len(approvals) == 0 {
		return model.AdjustmentRequest{}, apperr.Validation("no other members to approve the request")
	}

	return model.AdjustmentRequest{
		ID:          id,
		RequesterID: requesterID,
		TaskID:      task.ID,
		TaskTitle:   task.Title,
		TaskDate:    task.Date,
		Delta:       delta,
		Direction:   dir,
		Status:      model.StatusPending,
		Approvals:   approvals,
		CreatedAt:   now,
	}, nil
}

// Check reports whether partnerID may vote on req right now.
func Check(req model.AdjustmentRequest, partnerID string) error {
	if req.Status.Terminal() {
		return apperr.AlreadyResolved(req.ID)
	}
	if partnerID == req.RequesterID {
		return apperr.NotEligible("the requester cannot decide their own request")
	}
	if _, ok := req.Approvals[partnerID]; !ok {
		return apperr.NotEligible("%s is not asked to decide this request", partnerID)
	}
	return nil
}

// Outcome is the result of one vote.
type Outcome struct {
	Request model.AdjustmentRequest
	// Resolved is set when this vote moved the request to a terminal status.
	Resolved bool
}

// Approved reports whether this vote approved the request.
func (o Outcome) Approved() bool {
	return o.Resolved && o.Request.Status == model.StatusApproved
}

// Decide applies one vote and returns the updated request. req is not
// modified. Repeating an approve is a no-op.
func Decide(req model.AdjustmentRequest, partnerID string, d model.Decision, now time.Time) (Outcome, error) {
	if err := Check(req, partnerID); err != nil {
		return Outcome{}, err
	}
	if !d.Valid() {
		return Outcome{}, apperr.Validation("decision must be approve or reject")
	}

	next := req.Clone()
	switch d {
	case model.DecisionReject:
		next.Approvals[partnerID] = model.StatusRejected
		next.Status = model.StatusRejected
	case model.DecisionApprove:
		if next.Approvals[partnerID] == model.StatusApproved {
			return Outcome{Request: next}, nil
		}
		next.Approvals[partnerID] = model.StatusApproved
		if allApproved(next.Approvals) {
			next.Status = model.StatusApproved
		}
	}

	if !next.Status.Terminal() {
		return Outcome{Request: next}, nil
	}
	resolvedAt := now
	next.ResolvedAt = &resolvedAt
	return Outcome{Request: next, Resolved: true}, nil
}

func allApproved(approvals map[string]model.RequestStatus) bool {
	for _, s := range approvals {
		if s != model.StatusApproved {
			return false
		}
	}
	return true
}

// AdjustPoints returns points moved by delta in dir, never below zero.
func AdjustPoints(points, delta int, dir model.Direction) int {
	if dir == model.DirectionDecrease {
		delta = -delta
	}
	return max(points+delta, 0)
}
