package model

import (
	"maps"
	"time"

	"github.com/dukerupert/fairshare/internal/calendar"
)

type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

func (d Direction) Valid() bool {
	return d == DirectionIncrease || d == DirectionDecrease
}

// RequestStatus is both the status of a request and the state of one
// partner's vote in its approval map.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// AdjustmentRequest asks the household to change a task's point value.
// Approvals holds one entry per partner except the requester.
type AdjustmentRequest struct {
	ID          string                   `json:"id"`
	RequesterID string                   `json:"requester_id"`
	TaskID      string                   `json:"task_id"`
	TaskTitle   string                   `json:"task_title"`
	TaskDate    calendar.Date            `json:"task_date"`
	Delta       int                      `json:"delta"`
	Direction   Direction                `json:"direction"`
	Status      RequestStatus            `json:"status"`
	Approvals   map[string]RequestStatus `json:"approvals"`
	CreatedAt   time.Time                `json:"created_at"`
	ResolvedAt  *time.Time               `json:"resolved_at,omitempty"`
}

// Clone returns a copy that shares no map with r.
func (r AdjustmentRequest) Clone() AdjustmentRequest {
	r.Approvals = maps.Clone(r.Approvals)
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		r.ResolvedAt = &t
	}
	return r
}

type NewAdjustment struct {
	TaskID    string    `json:"task_id"`
	Delta     int       `json:"delta"`
	Direction Direction `json:"direction"`
}

// DecisionInput is one partner's vote. PIN is required when the caller
// records a vote on behalf of another partner on a shared device.
type DecisionInput struct {
	PartnerID string   `json:"partner_id"`
	Decision  Decision `json:"decision"`
	PIN       string   `json:"pin,omitempty"`
}

// DecisionResult is the outcome of a vote. UpdatedTask is set when the vote
// approved the request and the task still exists.
type DecisionResult struct {
	Request     AdjustmentRequest `json:"request"`
	UpdatedTask *Task             `json:"updated_task,omitempty"`
}
