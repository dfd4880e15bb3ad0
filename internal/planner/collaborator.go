// Package planner mirrors the household's schedule locally and routes every
// mutation through a Collaborator, the authoritative store. Local state is
// changed only after the collaborator confirms.
package planner

import (
	"context"

	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/model"
)

// Collaborator is the request/response boundary to the authoritative store.
// Implementations: the HTTP client and the in-memory backend.
type Collaborator interface {
	Me(ctx context.Context) (model.Partner, error)
	ListPartners(ctx context.Context) ([]model.Partner, error)

	ListTasks(ctx context.Context, from, to calendar.Date) ([]model.Task, error)
	CreateTask(ctx context.Context, in model.NewTask) ([]model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error)
	ToggleTask(ctx context.Context, id string) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error

	ListConditions(ctx context.Context, from, to calendar.Date) ([]model.ConditionEntry, error)
	UpsertCondition(ctx context.Context, e model.ConditionEntry) (model.ConditionEntry, error)
	DeleteCondition(ctx context.Context, id string) error

	ListRequests(ctx context.Context, status model.RequestStatus) ([]model.AdjustmentRequest, error)
	CreateRequest(ctx context.Context, in model.NewAdjustment) (model.AdjustmentRequest, error)
	DecideRequest(ctx context.Context, id string, in model.DecisionInput) (model.DecisionResult, error)
}
