package planner_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/memory"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/planner"
)

var (
	ctx   = context.Background()
	now   = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	today = calendar.Of(now)
	clock = calendar.Fixed(now)
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flaky fails every call while down is set.
type flaky struct {
	planner.Collaborator
	down bool
}

var errDown = errors.New("connection refused")

func (f *flaky) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	if f.down {
		return model.Task{}, errDown
	}
	return f.Collaborator.UpdateTask(ctx, id, patch)
}

func (f *flaky) ToggleTask(ctx context.Context, id string) (model.Task, error) {
	if f.down {
		return model.Task{}, errDown
	}
	return f.Collaborator.ToggleTask(ctx, id)
}

func (f *flaky) DeleteTask(ctx context.Context, id string) error {
	if f.down {
		return errDown
	}
	return f.Collaborator.DeleteTask(ctx, id)
}

func (f *flaky) ListTasks(ctx context.Context, from, to calendar.Date) ([]model.Task, error) {
	if f.down {
		return nil, errDown
	}
	return f.Collaborator.ListTasks(ctx, from, to)
}

func (f *flaky) DecideRequest(ctx context.Context, id string, in model.DecisionInput) (model.DecisionResult, error) {
	if f.down {
		return model.DecisionResult{}, errDown
	}
	return f.Collaborator.DecideRequest(ctx, id, in)
}

func household() *memory.Backend {
	return memory.New(clock, []model.Partner{
		{ID: "alice", Name: "Alice"},
		{ID: "bob", Name: "Bob"},
		{ID: "carol", Name: "Carol"},
	})
}

func load(t *testing.T, c planner.Collaborator) *planner.Planner {
	t.Helper()
	p := planner.New(c, clock, quietLogger())
	require.NoError(t, p.Load(ctx, today.FirstOfMonth(-2), today.LastOfMonth(1)))
	return p
}

func TestAddAndMoveTask(t *testing.T) {
	p := load(t, household().As("alice"))

	created, err := p.AddTask(ctx, model.NewTask{Title: "Cook", Date: today, Points: 40})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "alice", created[0].PartnerID)
	assert.Len(t, p.TasksOn(today), 1)

	moved, err := p.Reschedule(ctx, created[0].ID, 2)
	require.NoError(t, err)
	assert.Equal(t, today.AddDays(2), moved.Date)
	assert.Empty(t, p.TasksOn(today))
	assert.Len(t, p.TasksOn(today.AddDays(2)), 1)
	assert.Len(t, p.AllTasks(), 1)
}

func TestAddTaskValidatesLocally(t *testing.T) {
	p := load(t, household().As("alice"))
	_, err := p.AddTask(ctx, model.NewTask{Title: "", Date: today})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestFailedCallLeavesStateUntouched(t *testing.T) {
	f := &flaky{Collaborator: household().As("alice")}
	p := load(t, f)
	created, err := p.AddTask(ctx, model.NewTask{Title: "Cook", Date: today, Points: 40})
	require.NoError(t, err)
	id := created[0].ID

	f.down = true

	_, err = p.Move(ctx, id, today.AddDays(3))
	require.Error(t, err)
	assert.True(t, apperr.Retryable(err))
	assert.Contains(t, err.Error(), "connection refused")

	_, err = p.ToggleTask(ctx, id)
	assert.True(t, apperr.Is(err, apperr.KindCollaborator))

	err = p.DeleteTask(ctx, id)
	assert.True(t, apperr.Is(err, apperr.KindCollaborator))

	got, ok := p.Task(id)
	require.True(t, ok)
	assert.Equal(t, today, got.Date)
	assert.False(t, got.IsDone)
}

func TestToggleOutsideWindowNeverCallsCollaborator(t *testing.T) {
	f := &flaky{Collaborator: household().As("alice")}
	p := load(t, f)
	created, err := p.AddTask(ctx, model.NewTask{Title: "Later", Date: today.AddDays(1)})
	require.NoError(t, err)

	f.down = true
	_, err = p.ToggleTask(ctx, created[0].ID)
	assert.True(t, apperr.Is(err, apperr.KindToggleNotAllowed), "gate is checked before the call: %v", err)
	assert.False(t, p.CanToggle(created[0].ID))
}

func TestRuleRejectionKeepsKind(t *testing.T) {
	b := household()
	alice := load(t, b.As("alice"))
	created, err := alice.AddTask(ctx, model.NewTask{Title: "Cook", Date: today, Points: 40})
	require.NoError(t, err)
	req, err := alice.SubmitRequest(ctx, created[0].ID, 10, model.DirectionIncrease)
	require.NoError(t, err)

	bob := load(t, b.As("bob"))
	_, err = bob.Decide(ctx, req.ID, model.DecisionReject)
	require.NoError(t, err)

	carol := planner.New(b.As("carol"), clock, quietLogger())
	// carol never loaded, so the check happens remotely.
	_, err = carol.DecideFor(ctx, req.ID, model.DecisionInput{PartnerID: "carol", Decision: model.DecisionApprove})
	assert.True(t, apperr.Is(err, apperr.KindAlreadyResolved))
	assert.False(t, apperr.Retryable(err))
}

func TestUnanimousApprovalUpdatesLocalTask(t *testing.T) {
	b := household()
	alice := load(t, b.As("alice"))
	created, err := alice.AddTask(ctx, model.NewTask{Title: "Cook", Date: today, Points: 40})
	require.NoError(t, err)
	taskID := created[0].ID

	req, err := alice.SubmitRequest(ctx, taskID, 15, model.DirectionIncrease)
	require.NoError(t, err)

	_, err = alice.Decide(ctx, req.ID, model.DecisionApprove)
	assert.True(t, apperr.Is(err, apperr.KindNotEligible), "requester cannot vote")

	bob := load(t, b.As("bob"))
	require.Len(t, bob.AwaitingMe(), 1)
	res, err := bob.Decide(ctx, req.ID, model.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, res.Request.Status)
	assert.Empty(t, bob.AwaitingMe())

	carol := load(t, b.As("carol"))
	res, err = carol.Decide(ctx, req.ID, model.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, res.Request.Status)
	require.NotNil(t, res.UpdatedTask)

	got, ok := carol.Task(taskID)
	require.True(t, ok)
	assert.Equal(t, 55, got.Points)
	assert.Equal(t, today, got.Date)
	assert.Equal(t, created[0].Order, got.Order)

	// alice's mirror is stale until she reloads.
	stale, _ := alice.Task(taskID)
	assert.Equal(t, 40, stale.Points)
	require.NoError(t, alice.RefreshTasks(ctx))
	fresh, _ := alice.Task(taskID)
	assert.Equal(t, 55, fresh.Points)
}

// noUpdatedTask strips the task from decision results, as older servers do.
type noUpdatedTask struct {
	planner.Collaborator
}

func (n noUpdatedTask) DecideRequest(ctx context.Context, id string, in model.DecisionInput) (model.DecisionResult, error) {
	res, err := n.Collaborator.DecideRequest(ctx, id, in)
	res.UpdatedTask = nil
	return res, err
}

func TestApprovalWithoutTaskReloads(t *testing.T) {
	b := household()
	alice := load(t, b.As("alice"))
	created, err := alice.AddTask(ctx, model.NewTask{Title: "Cook", Date: today, Points: 40})
	require.NoError(t, err)
	req, err := alice.SubmitRequest(ctx, created[0].ID, 15, model.DirectionDecrease)
	require.NoError(t, err)

	_, err = load(t, b.As("bob")).Decide(ctx, req.ID, model.DecisionApprove)
	require.NoError(t, err)

	carol := load(t, noUpdatedTask{b.As("carol")})
	res, err := carol.Decide(ctx, req.ID, model.DecisionApprove)
	require.NoError(t, err)
	assert.Nil(t, res.UpdatedTask)

	got, _ := carol.Task(created[0].ID)
	assert.Equal(t, 25, got.Points)
}

func TestSubmitRequestValidation(t *testing.T) {
	p := load(t, household().As("alice"))
	created, err := p.AddTask(ctx, model.NewTask{Title: "Cook", Date: today})
	require.NoError(t, err)

	_, err = p.SubmitRequest(ctx, created[0].ID, 0, model.DirectionIncrease)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = p.SubmitRequest(ctx, "missing", 5, model.DirectionIncrease)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSetTip(t *testing.T) {
	p := load(t, household().As("alice"))
	created, err := p.AddTask(ctx, model.NewTask{Title: "Cook", Date: today})
	require.NoError(t, err)

	_, err = p.SetTip(ctx, created[0].ID, "  ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	updated, err := p.SetTip(ctx, created[0].ID, " prep vegetables first ")
	require.NoError(t, err)
	assert.Equal(t, "prep vegetables first", updated.Tip)
}

func TestConditionsAndRecommendations(t *testing.T) {
	b := household()
	bob := load(t, b.As("bob"))
	_, err := bob.UpsertCondition(ctx, model.ConditionEntry{Date: today, MorningScore: 2})
	require.NoError(t, err)

	alice := load(t, b.As("alice"))
	_, err = alice.UpsertCondition(ctx, model.ConditionEntry{Date: today, MorningScore: 9, PreChoreScore: intPtr(9)})
	require.NoError(t, err)
	require.Len(t, alice.Conditions(), 1)

	done, err := alice.AddTask(ctx, model.NewTask{Title: "Laundry", Date: today, Points: 30})
	require.NoError(t, err)
	_, err = alice.ToggleTask(ctx, done[0].ID)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"alice": 30}, alice.RollingPoints(today))

	for _, rec := range alice.Recommendations(today) {
		assert.NotEqual(t, "bob", rec.AssignedPartnerID, "%s should not go to a partner at condition 2 when others qualify", rec.Title)
	}
	partners := alice.Partners(today)
	require.Len(t, partners, 3)
	assert.Equal(t, 100, partners[0].Share)
}

func TestDeleteTask(t *testing.T) {
	p := load(t, household().As("alice"))
	created, err := p.AddTask(ctx, model.NewTask{Title: "Cook", Date: today})
	require.NoError(t, err)

	require.NoError(t, p.DeleteTask(ctx, created[0].ID))
	assert.Empty(t, p.AllTasks())

	err = p.DeleteTask(ctx, created[0].ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func intPtr(v int) *int { return &v }
