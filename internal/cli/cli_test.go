package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/memory"
	"github.com/dukerupert/fairshare/internal/model"
)

var (
	ctx   = context.Background()
	clock = calendar.Fixed(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	today = clock.Today()
)

func newBackend(t *testing.T) *memory.Backend {
	t.Helper()
	return memory.New(clock, []model.Partner{
		{ID: "minji", Name: "Minji", Condition: "좋음"},
		{ID: "junho", Name: "Junho", Condition: "피곤"},
	})
}

func run(t *testing.T, b *memory.Backend, partnerID string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := Run(ctx, b.As(partnerID), clock, args, &out)
	return out.String(), err
}

func TestTasksAndToggle(t *testing.T) {
	b := newBackend(t)
	created, err := b.As("minji").CreateTask(ctx, model.NewTask{Title: "Laundry", Date: today, Points: 30})
	require.NoError(t, err)

	out, err := run(t, b, "minji", "tasks")
	require.NoError(t, err)
	assert.Contains(t, out, "Laundry")
	assert.Contains(t, out, "[ ]")

	out, err = run(t, b, "minji", "toggle", created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Laundry is done\n", out)
}

func TestTasksShowRepeat(t *testing.T) {
	b := newBackend(t)
	_, err := b.As("minji").CreateTask(ctx, model.NewTask{
		Title: "Recycling", Date: today, Points: 20, Repeat: "FREQ=WEEKLY;BYDAY=MO;COUNT=2",
	})
	require.NoError(t, err)

	out, err := run(t, b, "minji", "tasks", "-to", today.AddDays(14).String())
	require.NoError(t, err)
	assert.Contains(t, out, "REPEATS")
	assert.Contains(t, out, "weekly on Mon")
	assert.Contains(t, out, today.AddDays(7).String())
}

func TestMove(t *testing.T) {
	b := newBackend(t)
	created, err := b.As("minji").CreateTask(ctx, model.NewTask{Title: "Vacuum", Date: today, Points: 30})
	require.NoError(t, err)

	out, err := run(t, b, "minji", "move", created[0].ID, "+2")
	require.NoError(t, err)
	assert.Equal(t, "Vacuum moved to 2026-10-21\n", out)

	out, err = run(t, b, "minji", "move", created[0].ID, "2026-10-25")
	require.NoError(t, err)
	assert.Equal(t, "Vacuum moved to 2026-10-25\n", out)

	_, err = run(t, b, "minji", "move", created[0].ID, "+0")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestRequestAndDecide(t *testing.T) {
	b := newBackend(t)
	created, err := b.As("minji").CreateTask(ctx, model.NewTask{Title: "Bathroom", Date: today, Points: 40})
	require.NoError(t, err)

	out, err := run(t, b, "minji", "request", created[0].ID, "+15")
	require.NoError(t, err)
	assert.Contains(t, out, "Bathroom increase by 15 points, awaiting 1 vote(s)")

	reqs, err := b.As("junho").ListRequests(ctx, model.StatusPending)
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	out, err = run(t, b, "junho", "requests")
	require.NoError(t, err)
	assert.Contains(t, out, "+15")
	assert.Contains(t, out, "pending")

	_, err = run(t, b, "minji", "decide", reqs[0].ID, "approve")
	assert.True(t, apperr.Is(err, apperr.KindNotEligible))

	out, err = run(t, b, "junho", "decide", reqs[0].ID, "approve")
	require.NoError(t, err)
	assert.Contains(t, out, "is approved")
	assert.Contains(t, out, "Bathroom is now worth 55 points")
}

func TestDecideForAnotherPartnerWithPIN(t *testing.T) {
	b := newBackend(t)
	require.NoError(t, b.SetPIN("junho", "2580"))
	created, err := b.As("minji").CreateTask(ctx, model.NewTask{Title: "Bathroom", Date: today, Points: 40})
	require.NoError(t, err)
	req, err := b.As("minji").CreateRequest(ctx, model.NewAdjustment{TaskID: created[0].ID, Delta: 10, Direction: model.DirectionDecrease})
	require.NoError(t, err)

	_, err = run(t, b, "minji", "decide", "-for", "junho", "-pin", "1111", req.ID, "reject")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	out, err := run(t, b, "minji", "decide", "-for", "junho", "-pin", "2580", req.ID, "reject")
	require.NoError(t, err)
	assert.Contains(t, out, "is rejected")
}

func TestSharesAndRecommend(t *testing.T) {
	b := newBackend(t)
	s := b.As("minji")
	for _, in := range []model.NewTask{
		{Title: "Laundry", PartnerID: "minji", Date: today, Points: 60},
		{Title: "Dishes", PartnerID: "junho", Date: today, Points: 20},
	} {
		created, err := s.CreateTask(ctx, in)
		require.NoError(t, err)
		_, err = s.ToggleTask(ctx, created[0].ID)
		require.NoError(t, err)
	}

	out, err := run(t, b, "minji", "shares", "-month", "2026-10")
	require.NoError(t, err)
	assert.Contains(t, out, "75%")
	assert.Contains(t, out, "25%")

	out, err = run(t, b, "minji", "recommend")
	require.NoError(t, err)
	assert.Contains(t, out, "SUGGESTED FOR")
}

func TestCondition(t *testing.T) {
	b := newBackend(t)

	out, err := run(t, b, "minji", "condition", "-pre", "6", "8", "slept", "well")
	require.NoError(t, err)
	assert.Equal(t, "condition for 2026-10-19 saved (morning 8)\n", out)

	entries, err := b.As("minji").ListConditions(ctx, calendar.Date{}, calendar.Date{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "slept well", entries[0].Note)
	require.NotNil(t, entries[0].PreChoreScore)
	assert.Equal(t, 6, *entries[0].PreChoreScore)

	_, err = run(t, b, "minji", "condition", "11")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUsageErrors(t *testing.T) {
	b := newBackend(t)
	for _, args := range [][]string{
		nil,
		{"dance"},
		{"toggle"},
		{"request", "t1", "15"},
		{"shares", "-month", "October"},
		{"tasks", "-from", "yesterday"},
	} {
		_, err := run(t, b, "minji", args...)
		assert.ErrorIs(t, err, ErrUsage, "%v", args)
	}
}
