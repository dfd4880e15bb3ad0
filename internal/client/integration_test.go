package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/fairshare/internal/apperr"
	"github.com/dukerupert/fairshare/internal/auth"
	"github.com/dukerupert/fairshare/internal/calendar"
	"github.com/dukerupert/fairshare/internal/client"
	"github.com/dukerupert/fairshare/internal/database"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/planner"
	"github.com/dukerupert/fairshare/internal/server"
	"github.com/dukerupert/fairshare/internal/store"
)

func TestPlannerAgainstServer(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	clock := calendar.Fixed(now)
	today := calendar.Of(now)

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	partners := store.NewPartnerStore(db)
	for i, id := range []string{"minji", "junho"} {
		_, err := partners.Upsert(model.Partner{ID: id, Name: id, SortOrder: i})
		require.NoError(t, err)
	}

	tokens := auth.NewTokens("integration", time.Hour)
	ts := httptest.NewServer(server.New(db, tokens, nil, clock, logger).Router())
	t.Cleanup(ts.Close)

	connect := func(partnerID string) *planner.Planner {
		token, err := tokens.Issue(partnerID)
		require.NoError(t, err)
		p := planner.New(client.New(ts.URL, token, client.WithLogger(logger)), clock, logger)
		require.NoError(t, p.Load(ctx, today.FirstOfMonth(-2), today.LastOfMonth(1)))
		return p
	}

	minji := connect("minji")
	created, err := minji.AddTask(ctx, model.NewTask{Title: "Bathroom", Date: today, Points: 40, Tip: "Scrub the grout"})
	require.NoError(t, err)
	taskID := created[0].ID

	req, err := minji.SubmitRequest(ctx, taskID, 15, model.DirectionIncrease)
	require.NoError(t, err)

	_, err = minji.Decide(ctx, req.ID, model.DecisionApprove)
	assert.True(t, apperr.Is(err, apperr.KindNotEligible), "got %v", err)

	junho := connect("junho")
	require.Len(t, junho.AwaitingMe(), 1)
	res, err := junho.Decide(ctx, req.ID, model.DecisionApprove)
	require.NoError(t, err)
	require.NotNil(t, res.UpdatedTask)
	assert.Equal(t, 55, res.UpdatedTask.Points)

	task, ok := junho.Task(taskID)
	require.True(t, ok)
	assert.Equal(t, 55, task.Points)

	_, err = minji.Reschedule(ctx, taskID, 2)
	require.NoError(t, err)
	require.NoError(t, junho.RefreshTasks(ctx))
	moved, _ := junho.Task(taskID)
	assert.Equal(t, today.AddDays(2), moved.Date)
}
