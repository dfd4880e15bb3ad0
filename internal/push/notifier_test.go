package push

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/fairshare/internal/database"
	"github.com/dukerupert/fairshare/internal/model"
	"github.com/dukerupert/fairshare/internal/store"
)

type fakeSender struct {
	sent    map[string][]Payload
	expired map[string]bool
	fail    map[string]bool
}

func (f *fakeSender) Send(ctx context.Context, sub *model.PushSubscription, p Payload) error {
	if f.expired[sub.Endpoint] {
		return ErrExpired
	}
	if f.fail[sub.Endpoint] {
		return errors.New("push service returned 500")
	}
	f.sent[sub.PartnerID] = append(f.sent[sub.PartnerID], p)
	return nil
}

type countingRecorder struct {
	pushed map[string]int
}

func (c *countingRecorder) TasksCreated(int)        {}
func (c *countingRecorder) Toggle(string)           {}
func (c *countingRecorder) RequestCreated()         {}
func (c *countingRecorder) Decision(string, string) {}
func (c *countingRecorder) PushSent(result string)  { c.pushed[result]++ }

func setupNotifier(t *testing.T) (*Notifier, *fakeSender, *store.PushStore, *countingRecorder) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	partners := store.NewPartnerStore(db)
	for _, p := range []model.Partner{{ID: "minji", Name: "Minji"}, {ID: "junho", Name: "Junho"}, {ID: "dana", Name: "Dana"}} {
		if _, err := partners.Upsert(p); err != nil {
			t.Fatalf("seed partner: %v", err)
		}
	}

	subs := store.NewPushStore(db)
	sender := &fakeSender{sent: map[string][]Payload{}, expired: map[string]bool{}, fail: map[string]bool{}}
	rec := &countingRecorder{pushed: map[string]int{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewNotifier(sender, subs, partners, rec, logger), sender, subs, rec
}

func testRequest() model.AdjustmentRequest {
	return model.AdjustmentRequest{
		ID:          "req-1",
		RequesterID: "minji",
		TaskTitle:   "Bathroom",
		Delta:       15,
		Direction:   model.DirectionIncrease,
		Status:      model.StatusPending,
		Approvals:   map[string]model.RequestStatus{"junho": model.StatusPending, "dana": model.StatusPending},
		CreatedAt:   time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}
}

func TestRequestCreatedNotifiesApprovers(t *testing.T) {
	n, sender, subs, rec := setupNotifier(t)
	subs.CreateSubscription("junho", "https://push.example.com/junho", "k", "a", "Phone")
	subs.CreateSubscription("minji", "https://push.example.com/minji", "k", "a", "Phone")

	n.RequestCreated(testRequest())

	if len(sender.sent["junho"]) != 1 {
		t.Fatalf("junho got %d notifications, want 1", len(sender.sent["junho"]))
	}
	if len(sender.sent["minji"]) != 0 {
		t.Error("the requester should not be notified of their own request")
	}
	body := sender.sent["junho"][0].Body
	if !strings.Contains(body, "Minji") || !strings.Contains(body, "Bathroom") {
		t.Errorf("body = %q", body)
	}
	if !sender.sent["junho"][0].Urgent {
		t.Error("a vote request should be sent urgently")
	}
	if rec.pushed["ok"] != 1 {
		t.Errorf("ok count = %d, want 1", rec.pushed["ok"])
	}
}

func TestRequestResolvedNotifiesRequester(t *testing.T) {
	n, sender, subs, _ := setupNotifier(t)
	subs.CreateSubscription("minji", "https://push.example.com/minji", "k", "a", "Phone")
	subs.CreateSubscription("junho", "https://push.example.com/junho", "k", "a", "Phone")

	req := testRequest()
	req.Status = model.StatusApproved
	n.RequestResolved(req)

	if len(sender.sent["minji"]) != 1 || len(sender.sent["junho"]) != 0 {
		t.Fatalf("sent = %v", sender.sent)
	}
	if sender.sent["minji"][0].Title != "Point change approved" {
		t.Errorf("title = %q", sender.sent["minji"][0].Title)
	}
}

func TestExpiredSubscriptionIsDeleted(t *testing.T) {
	n, sender, subs, rec := setupNotifier(t)
	subs.CreateSubscription("junho", "https://push.example.com/old", "k", "a", "Old phone")
	subs.CreateSubscription("junho", "https://push.example.com/new", "k", "a", "New phone")
	subs.CreateSubscription("dana", "https://push.example.com/broken", "k", "a", "Tablet")
	sender.expired["https://push.example.com/old"] = true
	sender.fail["https://push.example.com/broken"] = true

	n.RequestCreated(testRequest())

	remaining, _ := subs.ListByPartner("junho")
	if len(remaining) != 1 || remaining[0].Endpoint != "https://push.example.com/new" {
		t.Errorf("remaining = %+v", remaining)
	}
	kept, _ := subs.ListByPartner("dana")
	if len(kept) != 1 {
		t.Error("a failed send should not delete the subscription")
	}
	if rec.pushed["expired"] != 1 || rec.pushed["error"] != 1 || rec.pushed["ok"] != 1 {
		t.Errorf("pushed = %v", rec.pushed)
	}
}
